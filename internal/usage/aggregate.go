package usage

import "github.com/tidwall/gjson"

// Field-name precedence tables. The management API's response shape has
// drifted across releases; at every nesting level the first present
// candidate wins and absent fields default to zero. Keeping the tolerance
// policy in tables keeps it auditable.
var (
	totalRequestKeys  = []string{"total_requests", "total", "requests"}
	successKeys       = []string{"success", "successful_requests", "success_count"}
	failureKeys       = []string{"failure", "failed_requests", "failure_count"}
	inputTokenKeys    = []string{"input_tokens", "input", "prompt_tokens"}
	outputTokenKeys   = []string{"output_tokens", "output", "completion_tokens"}
	cachedTokenKeys   = []string{"cached_tokens", "cache"}
	totalTokenKeys    = []string{"total_tokens", "total"}
	tokenDetailHolder = []string{"tokens", "usage"}
)

// Aggregate folds a raw usage snapshot into flat token and request totals.
// A nil or empty snapshot yields zeroes. total_tokens is recomputed as
// input+output+cached whenever a detail record omits it, keeping the
// identity total = input + output + cached true by construction.
func Aggregate(snapshot []byte) (TokenTotals, RequestTotals) {
	var tokens TokenTotals
	var reqs RequestTotals
	if len(snapshot) == 0 {
		return tokens, reqs
	}

	root := gjson.ParseBytes(snapshot)
	usage := root.Get("usage")
	if !usage.IsObject() {
		usage = root
	}
	if !usage.IsObject() {
		return tokens, reqs
	}

	reqs.Total += firstUint(usage, totalRequestKeys)
	reqs.Success += firstUint(usage, successKeys)
	reqs.Failure += firstUint(usage, failureKeys)

	for _, api := range collection(usage.Get("apis")) {
		if !api.IsObject() {
			continue
		}
		reqs.Total += firstUint(api, totalRequestKeys)
		reqs.Success += firstUint(api, successKeys)
		reqs.Failure += firstUint(api, failureKeys)

		for _, model := range collection(api.Get("models")) {
			if !model.IsObject() {
				continue
			}
			details := model.Get("details")
			if details.IsArray() && len(details.Array()) > 0 {
				for _, detail := range details.Array() {
					addTokens(&tokens, detail)
				}
			} else {
				addTokens(&tokens, model)
			}
		}
	}

	if tokens.TotalTokens == 0 {
		tokens.TotalTokens = firstUint(usage, []string{"total_tokens"})
	}
	return tokens, reqs
}

// addTokens extracts one detail record's token counts into the running
// totals. The detail payload may live under "tokens", "usage", or inline.
func addTokens(tokens *TokenTotals, obj gjson.Result) {
	if !obj.IsObject() {
		return
	}
	detail := obj
	for _, holder := range tokenDetailHolder {
		if nested := obj.Get(holder); nested.IsObject() {
			detail = nested
			break
		}
	}

	input := firstUint(detail, inputTokenKeys)
	output := firstUint(detail, outputTokenKeys)
	cached := firstUint(detail, cachedTokenKeys)
	total := firstUint(detail, totalTokenKeys)
	if total == 0 {
		total = firstUint(obj, []string{"total_tokens"})
	}
	if total == 0 {
		total = input + output + cached
	}

	tokens.InputTokens += input
	tokens.OutputTokens += output
	tokens.CachedTokens += cached
	tokens.TotalTokens += total
}

// collection normalizes a level that may be a JSON array or an object keyed
// by name into a slice of members.
func collection(value gjson.Result) []gjson.Result {
	switch {
	case value.IsArray():
		return value.Array()
	case value.IsObject():
		members := make([]gjson.Result, 0, 8)
		value.ForEach(func(_, member gjson.Result) bool {
			members = append(members, member)
			return true
		})
		return members
	default:
		return nil
	}
}

// firstUint returns the first present candidate field as a non-negative
// integer. Malformed values default to zero rather than failing.
func firstUint(obj gjson.Result, keys []string) uint64 {
	for _, key := range keys {
		if v := obj.Get(key); v.Exists() {
			if f := v.Float(); f > 0 {
				return uint64(f)
			}
			return 0
		}
	}
	return 0
}
