// Package usage reconciles locally-derived counters with the proxy's
// authoritative usage snapshot, tolerating the several response shapes the
// management API has used across versions.
package usage

// TokenTotals are flattened token counts folded out of a usage snapshot.
type TokenTotals struct {
	InputTokens  uint64 `json:"input_tokens"`
	OutputTokens uint64 `json:"output_tokens"`
	CachedTokens uint64 `json:"cached_tokens"`
	TotalTokens  uint64 `json:"total_tokens"`
}

// RequestTotals are flattened request counts folded out of a usage snapshot.
type RequestTotals struct {
	Total   uint64 `json:"total_requests"`
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

// Pricing is the operator-configured cost per million tokens. Zero disables
// cost reporting in effect.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
	Cache  float64 `json:"cache"`
}

// Costs are derived dollar figures for a set of token totals.
type Costs struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
	Cache  float64 `json:"cache"`
	Total  float64 `json:"total"`
}
