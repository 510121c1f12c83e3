package usage

const tokensPerPriceUnit = 1_000_000

// ComputeCosts derives linear costs from token totals and per-million-token
// unit prices.
func ComputeCosts(tokens TokenTotals, pricing Pricing) Costs {
	costs := Costs{
		Input:  float64(tokens.InputTokens) / tokensPerPriceUnit * pricing.Input,
		Output: float64(tokens.OutputTokens) / tokensPerPriceUnit * pricing.Output,
		Cache:  float64(tokens.CachedTokens) / tokensPerPriceUnit * pricing.Cache,
	}
	costs.Total = costs.Input + costs.Output + costs.Cache
	return costs
}
