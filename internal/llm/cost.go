package llm

import "math"

type rate struct {
	promptPer1K     float64
	completionPer1K float64
}

// Published per-1K-token rates by provider ID.
var costRates = map[string]rate{
	"moonshot":  {promptPer1K: 0.005, completionPer1K: 0.015},
	"anthropic": {promptPer1K: 0.003, completionPer1K: 0.015},
}

// EstimateCost returns the approximate USD cost of a call, rounded to
// four decimal places. Unknown providers cost zero.
func EstimateCost(provider string, usage Usage) float64 {
	r, ok := costRates[provider]
	if !ok {
		return 0
	}
	cost := float64(usage.PromptTokens)/1000*r.promptPer1K +
		float64(usage.CompletionTokens)/1000*r.completionPer1K
	return math.Round(cost*10000) / 10000
}
