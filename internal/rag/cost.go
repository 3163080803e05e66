package rag

// Per-1K-token prices in USD. Informational only: cost never gates the
// success or failure of a generation.
type modelPricing struct {
	prompt     float64
	completion float64
}

var pricingTable = map[string]modelPricing{
	"gpt-4o-mini":   {prompt: 0.00015, completion: 0.0006},
	"gpt-4o":        {prompt: 0.0025, completion: 0.01},
	"gpt-4-turbo":   {prompt: 0.01, completion: 0.03},
	"gpt-3.5-turbo": {prompt: 0.0005, completion: 0.0015},
}

// FallbackCostPerCall is charged when the inference service reports no token
// usage, or the model is not in the pricing table.
const FallbackCostPerCall = 0.002

// EstimateCost computes the estimated monetary cost of one inference call
// from the usage the service reported.
func EstimateCost(model string, usage TokenUsage) float64 {
	if usage.PromptTokens <= 0 && usage.CompletionTokens <= 0 {
		return FallbackCostPerCall
	}
	p, ok := pricingTable[model]
	if !ok {
		return FallbackCostPerCall
	}
	return float64(usage.PromptTokens)/1000*p.prompt +
		float64(usage.CompletionTokens)/1000*p.completion
}
