package rag

import (
	"math"
	"testing"
)

func TestEstimateCostKnownModel(t *testing.T) {
	got := EstimateCost("gpt-4o-mini", TokenUsage{PromptTokens: 1000, CompletionTokens: 1000})
	want := 0.00015 + 0.0006
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEstimateCostScalesWithTokens(t *testing.T) {
	half := EstimateCost("gpt-4o", TokenUsage{PromptTokens: 500, CompletionTokens: 500})
	full := EstimateCost("gpt-4o", TokenUsage{PromptTokens: 1000, CompletionTokens: 1000})
	if math.Abs(full-2*half) > 1e-9 {
		t.Errorf("cost must be linear in tokens: half=%v full=%v", half, full)
	}
}

func TestEstimateCostFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
	}{
		{"no usage reported", "gpt-4o-mini", TokenUsage{}},
		{"unknown model", "local-llama", TokenUsage{PromptTokens: 100, CompletionTokens: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateCost(tt.model, tt.usage); got != FallbackCostPerCall {
				t.Errorf("got %v, want fallback %v", got, FallbackCostPerCall)
			}
		})
	}
}
