package gateway

import "strings"

// Pricing calculates API cost from token usage when the provider does not
// report cost itself.
type Pricing interface {
	// GetCost returns the USD cost for a model and token usage.
	GetCost(model string, tokensIn, tokensOut int) float64
}

// ModelPricing contains per-token pricing for a model.
type ModelPricing struct {
	InputPer1M  float64 // USD per 1M input tokens
	OutputPer1M float64 // USD per 1M output tokens
}

// DefaultPricing provides cost calculation from a static rate table keyed
// by "provider/model" identifiers. Unknown models cost zero.
type DefaultPricing struct {
	prices map[string]ModelPricing
}

// NewDefaultPricing creates a pricing calculator with current rates.
func NewDefaultPricing() *DefaultPricing {
	return &DefaultPricing{prices: buildPricingTable()}
}

// GetCost calculates the cost for a given request.
func (p *DefaultPricing) GetCost(model string, tokensIn, tokensOut int) float64 {
	price, ok := p.prices[strings.TrimSpace(model)]
	if !ok {
		return 0.0
	}

	inputCost := float64(tokensIn) / 1_000_000.0 * price.InputPer1M
	outputCost := float64(tokensOut) / 1_000_000.0 * price.OutputPer1M

	return inputCost + outputCost
}

// buildPricingTable returns rates for the models commonly routed through
// OpenRouter-compatible endpoints.
// Pricing as of: 2025-12-27
func buildPricingTable() map[string]ModelPricing {
	return map[string]ModelPricing{
		"openai/gpt-4o": {
			InputPer1M:  2.50,
			OutputPer1M: 10.00,
		},
		"openai/gpt-4o-mini": {
			InputPer1M:  0.15,
			OutputPer1M: 0.60,
		},
		"openai/o1-mini": {
			InputPer1M:  3.00,
			OutputPer1M: 12.00,
		},
		"anthropic/claude-3-5-sonnet": {
			InputPer1M:  3.00,
			OutputPer1M: 15.00,
		},
		"anthropic/claude-3-5-haiku": {
			InputPer1M:  0.80,
			OutputPer1M: 4.00,
		},
		"google/gemini-2.5-pro": {
			InputPer1M:  1.25,
			OutputPer1M: 10.00,
		},
		"google/gemini-2.5-flash": {
			InputPer1M:  0.15,
			OutputPer1M: 0.60,
		},
		"perplexity/llama-3.1-sonar-small-128k-online": {
			InputPer1M:  0.20,
			OutputPer1M: 0.20,
		},
		"perplexity/llama-3.1-sonar-large-128k-online": {
			InputPer1M:  1.00,
			OutputPer1M: 1.00,
		},
	}
}
