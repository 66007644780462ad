package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/llmwrap/internal/gateway"
)

func TestDefaultPricing_KnownModel(t *testing.T) {
	pricing := gateway.NewDefaultPricing()

	cost := pricing.GetCost("openai/gpt-4o-mini", 1_000_000, 1_000_000)
	assert.InDelta(t, 0.15+0.60, cost, 1e-9)
}

func TestDefaultPricing_UnknownModelIsFree(t *testing.T) {
	pricing := gateway.NewDefaultPricing()

	assert.Zero(t, pricing.GetCost("unknown/model", 10_000, 10_000))
}

func TestDefaultPricing_ZeroTokens(t *testing.T) {
	pricing := gateway.NewDefaultPricing()

	assert.Zero(t, pricing.GetCost("openai/gpt-4o-mini", 0, 0))
}

func TestDefaultPricing_TrimsWhitespace(t *testing.T) {
	pricing := gateway.NewDefaultPricing()

	assert.Positive(t, pricing.GetCost("  openai/gpt-4o  ", 1000, 1000))
}
