package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/config"
	"github.com/KtodaZ/the-exicon-project-sub000/pkg/anthropic"
)

func testRates() map[string]config.ModelRate {
	return map[string]config.ModelRate{
		"claude-sonnet-4-5-20250929": {InputPer1K: 0.003, OutputPer1K: 0.015},
	}
}

func TestAccountantRecord(t *testing.T) {
	a := NewAccountant(testRates())

	cost := a.Record("claude-sonnet-4-5-20250929", anthropic.TokenUsage{
		InputTokens:  2000,
		OutputTokens: 1000,
	})

	// 2 * 0.003 + 1 * 0.015
	assert.InDelta(t, 0.021, cost, 1e-9)

	s := a.Summary()
	assert.Equal(t, 1, s.Calls)
	assert.Equal(t, int64(2000), s.PromptTokens)
	assert.Equal(t, int64(1000), s.CompletionTokens)
	assert.Equal(t, int64(3000), s.TotalTokens)
	assert.InDelta(t, 0.021, s.CostUSD, 1e-9)
}

func TestAccountantAccumulates(t *testing.T) {
	a := NewAccountant(testRates())

	a.Record("claude-sonnet-4-5-20250929", anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 500})
	a.Record("claude-sonnet-4-5-20250929", anthropic.TokenUsage{InputTokens: 3000, OutputTokens: 1500})

	s := a.Summary()
	assert.Equal(t, 2, s.Calls)
	assert.Equal(t, int64(6000), s.TotalTokens)
	assert.InDelta(t, 0.042, s.CostUSD, 1e-9)
}

func TestAccountantUnknownModelCostsNothing(t *testing.T) {
	a := NewAccountant(testRates())

	cost := a.Record("some-unknown-model", anthropic.TokenUsage{InputTokens: 5000, OutputTokens: 5000})

	assert.Zero(t, cost)
	// Tokens still accumulate even when unpriced.
	assert.Equal(t, int64(10000), a.Summary().TotalTokens)
}
