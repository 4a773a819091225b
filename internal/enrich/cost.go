package enrich

import (
	"time"

	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/config"
	"github.com/KtodaZ/the-exicon-project-sub000/pkg/anthropic"
)

// Accountant accumulates token usage across LLM calls and prices it from a
// fixed per-1K-token rate table. It never blocks the pipeline; unknown
// models accumulate tokens at zero cost.
type Accountant struct {
	rates   map[string]config.ModelRate
	start   time.Time
	usage   anthropic.TokenUsage
	costUSD float64
	calls   int
}

// NewAccountant creates an Accountant and starts the wall clock.
func NewAccountant(rates map[string]config.ModelRate) *Accountant {
	return &Accountant{
		rates: rates,
		start: time.Now(),
	}
}

// Record adds one call's usage and returns the cost attributed to it.
func (a *Accountant) Record(modelID string, u anthropic.TokenUsage) float64 {
	a.usage.Add(u)
	a.calls++

	rate, ok := a.rates[modelID]
	if !ok {
		zap.L().Warn("cost: no rate for model", zap.String("model", modelID))
		return 0
	}

	cost := (float64(u.InputTokens)/1000)*rate.InputPer1K +
		(float64(u.OutputTokens)/1000)*rate.OutputPer1K
	a.costUSD += cost
	return cost
}

// CostSummary is the end-of-run usage report.
type CostSummary struct {
	Calls            int           `json:"calls"`
	PromptTokens     int64         `json:"prompt_tokens"`
	CompletionTokens int64         `json:"completion_tokens"`
	TotalTokens      int64         `json:"total_tokens"`
	CostUSD          float64       `json:"cost_usd"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Summary returns the accumulated totals and elapsed wall-clock time.
func (a *Accountant) Summary() CostSummary {
	return CostSummary{
		Calls:            a.calls,
		PromptTokens:     a.usage.InputTokens,
		CompletionTokens: a.usage.OutputTokens,
		TotalTokens:      a.usage.InputTokens + a.usage.OutputTokens,
		CostUSD:          a.costUSD,
		Elapsed:          time.Since(a.start),
	}
}

// Log writes the summary as a structured log line.
func (a *Accountant) Log() {
	s := a.Summary()
	zap.L().Info("cost: run summary",
		zap.Int("calls", s.Calls),
		zap.Int64("prompt_tokens", s.PromptTokens),
		zap.Int64("completion_tokens", s.CompletionTokens),
		zap.Int64("total_tokens", s.TotalTokens),
		zap.Float64("cost_usd", s.CostUSD),
		zap.Duration("elapsed", s.Elapsed),
	)
}
