package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/config"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
	"github.com/KtodaZ/the-exicon-project-sub000/pkg/anthropic"
)

// Batch lifecycle states, logged as each batch advances.
const (
	stateBuilt      = "built"
	stateCalled     = "called"
	stateParsed     = "parsed"
	stateReconciled = "reconciled"
	statePersisted  = "persisted"
)

// Snapshotter persists the running accumulator after every batch.
type Snapshotter interface {
	Write(items []model.EnrichedItem) error
}

// Orchestrator drives one LLM call per batch and guarantees exactly one
// EnrichmentResult per input item, synthesizing sentinel defaults where the
// model under-delivers.
type Orchestrator struct {
	client     anthropic.Client
	modelID    string
	maxTokens  int64
	batchSize  int
	maxRetries int
	limiter    *rate.Limiter
	accountant *Accountant
	snap       Snapshotter
}

// RunSummary reports what happened across the whole run.
type RunSummary struct {
	Items          int         `json:"items"`
	Batches        int         `json:"batches"`
	FailedBatches  int         `json:"failed_batches"`
	DefaultedItems int         `json:"defaulted_items"`
	DuplicateIDs   int         `json:"duplicate_ids"`
	UnknownIDs     int         `json:"unknown_ids"`
	Cost           CostSummary `json:"cost"`
}

// NewOrchestrator wires an orchestrator from an explicit client instance;
// there is no package-level client state.
func NewOrchestrator(client anthropic.Client, aiCfg config.AnthropicConfig, cfg config.EnrichConfig, rates map[string]config.ModelRate, snap Snapshotter) *Orchestrator {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	delay := time.Duration(cfg.BatchDelaySecs) * time.Second
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Orchestrator{
		client:     client,
		modelID:    aiCfg.Model,
		maxTokens:  aiCfg.MaxTokens,
		batchSize:  batchSize,
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(limit, 1),
		accountant: NewAccountant(rates),
		snap:       snap,
	}
}

// Run enriches all items batch by batch, rewriting the snapshot after each
// batch so a mid-run crash loses at most the in-flight batch.
func (o *Orchestrator) Run(ctx context.Context, items []model.NormalizedItem) ([]model.EnrichedItem, RunSummary, error) {
	summary := RunSummary{Items: len(items)}
	enriched := make([]model.EnrichedItem, 0, len(items))

	for start := 0; start < len(items); start += o.batchSize {
		end := min(start+o.batchSize, len(items))
		batch := items[start:end]
		summary.Batches++

		log := zap.L().With(zap.Int("batch", summary.Batches), zap.Int("size", len(batch)))
		log.Info("enrich: batch ready", zap.String("state", stateBuilt))

		// Inter-batch pacing for provider rate limits; not a correctness
		// device.
		if err := o.limiter.Wait(ctx); err != nil {
			return enriched, summary, eris.Wrap(err, "enrich: inter-batch delay")
		}

		results, stats := o.enrichBatch(ctx, batch, log)
		summary.DefaultedItems += stats.Missing
		summary.DuplicateIDs += stats.Duplicates
		summary.UnknownIDs += stats.Unknown
		if stats.WholeBatchFailed {
			summary.FailedBatches++
		}
		log.Info("enrich: batch reconciled",
			zap.String("state", stateReconciled),
			zap.Int("defaulted", stats.Missing),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("unknown", stats.Unknown))

		for i, item := range batch {
			enriched = append(enriched, model.Enrich(item, results[i]))
		}

		if err := o.snap.Write(enriched); err != nil {
			return enriched, summary, eris.Wrap(err, "enrich: write snapshot")
		}
		log.Info("enrich: batch persisted",
			zap.String("state", statePersisted),
			zap.Int("accumulated", len(enriched)))
	}

	summary.Cost = o.accountant.Summary()
	o.accountant.Log()
	return enriched, summary, nil
}

// enrichBatch runs the CALLED→PARSED→RECONCILED stages for one batch.
// It never fails: an unusable response degrades to sentinel defaults.
func (o *Orchestrator) enrichBatch(ctx context.Context, batch []model.NormalizedItem, log *zap.Logger) ([]model.EnrichmentResult, ReconcileStats) {
	req := BuildRequest(batch, o.modelID, o.maxTokens)

	resp := o.callWithRetry(ctx, req, log)
	if resp == nil {
		// Whole-batch fallback: every item gets sentinel defaults and the
		// run continues.
		results := make([]model.EnrichmentResult, len(batch))
		for i, item := range batch {
			results[i] = model.DefaultResult(item.ExternalID, item.URLSlug)
		}
		return results, ReconcileStats{Missing: len(batch), WholeBatchFailed: true}
	}

	cost := o.accountant.Record(resp.Model, resp.Usage)
	log.Info("enrich: model responded",
		zap.String("state", stateCalled),
		zap.String("stop_reason", resp.StopReason),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Float64("cost_usd", cost))

	// The model may return multiple tool invocations; all are concatenated.
	var received []model.EnrichmentResult
	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != ToolName {
			continue
		}
		outcome := Parse(block.Input, resp.StopReason, len(batch))
		switch outcome.Kind {
		case OutcomeOk:
			received = append(received, outcome.Results...)
		case OutcomeCountMismatch:
			log.Warn("enrich: count verification mismatch",
				zap.Int("expected", outcome.Expected),
				zap.Int("actual", outcome.Actual))
			received = append(received, outcome.Results...)
		case OutcomeMalformed:
			log.Warn("enrich: discarding malformed tool payload",
				zap.Int("raw_len", len(outcome.Raw)))
		}
	}
	log.Info("enrich: response parsed",
		zap.String("state", stateParsed),
		zap.Int("received", len(received)))

	return Reconcile(batch, received)
}

// callWithRetry invokes the model with bounded exponential backoff. Returns
// nil once retries are exhausted; the caller substitutes defaults.
func (o *Orchestrator) callWithRetry(ctx context.Context, req anthropic.MessageRequest, log *zap.Logger) *anthropic.MessageResponse {
	attempts := o.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := o.client.CreateMessage(ctx, req)
		if err == nil {
			return resp
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("enrich: model call failed",
			zap.Int("attempt", attempt+1),
			zap.Int("attempts", attempts),
			zap.Error(err))
		if attempt < attempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

// ReconcileStats counts the identity mismatches found in one batch.
type ReconcileStats struct {
	Missing          int
	Duplicates       int
	Unknown          int
	WholeBatchFailed bool
}

// Reconcile maps received results back onto the expected id set. Missing
// ids are backfilled with sentinel defaults, duplicate ids resolve
// last-match-wins, and unknown ids are dropped. The returned slice is
// parallel to batch: exactly one result per input item.
func Reconcile(batch []model.NormalizedItem, received []model.EnrichmentResult) ([]model.EnrichmentResult, ReconcileStats) {
	expected := make(map[string]bool, len(batch))
	for _, item := range batch {
		expected[item.ExternalID] = true
	}

	var stats ReconcileStats
	byID := make(map[string]model.EnrichmentResult, len(received))
	for _, r := range received {
		if !expected[r.ExternalID] {
			stats.Unknown++
			zap.L().Warn("enrich: ignoring unknown external_id", zap.String("external_id", r.ExternalID))
			continue
		}
		if _, dup := byID[r.ExternalID]; dup {
			stats.Duplicates++
			zap.L().Warn("enrich: duplicate external_id, last match wins", zap.String("external_id", r.ExternalID))
		}
		byID[r.ExternalID] = r
	}

	results := make([]model.EnrichmentResult, len(batch))
	for i, item := range batch {
		r, ok := byID[item.ExternalID]
		if !ok {
			stats.Missing++
			zap.L().Warn("enrich: missing external_id, using defaults", zap.String("external_id", item.ExternalID))
			results[i] = model.DefaultResult(item.ExternalID, item.URLSlug)
			continue
		}
		if r.URLSlug == "" {
			r.URLSlug = item.URLSlug
		}
		results[i] = r
	}

	return results, stats
}
