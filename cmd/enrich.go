package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/content"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/enrich"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/runlog"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/snapshot"
	"github.com/KtodaZ/the-exicon-project-sub000/pkg/anthropic"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch, normalize, and enrich the full lexicon",
	Long: `Runs the batch enrichment pipeline end to end: fetch list + details
(with on-disk caching), normalize, enrich via Claude in fixed-size batches,
and rewrite the JSON/CSV snapshot after every batch.

The snapshot is the input to "exicon sync", which upserts it into MongoDB.

Examples:
  # Full run
  exicon enrich

  # Smoke run over the first 20 items
  exicon enrich --limit 20

  # Count batches and estimate size without calling the model
  exicon enrich --dry-run`,
	RunE: runEnrich,
}

func init() {
	f := enrichCmd.Flags()
	f.Int("limit", 0, "maximum number of items to enrich (0 = all)")
	f.Bool("dry-run", false, "build batches and report counts without calling the model")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("enrich"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "enrich"))

	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	items, err := fetchAndNormalize(ctx, limit, log)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return eris.New("enrich: no items to process")
	}

	batchSize := cfg.Enrich.BatchSize
	batches := (len(items) + batchSize - 1) / batchSize

	if dryRun {
		// Rough heuristic: ~4 characters per token on English prose.
		promptChars := 0
		for start := 0; start < len(items); start += batchSize {
			end := min(start+batchSize, len(items))
			req := enrich.BuildRequest(items[start:end], cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
			promptChars += len(req.System)
			for _, m := range req.Messages {
				promptChars += len(m.Content)
			}
		}
		fmt.Printf("Dry run: %d items in %d batches of up to %d, est. %d prompt tokens\n",
			len(items), batches, batchSize, promptChars/4)
		return nil
	}

	rlog, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		return err
	}
	defer rlog.Close()
	if err := rlog.Migrate(ctx); err != nil {
		return err
	}
	runID, err := rlog.Start(ctx)
	if err != nil {
		return err
	}

	snap := snapshot.NewWriter(cfg.Enrich.SnapshotJSON, cfg.Enrich.SnapshotCSV)
	client := anthropic.NewClient(cfg.Anthropic.Key)
	orch := enrich.NewOrchestrator(client, cfg.Anthropic, cfg.Enrich, cfg.Pricing.Models, snap)

	enriched, summary, runErr := orch.Run(ctx, items)

	status := runlog.StatusComplete
	if runErr != nil {
		status = runlog.StatusFailed
	}
	if err := rlog.Finish(ctx, runID, status, summary); err != nil {
		log.Warn("enrich: run log update failed", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	s := summary.Cost
	fmt.Printf("Enriched %d items in %d batches (%d defaulted, %d duplicate ids, %d failed batches)\n",
		len(enriched), summary.Batches, summary.DefaultedItems, summary.DuplicateIDs, summary.FailedBatches)
	fmt.Printf("Tokens: %d prompt + %d completion = %d total, est. $%.4f, elapsed %s\n",
		s.PromptTokens, s.CompletionTokens, s.TotalTokens, s.CostUSD, s.Elapsed.Round(time.Second))
	fmt.Printf("Snapshot: %s / %s (run %s)\n", cfg.Enrich.SnapshotJSON, cfg.Enrich.SnapshotCSV, truncateID(runID))
	return nil
}

// fetchAndNormalize runs the fetch and normalize stages. Per-item detail
// failures are logged and skipped; a single bad item never aborts the list.
func fetchAndNormalize(ctx context.Context, limit int, log *zap.Logger) ([]model.NormalizedItem, error) {
	cache, err := content.NewCache(cfg.Content.CacheDir)
	if err != nil {
		return nil, err
	}
	client := content.NewClient(cfg.Content, cache)

	entries, err := client.FetchList(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: fetch list")
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	details := make(map[string]model.RawDetail, len(entries))
	for _, entry := range entries {
		detail, err := client.FetchDetail(ctx, entry.URLSlug)
		if err != nil {
			var fetchErr *content.FetchError
			if errors.As(err, &fetchErr) {
				log.Warn("enrich: skipping item after fetch failure",
					zap.String("slug", entry.URLSlug),
					zap.Int("status", fetchErr.StatusCode),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		details[entry.URLSlug] = *detail
	}

	items, err := content.NormalizeAll(entries, details)
	if err != nil {
		return nil, err
	}

	log.Info("enrich: normalized input ready",
		zap.Int("entries", len(entries)),
		zap.Int("items", len(items)))
	return items, nil
}
