package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/runlog"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/snapshot"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upsert an enrichment snapshot into the document store",
	Long: `Reads a JSON snapshot produced by "exicon enrich" and upserts every
item into MongoDB, keyed by external_id. Safe to rerun: identical input only
refreshes updatedAt.

Examples:
  exicon sync
  exicon sync --input exercises-enriched.json --ensure-indexes`,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.String("input", "", "JSON snapshot path (default: enrich.snapshot_json)")
	f.Bool("ensure-indexes", false, "create text/secondary indexes before writing")
	f.String("run", "", "run id to record the upsert error count against")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("sync"); err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		input = cfg.Enrich.SnapshotJSON
	}
	ensureIndexes, _ := cmd.Flags().GetBool("ensure-indexes")

	items, err := snapshot.ReadJSON(input)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return eris.Errorf("sync: snapshot %s is empty", input)
	}

	writer, err := store.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := writer.Close(ctx); closeErr != nil {
			zap.L().Warn("sync: close store", zap.Error(closeErr))
		}
	}()

	if ensureIndexes {
		if err := writer.EnsureIndexes(ctx); err != nil {
			return err
		}
	}

	result, err := writer.Upsert(ctx, items)
	if err != nil {
		return err
	}

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		if err := recordUpsertErrors(ctx, runID, result.Errors); err != nil {
			zap.L().Warn("sync: run log update failed", zap.Error(err))
		}
	}

	fmt.Printf("Upserted %d items, %d errors (from %s)\n", result.Upserted, result.Errors, input)
	return nil
}

func recordUpsertErrors(ctx context.Context, runID string, errors int) error {
	rlog, err := runlog.Open(cfg.RunLog.Path)
	if err != nil {
		return err
	}
	defer rlog.Close()
	return rlog.RecordUpsertErrors(ctx, runID, errors)
}
