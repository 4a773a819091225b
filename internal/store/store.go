// Package store upserts enriched items into the document store.
package store

import (
	"context"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

// Result reports the outcome of one Upsert call.
type Result struct {
	Upserted int
	Errors   int
}

// Writer is the idempotent document sink. Rerunning Upsert with identical
// input must not create duplicates; only updatedAt changes.
type Writer interface {
	Upsert(ctx context.Context, items []model.EnrichedItem) (Result, error)
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}
