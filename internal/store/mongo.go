package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/config"
	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

// MongoWriter implements Writer against a MongoDB collection keyed by
// _id = external_id. It owns createdAt: set only on insert, never mutated
// on update.
type MongoWriter struct {
	client    *mongo.Client
	coll      *mongo.Collection
	chunkSize int
	now       func() time.Time
}

// NewMongo connects to MongoDB and returns a writer for the configured
// collection.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoWriter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, eris.Wrap(err, "store: connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, eris.Wrap(err, "store: ping mongo")
	}

	chunkSize := cfg.BatchSize
	if chunkSize <= 0 {
		chunkSize = 50
	}

	return &MongoWriter{
		client:    client,
		coll:      client.Database(cfg.Database).Collection(cfg.Collection),
		chunkSize: chunkSize,
		now:       time.Now,
	}, nil
}

// Upsert writes items in fixed-size chunks. A failed chunk is counted and
// skipped; prior and subsequent chunks are unaffected.
func (w *MongoWriter) Upsert(ctx context.Context, items []model.EnrichedItem) (Result, error) {
	var result Result
	now := w.now().UTC()

	for start := 0; start < len(items); start += w.chunkSize {
		end := min(start+w.chunkSize, len(items))
		chunk := items[start:end]

		models := UpsertModels(chunk, now)
		_, err := w.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			result.Errors += len(chunk)
			zap.L().Error("store: bulk write failed",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			continue
		}
		result.Upserted += len(chunk)
	}

	zap.L().Info("store: upsert complete",
		zap.Int("upserted", result.Upserted),
		zap.Int("errors", result.Errors))
	return result, nil
}

// UpsertModels builds the conditional write models for one chunk: all
// fields set on every write, _id and createdAt only on insert.
func UpsertModels(items []model.EnrichedItem, now time.Time) []mongo.WriteModel {
	models := make([]mongo.WriteModel, len(items))
	for i, item := range items {
		set := bson.M{
			"external_id": item.ExternalID,
			"urlSlug":     item.URLSlug,
			"name":        item.Name,
			"description": item.Description,
			"text":        item.Text,
			"video_url":   item.VideoURL,
			"image_url":   item.ImageURL,
			"categories":  item.Categories,
			"postURL":     item.PostURL,
			"aliases":     item.Aliases,
			"tags":        item.Tags,
			"confidence":  item.Confidence,
			"quality":     item.Quality,
			"difficulty":  item.Difficulty,
			"time":        item.Time,
			"author":      item.Author,
			"updatedAt":   now,
		}
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": item.ExternalID}).
			SetUpdate(bson.M{
				"$set":         set,
				"$setOnInsert": bson.M{"createdAt": now},
			}).
			SetUpsert(true)
	}
	return models
}

// EnsureIndexes creates the text and secondary indexes readers depend on.
func (w *MongoWriter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "text", Value: "text"},
			},
			Options: options.Index().SetName("exercise_text_search"),
		},
		{
			Keys:    bson.D{{Key: "categories", Value: 1}},
			Options: options.Index().SetName("categories_1"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("tags_1"),
		},
	}

	_, err := w.coll.Indexes().CreateMany(ctx, indexes)
	return eris.Wrap(err, "store: create indexes")
}

// Close disconnects the underlying client.
func (w *MongoWriter) Close(ctx context.Context) error {
	return eris.Wrap(w.client.Disconnect(ctx), "store: disconnect mongo")
}
