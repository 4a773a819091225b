// Package enrich implements the batched LLM enrichment of normalized
// lexicon items: prompt construction, response parsing and repair,
// reconciliation against the expected id set, and cost accounting.
package enrich

import (
	"fmt"
	"strings"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
	"github.com/KtodaZ/the-exicon-project-sub000/pkg/anthropic"
)

// ToolName is the structured-output tool the model must call.
const ToolName = "record_exercise_metadata"

// systemText fixes the domain vocabulary. The taxonomy and scoring
// definitions are instructional text, not runtime configuration.
const systemText = `You are an exercise-lexicon curator. For every exercise you are given, extract structured metadata and record it with the ` + ToolName + ` tool.

Tag taxonomy (use only these tags):
cardio, legs, arms, shoulders, back, core, chest, full-body, plyometrics, flexibility, warmup, partner, coupon, run, mosey, mary, music, bench, field, playground.

Scoring definitions, each a number between 0.0 and 1.0:
- confidence: how certain you are that the aliases and tags are correct for this exercise.
- quality: how complete and well-written the source description is.
- difficulty: physical difficulty of the exercise (0 = trivial, 1 = extremely demanding).

Other fields:
- aliases: alternate names the exercise is known by. Give each alias a kebab-case id derived from its name; omit the id if unsure and it will be derived.
- time: estimated time in minutes to perform one round, at least 0.
- author: the person or group credited in the text, or "N/A" if none is named.

You must return exactly one result per exercise id you are given. Never omit an id, never invent an id, never repeat an id.`

// BuildRequest builds the structured-extraction request for one batch.
// The schema pins the results array cardinality to the batch size and adds
// a count_verification field as a defense-in-depth signal; the caller must
// still tolerate violations.
func BuildRequest(batch []model.NormalizedItem, modelID string, maxTokens int64) anthropic.MessageRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract metadata for the following %d exercises. Return exactly one result for each external_id listed below, in any order.\n\n", len(batch))

	for i, item := range batch {
		fmt.Fprintf(&b, "--- Exercise %d ---\n", i+1)
		fmt.Fprintf(&b, "external_id: %s\n", item.ExternalID)
		fmt.Fprintf(&b, "urlSlug: %s\n", item.URLSlug)
		fmt.Fprintf(&b, "name: %s\n", item.Name)
		if item.Description != "" {
			fmt.Fprintf(&b, "description: %s\n", item.Description)
		}
		fmt.Fprintf(&b, "text: %s\n\n", item.Text)
	}

	fmt.Fprintf(&b, "Expected external_ids (%d): %s\n", len(batch), strings.Join(externalIDs(batch), ", "))
	fmt.Fprintf(&b, "Set count_verification to %d.\n", len(batch))

	return anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		System:    systemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: b.String()},
		},
		Tools: []anthropic.Tool{
			{
				Name:        ToolName,
				Description: "Record structured metadata for a batch of exercises.",
				InputSchema: ToolSchema(len(batch)),
				Required:    []string{"results", "count_verification"},
			},
		},
		ToolChoice: ToolName,
	}
}

// ToolSchema returns the JSON-schema properties for a batch of n items,
// with minItems == maxItems == n and count_verification pinned to n.
func ToolSchema(n int) map[string]any {
	return map[string]any{
		"results": map[string]any{
			"type":     "array",
			"minItems": n,
			"maxItems": n,
			"items":    resultItemSchema([]string{"external_id", "aliases", "tags", "confidence", "quality", "difficulty", "time", "author"}, true),
		},
		"count_verification": map[string]any{
			"type":        "integer",
			"const":       n,
			"description": fmt.Sprintf("Must equal the number of exercises in this batch (%d).", n),
		},
	}
}

// resultItemSchema builds the per-result object schema. bounded adds the
// numeric range constraints; the validation side leaves them off so
// out-of-range scores are clamped during conversion instead of failing the
// whole payload.
func resultItemSchema(required []string, bounded bool) map[string]any {
	score := map[string]any{"type": "number"}
	timeSchema := map[string]any{"type": "number"}
	if bounded {
		score = map[string]any{"type": "number", "minimum": 0, "maximum": 1}
		timeSchema = map[string]any{"type": "number", "minimum": 0}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"external_id": map[string]any{"type": "string"},
			"urlSlug":     map[string]any{"type": "string"},
			"aliases": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"id":   map[string]any{"type": "string"},
					},
					"required": []string{"name"},
				},
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"confidence": score,
			"quality":    score,
			"difficulty": score,
			"time":       timeSchema,
			"author":     map[string]any{"type": "string"},
		},
		"required": required,
	}
}

// ValidationSchema is the relaxed document schema used to validate parsed
// payloads: same result shape, but no cardinality pin and only the join key
// required per item, so short arrays and repaired partial objects flow to
// count reconciliation instead of being rejected as malformed.
func ValidationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type":  "array",
				"items": resultItemSchema([]string{"external_id"}, false),
			},
			"count_verification": map[string]any{"type": "integer"},
		},
		"required": []string{"results"},
	}
}

func externalIDs(batch []model.NormalizedItem) []string {
	ids := make([]string, len(batch))
	for i, item := range batch {
		ids[i] = item.ExternalID
	}
	return ids
}
