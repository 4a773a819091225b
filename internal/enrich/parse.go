package enrich

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
	"github.com/KtodaZ/the-exicon-project-sub000/pkg/anthropic"
)

// OutcomeKind tags the result of parsing one tool invocation.
type OutcomeKind int

const (
	// OutcomeOk means the payload parsed, validated, and matched the
	// expected cardinality.
	OutcomeOk OutcomeKind = iota
	// OutcomeMalformed means no usable results could be recovered.
	OutcomeMalformed
	// OutcomeCountMismatch means the payload is usable but the result
	// count or count_verification disagrees with the batch size.
	OutcomeCountMismatch
)

// ParseOutcome is the tagged result of parsing one tool invocation, so the
// orchestrator branches on an explicit variant instead of re-deriving
// intent from logs.
type ParseOutcome struct {
	Kind    OutcomeKind
	Results []model.EnrichmentResult
	// Raw is the original payload, retained for Malformed outcomes.
	Raw string
	// Expected and Actual are populated for CountMismatch outcomes.
	Expected int
	Actual   int
}

// wirePayload is the tool-argument shape the model is asked to produce.
type wirePayload struct {
	Results           []wireResult `json:"results"`
	CountVerification int          `json:"count_verification"`
}

type wireResult struct {
	ExternalID string      `json:"external_id"`
	URLSlug    string      `json:"urlSlug"`
	Aliases    []wireAlias `json:"aliases"`
	Tags       []string    `json:"tags"`
	Confidence float64     `json:"confidence"`
	Quality    float64     `json:"quality"`
	Difficulty float64     `json:"difficulty"`
	Time       float64     `json:"time"`
	Author     string      `json:"author"`
}

type wireAlias struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Parse attempts a strict JSON parse of one tool invocation's raw argument
// payload. If that fails and the stop reason indicates truncation, it trims
// to balanced delimiters and retries once before giving up.
func Parse(raw, stopReason string, expected int) ParseOutcome {
	cleaned := strings.TrimSpace(raw)

	var payload wirePayload
	err := json.Unmarshal([]byte(cleaned), &payload)
	if err != nil && anthropic.Truncated(stopReason) {
		repaired := repairTruncatedJSON(cleaned)
		if repairErr := json.Unmarshal([]byte(repaired), &payload); repairErr == nil {
			zap.L().Warn("enrich: recovered truncated tool payload",
				zap.Int("raw_len", len(raw)),
				zap.String("stop_reason", stopReason))
			cleaned = repaired
			err = nil
		}
	}
	if err != nil {
		return ParseOutcome{Kind: OutcomeMalformed, Raw: raw}
	}

	if !validatePayload(cleaned) {
		return ParseOutcome{Kind: OutcomeMalformed, Raw: raw}
	}

	results := make([]model.EnrichmentResult, 0, len(payload.Results))
	for _, wr := range payload.Results {
		results = append(results, fromWire(wr))
	}

	if len(results) != expected || payload.CountVerification != expected {
		return ParseOutcome{
			Kind:     OutcomeCountMismatch,
			Results:  results,
			Expected: expected,
			Actual:   len(results),
		}
	}

	return ParseOutcome{Kind: OutcomeOk, Results: results}
}

// validatePayload checks the parsed document against the relaxed schema.
// A payload that is valid JSON but the wrong shape counts as malformed.
func validatePayload(doc string) bool {
	schemaLoader := gojsonschema.NewGoLoader(ValidationSchema())
	docLoader := gojsonschema.NewStringLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		zap.L().Warn("enrich: schema validation error", zap.Error(err))
		return false
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			zap.L().Warn("enrich: payload violates schema", zap.String("violation", desc.String()))
		}
		return false
	}
	return true
}

// fromWire converts a wire result, deriving kebab-case alias ids where the
// model did not supply them.
func fromWire(wr wireResult) model.EnrichmentResult {
	aliases := make([]model.Alias, 0, len(wr.Aliases))
	for _, a := range wr.Aliases {
		id := a.ID
		if id == "" {
			id = model.Slugify(a.Name)
		}
		aliases = append(aliases, model.Alias{Name: a.Name, ID: id})
	}

	tags := wr.Tags
	if tags == nil {
		tags = []string{}
	}

	author := wr.Author
	if author == "" {
		author = model.DefaultAuthor
	}

	return model.EnrichmentResult{
		ExternalID: wr.ExternalID,
		URLSlug:    wr.URLSlug,
		Aliases:    aliases,
		Tags:       tags,
		Confidence: clamp01(wr.Confidence),
		Quality:    clamp01(wr.Quality),
		Difficulty: clamp01(wr.Difficulty),
		Time:       max(wr.Time, 0),
		Author:     author,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// repairTruncatedJSON closes any unclosed brackets or braces in truncated
// JSON, trimming a dangling partial value first.
func repairTruncatedJSON(text string) string {
	if len(text) == 0 {
		return text
	}

	// Track open delimiters in order.
	var stack []byte
	inString := false
	escape := false
	lastComplete := -1 // index after the last structurally complete value

	for i := 0; i < len(text); i++ {
		c := text[i]

		if escape {
			escape = false
			continue
		}

		if c == '\\' && inString {
			escape = true
			continue
		}

		if c == '"' {
			inString = !inString
			if !inString {
				lastComplete = i + 1
			}
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
			lastComplete = i + 1
		}
	}

	// An unterminated string means the payload ends mid-value; cut back to
	// the last complete token before closing delimiters.
	if inString && lastComplete >= 0 {
		return repairTruncatedJSON(text[:lastComplete])
	}

	for i := len(stack) - 1; i >= 0; i-- {
		// Trim trailing comma before closing (common in truncated arrays).
		text = strings.TrimRight(text, " \t\n\r,")
		text += string(stack[i])
	}

	return text
}
