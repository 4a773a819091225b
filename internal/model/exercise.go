// Package model holds the domain types shared across the enrichment pipeline.
package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// RawListEntry is a single item from the content API list endpoint.
type RawListEntry struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	URLSlug     string   `json:"urlSlug"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	PublishedAt string   `json:"publishedAt"`
}

// RawDetail is the per-slug detail payload for a list entry.
type RawDetail struct {
	ID          string     `json:"_id"`
	RawHTML     string     `json:"rawHTML"`
	Categories  []Category `json:"categories"`
	ImageURL    string     `json:"imageUrl"`
	PublishedAt string     `json:"publishedAt"`
}

// Category is a category object attached to a detail payload.
type Category struct {
	Label   string `json:"label"`
	URLSlug string `json:"urlSlug"`
}

// NormalizedItem is the flat record derived from a list entry and its detail.
type NormalizedItem struct {
	ExternalID  string  `json:"external_id" bson:"external_id"`
	URLSlug     string  `json:"urlSlug" bson:"urlSlug"`
	Name        string  `json:"name" bson:"name"`
	Description string  `json:"description" bson:"description"`
	Text        string  `json:"text" bson:"text"`
	VideoURL    *string `json:"video_url" bson:"video_url"`
	ImageURL    *string `json:"image_url" bson:"image_url"`
	Categories  string  `json:"categories" bson:"categories"`
	PostURL     string  `json:"postURL" bson:"postURL"`
}

// Alias is an alternate name for an exercise. ID is the kebab-case form of
// Name when the model does not supply one.
type Alias struct {
	Name string `json:"name" bson:"name"`
	ID   string `json:"id" bson:"id"`
}

// EnrichmentResult is the structured metadata produced for one item.
type EnrichmentResult struct {
	ExternalID string   `json:"external_id"`
	URLSlug    string   `json:"urlSlug"`
	Aliases    []Alias  `json:"aliases"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Quality    float64  `json:"quality"`
	Difficulty float64  `json:"difficulty"`
	Time       float64  `json:"time"`
	Author     string   `json:"author"`
}

// DefaultAuthor is the sentinel author used when no model output exists.
const DefaultAuthor = "N/A"

// DefaultResult returns the sentinel-default enrichment for an item the
// model returned nothing usable for.
func DefaultResult(externalID, urlSlug string) EnrichmentResult {
	return EnrichmentResult{
		ExternalID: externalID,
		URLSlug:    urlSlug,
		Aliases:    []Alias{},
		Tags:       []string{},
		Confidence: 0,
		Quality:    0,
		Difficulty: 0,
		Time:       1,
		Author:     DefaultAuthor,
	}
}

// IsDefault reports whether r equals the sentinel defaults for its id.
func (r EnrichmentResult) IsDefault() bool {
	return len(r.Aliases) == 0 && len(r.Tags) == 0 &&
		r.Confidence == 0 && r.Quality == 0 && r.Difficulty == 0 &&
		r.Time == 1 && r.Author == DefaultAuthor
}

// EnrichedItem joins a normalized item with its enrichment, keyed by
// external_id. This is the document shape persisted to the store.
type EnrichedItem struct {
	NormalizedItem `bson:",inline"`

	Aliases    []Alias  `json:"aliases" bson:"aliases"`
	Tags       []string `json:"tags" bson:"tags"`
	Confidence float64  `json:"confidence" bson:"confidence"`
	Quality    float64  `json:"quality" bson:"quality"`
	Difficulty float64  `json:"difficulty" bson:"difficulty"`
	Time       float64  `json:"time" bson:"time"`
	Author     string   `json:"author" bson:"author"`
}

// Enrich combines a normalized item with its enrichment result.
func Enrich(item NormalizedItem, r EnrichmentResult) EnrichedItem {
	return EnrichedItem{
		NormalizedItem: item,
		Aliases:        r.Aliases,
		Tags:           r.Tags,
		Confidence:     r.Confidence,
		Quality:        r.Quality,
		Difficulty:     r.Difficulty,
		Time:           r.Time,
		Author:         r.Author,
	}
}

// Slugify converts a display name to its kebab-case identifier: lowercase,
// diacritics folded, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) string {
	decomposed := norm.NFD.String(name)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastHyphen := true // suppress leading hyphen
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition; drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
