package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Inch Worm", "inch-worm"},
		{"already kebab", "burpee", "burpee"},
		{"punctuation", "J-Lo (Modified)", "j-lo-modified"},
		{"multiple spaces", "Big  Boy   Situps", "big-boy-situps"},
		{"diacritics", "Créme Brûlée", "creme-brulee"},
		{"leading trailing junk", "  The Bear Crawl!  ", "the-bear-crawl"},
		{"digits", "21s", "21s"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestDefaultResult(t *testing.T) {
	r := DefaultResult("abc123", "inch-worm")

	assert.Equal(t, "abc123", r.ExternalID)
	assert.Equal(t, "inch-worm", r.URLSlug)
	assert.Empty(t, r.Aliases)
	assert.NotNil(t, r.Aliases)
	assert.Empty(t, r.Tags)
	assert.NotNil(t, r.Tags)
	assert.Zero(t, r.Confidence)
	assert.Zero(t, r.Quality)
	assert.Zero(t, r.Difficulty)
	assert.Equal(t, float64(1), r.Time)
	assert.Equal(t, "N/A", r.Author)
	assert.True(t, r.IsDefault())
}

func TestEnrichJoinsFields(t *testing.T) {
	item := NormalizedItem{
		ExternalID: "abc123",
		URLSlug:    "inch-worm",
		Name:       "Inch Worm",
	}
	r := EnrichmentResult{
		ExternalID: "abc123",
		Aliases:    []Alias{{Name: "Inchworm", ID: "inchworm"}},
		Tags:       []string{"core", "full-body"},
		Confidence: 0.9,
		Quality:    0.8,
		Difficulty: 0.3,
		Time:       2,
		Author:     "Slaughter",
	}

	e := Enrich(item, r)
	assert.Equal(t, "abc123", e.ExternalID)
	assert.Equal(t, "Inch Worm", e.Name)
	assert.Equal(t, []string{"core", "full-body"}, e.Tags)
	assert.Equal(t, 0.9, e.Confidence)
	assert.Equal(t, "Slaughter", e.Author)
	assert.False(t, EnrichmentResult{
		Aliases: r.Aliases, Tags: r.Tags, Confidence: r.Confidence,
		Quality: r.Quality, Difficulty: r.Difficulty, Time: r.Time, Author: r.Author,
	}.IsDefault())
}
