package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

func TestNormalize(t *testing.T) {
	entry := model.RawListEntry{
		ID:          "ex1",
		Title:       "Inch Worm",
		URLSlug:     "inch-worm",
		Description: "A classic warmup.",
	}
	detail := model.RawDetail{
		ID:      "ex1",
		RawHTML: `<p>Walk your hands out &amp; back.</p><video src="https://cdn.example.com/inch-worm.mp4"></video>`,
		Categories: []model.Category{
			{Label: "Warm Up"},
			{Label: "Full Body"},
		},
		ImageURL: "https://cdn.example.com/inch-worm.jpg",
	}

	item, err := Normalize(entry, detail)
	require.NoError(t, err)

	assert.Equal(t, "ex1", item.ExternalID)
	assert.Equal(t, "inch-worm", item.URLSlug)
	assert.Equal(t, "Inch Worm", item.Name)
	assert.Equal(t, "A classic warmup.", item.Description)
	assert.Equal(t, "Walk your hands out & back.", item.Text)
	require.NotNil(t, item.VideoURL)
	assert.Equal(t, "https://cdn.example.com/inch-worm.mp4", *item.VideoURL)
	require.NotNil(t, item.ImageURL)
	assert.Equal(t, "https://cdn.example.com/inch-worm.jpg", *item.ImageURL)
	assert.Equal(t, "warm-up,full-body", item.Categories)
}

func TestNormalizeNoVideoNoImage(t *testing.T) {
	item, err := Normalize(
		model.RawListEntry{ID: "ex2", Title: "Burpee", URLSlug: "burpee"},
		model.RawDetail{RawHTML: "<p>Down, up, jump.</p>"},
	)
	require.NoError(t, err)
	assert.Nil(t, item.VideoURL)
	assert.Nil(t, item.ImageURL)
	assert.Empty(t, item.Categories)
}

func TestNormalizeFirstVideoWins(t *testing.T) {
	item, err := Normalize(
		model.RawListEntry{ID: "ex3", Title: "Merkin", URLSlug: "merkin"},
		model.RawDetail{RawHTML: `<video src="first.mp4"></video><video src="second.mp4"></video>`},
	)
	require.NoError(t, err)
	require.NotNil(t, item.VideoURL)
	assert.Equal(t, "first.mp4", *item.VideoURL)
}

func TestNormalizeAllDropsDuplicateNames(t *testing.T) {
	entries := []model.RawListEntry{
		{ID: "a", Title: "Inch Worm", URLSlug: "inch-worm"},
		{ID: "b", Title: "inch worm", URLSlug: "inch-worm-2"},
		{ID: "c", Title: "Burpee", URLSlug: "burpee"},
	}
	details := map[string]model.RawDetail{
		"inch-worm":   {RawHTML: "<p>one</p>"},
		"inch-worm-2": {RawHTML: "<p>two</p>"},
		"burpee":      {RawHTML: "<p>three</p>"},
	}

	items, err := NormalizeAll(entries, details)
	require.NoError(t, err)

	// First occurrence wins, case-insensitively.
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ExternalID)
	assert.Equal(t, "c", items[1].ExternalID)
}

func TestNormalizeAllSkipsMissingDetails(t *testing.T) {
	entries := []model.RawListEntry{
		{ID: "a", Title: "Inch Worm", URLSlug: "inch-worm"},
		{ID: "b", Title: "Burpee", URLSlug: "burpee"},
	}
	details := map[string]model.RawDetail{
		"burpee": {RawHTML: "<p>ok</p>"},
	}

	items, err := NormalizeAll(entries, details)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ExternalID)
}
