package snapshot

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

func sampleItem() model.EnrichedItem {
	video := "https://cdn.example.com/burpee.mp4"
	return model.EnrichedItem{
		NormalizedItem: model.NormalizedItem{
			ExternalID:  "id-1",
			URLSlug:     "burpee",
			Name:        "Burpee",
			Description: "A full, six-count body builder",
			Text:        "Start standing, drop to a squat...",
			VideoURL:    &video,
			Categories:  "full-body",
			PostURL:     "https://f3nation.com/exicon/burpee",
		},
		Aliases:    []model.Alias{{Name: "Six Count Body Builder", ID: "six-count-body-builder"}},
		Tags:       []string{"full-body", "cardio"},
		Confidence: 0.95,
		Quality:    0.8,
		Difficulty: 0.5,
		Time:       2,
		Author:     "Slaughter",
	}
}

func TestWriteRoundTripsJSON(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "out.json"), filepath.Join(dir, "out.csv"))

	items := []model.EnrichedItem{sampleItem()}
	require.NoError(t, w.Write(items))

	got, err := ReadJSON(w.JSONPath)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, items[0], got[0])
}

func TestWriteOverwritesWhole(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "out.json"), filepath.Join(dir, "out.csv"))

	first := sampleItem()
	second := sampleItem()
	second.ExternalID = "id-2"
	second.Name = "Merkin"

	require.NoError(t, w.Write([]model.EnrichedItem{first}))
	require.NoError(t, w.Write([]model.EnrichedItem{first, second}))

	got, err := ReadJSON(w.JSONPath)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCSVColumnsAndQuoting(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "out.json"), filepath.Join(dir, "out.csv"))

	item := sampleItem()
	// A description containing the delimiter must survive a round trip.
	item.Description = "Squat, then jump"

	require.NoError(t, w.Write([]model.EnrichedItem{item}))

	f, err := os.Open(w.CSVPath)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Columns, records[0])

	row := records[1]
	require.Len(t, row, len(Columns))
	assert.Equal(t, "id-1", row[0])
	assert.Equal(t, "Squat, then jump", row[3])
	assert.Equal(t, "Six Count Body Builder", row[4])
	assert.Equal(t, "six-count-body-builder", row[5])
	assert.Equal(t, "full-body;cardio", row[6])
	assert.Equal(t, "0.95", row[7])
	assert.Equal(t, "Slaughter", row[9])
}

func TestRowNilVideoURL(t *testing.T) {
	item := sampleItem()
	item.VideoURL = nil

	row := Row(item)
	assert.Equal(t, "", row[12])
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")

	require.NoError(t, WriteXLSX(path, []model.EnrichedItem{sampleItem()}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDescribe(t *testing.T) {
	enriched := sampleItem()
	defaulted := model.Enrich(
		model.NormalizedItem{ExternalID: "id-2", URLSlug: "plank"},
		model.DefaultResult("id-2", "plank"),
	)

	got := Describe([]model.EnrichedItem{enriched, defaulted})
	assert.Equal(t, "2 items (1 defaulted)", got)
}
