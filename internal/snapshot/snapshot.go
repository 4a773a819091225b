// Package snapshot persists the progressive JSON/CSV snapshot of enriched
// items, overwritten after every batch, plus an XLSX export for operators.
package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

// Columns is the fixed CSV column order.
var Columns = []string{
	"external_id",
	"name",
	"categories",
	"description",
	"aliases",
	"alias_ids",
	"tags",
	"confidence",
	"quality",
	"author",
	"difficulty",
	"text",
	"video_url",
	"urlSlug",
	"postURL",
}

// Writer writes the snapshot pair. Both files are rewritten whole on every
// call so their contents always reflect the full accumulator.
type Writer struct {
	JSONPath string
	CSVPath  string
}

// NewWriter returns a Writer targeting the given paths.
func NewWriter(jsonPath, csvPath string) *Writer {
	return &Writer{JSONPath: jsonPath, CSVPath: csvPath}
}

// Write overwrites both snapshot files with the full item set.
func (w *Writer) Write(items []model.EnrichedItem) error {
	if err := writeJSON(w.JSONPath, items); err != nil {
		return err
	}
	return writeCSV(w.CSVPath, items)
}

func writeJSON(path string, items []model.EnrichedItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return eris.Wrap(err, "snapshot: marshal items")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "snapshot: write %s", path)
	}
	return nil
}

func writeCSV(path string, items []model.EnrichedItem) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "snapshot: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(Columns); err != nil {
		return eris.Wrap(err, "snapshot: write header")
	}
	for _, item := range items {
		if err := w.Write(Row(item)); err != nil {
			return eris.Wrapf(err, "snapshot: write row %s", item.ExternalID)
		}
	}
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "snapshot: flush csv")
	}
	return nil
}

// Row maps one enriched item to the fixed column order.
func Row(item model.EnrichedItem) []string {
	names := make([]string, len(item.Aliases))
	ids := make([]string, len(item.Aliases))
	for i, a := range item.Aliases {
		names[i] = a.Name
		ids[i] = a.ID
	}

	return []string{
		item.ExternalID,
		item.Name,
		item.Categories,
		item.Description,
		strings.Join(names, ";"),
		strings.Join(ids, ";"),
		strings.Join(item.Tags, ";"),
		formatScore(item.Confidence),
		formatScore(item.Quality),
		item.Author,
		formatScore(item.Difficulty),
		item.Text,
		derefOr(item.VideoURL, ""),
		item.URLSlug,
		item.PostURL,
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// ReadJSON loads a previously written JSON snapshot.
func ReadJSON(path string) ([]model.EnrichedItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read %s", path)
	}
	var items []model.EnrichedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrapf(err, "snapshot: decode %s", path)
	}
	return items, nil
}

// WriteXLSX exports items as a single-sheet workbook with the same column
// order as the CSV snapshot.
func WriteXLSX(path string, items []model.EnrichedItem) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("exercises")
	if err != nil {
		return eris.Wrap(err, "snapshot: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}
	for _, item := range items {
		row := sheet.AddRow()
		for _, v := range Row(item) {
			row.AddCell().SetString(v)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "snapshot: save %s", path)
	}
	return nil
}

// Describe returns a short human line for status output.
func Describe(items []model.EnrichedItem) string {
	defaulted := 0
	for _, item := range items {
		if item.Author == model.DefaultAuthor && len(item.Tags) == 0 {
			defaulted++
		}
	}
	return fmt.Sprintf("%d items (%d defaulted)", len(items), defaulted)
}
