package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

// postBaseURL is the canonical public location of a lexicon post.
const postBaseURL = "https://f3nation.com/exicon/"

// Normalize derives the flat pipeline record from a list entry and its
// detail payload. Deterministic: same inputs always produce the same item.
func Normalize(entry model.RawListEntry, detail model.RawDetail) (model.NormalizedItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detail.RawHTML))
	if err != nil {
		return model.NormalizedItem{}, eris.Wrapf(err, "content: parse HTML for %s", entry.URLSlug)
	}

	var videoURL *string
	if src, ok := doc.Find("video").First().Attr("src"); ok && src != "" {
		videoURL = &src
	}

	var imageURL *string
	if detail.ImageURL != "" {
		imageURL = &detail.ImageURL
	}

	labels := make([]string, 0, len(detail.Categories))
	for _, cat := range detail.Categories {
		labels = append(labels, strings.ReplaceAll(strings.ToLower(cat.Label), " ", "-"))
	}

	return model.NormalizedItem{
		ExternalID:  entry.ID,
		URLSlug:     entry.URLSlug,
		Name:        strings.TrimSpace(entry.Title),
		Description: strings.TrimSpace(entry.Description),
		Text:        collapseWhitespace(doc.Text()),
		VideoURL:    videoURL,
		ImageURL:    imageURL,
		Categories:  strings.Join(labels, ","),
		PostURL:     postBaseURL + entry.URLSlug,
	}, nil
}

// NormalizeAll normalizes every (entry, detail) pair and drops duplicate
// names across the run, case-insensitively, first occurrence winning.
func NormalizeAll(entries []model.RawListEntry, details map[string]model.RawDetail) ([]model.NormalizedItem, error) {
	seen := make(map[string]string, len(entries))
	items := make([]model.NormalizedItem, 0, len(entries))

	for _, entry := range entries {
		detail, ok := details[entry.URLSlug]
		if !ok {
			continue // detail fetch failed earlier; already logged
		}

		item, err := Normalize(entry, detail)
		if err != nil {
			return nil, err
		}

		nameKey := strings.ToLower(item.Name)
		if firstID, dup := seen[nameKey]; dup {
			zap.L().Info("content: dropping duplicate name",
				zap.String("name", item.Name),
				zap.String("external_id", item.ExternalID),
				zap.String("kept_external_id", firstID))
			continue
		}
		seen[nameKey] = item.ExternalID
		items = append(items, item)
	}

	return items, nil
}

// collapseWhitespace normalizes all whitespace runs to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
