package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
	"results": [
		{"external_id": "id-a", "urlSlug": "inch-worm", "aliases": [{"name": "Inchworm", "id": "inchworm"}], "tags": ["core"], "confidence": 0.9, "quality": 0.8, "difficulty": 0.3, "time": 2, "author": "Slaughter"},
		{"external_id": "id-b", "urlSlug": "burpee", "aliases": [], "tags": ["cardio", "full-body"], "confidence": 0.7, "quality": 0.6, "difficulty": 0.8, "time": 1, "author": "N/A"}
	],
	"count_verification": 2
}`

func TestParseOk(t *testing.T) {
	outcome := Parse(validPayload, "tool_use", 2)

	require.Equal(t, OutcomeOk, outcome.Kind)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "id-a", outcome.Results[0].ExternalID)
	assert.Equal(t, []string{"cardio", "full-body"}, outcome.Results[1].Tags)
}

func TestParseDerivesAliasIDs(t *testing.T) {
	payload := `{
		"results": [
			{"external_id": "id-a", "aliases": [{"name": "Inch Worm"}], "tags": [], "confidence": 0.5, "quality": 0.5, "difficulty": 0.5, "time": 1, "author": "N/A"}
		],
		"count_verification": 1
	}`

	outcome := Parse(payload, "tool_use", 1)
	require.Equal(t, OutcomeOk, outcome.Kind)
	require.Len(t, outcome.Results[0].Aliases, 1)
	assert.Equal(t, "inch-worm", outcome.Results[0].Aliases[0].ID)
}

func TestParseCountMismatch(t *testing.T) {
	outcome := Parse(validPayload, "tool_use", 3)

	require.Equal(t, OutcomeCountMismatch, outcome.Kind)
	assert.Equal(t, 3, outcome.Expected)
	assert.Equal(t, 2, outcome.Actual)
	// Partial results are still usable; reconciliation backfills the rest.
	require.Len(t, outcome.Results, 2)
}

func TestParseCountVerificationDisagrees(t *testing.T) {
	payload := `{
		"results": [
			{"external_id": "id-a", "aliases": [], "tags": [], "confidence": 0, "quality": 0, "difficulty": 0, "time": 1, "author": "N/A"}
		],
		"count_verification": 5
	}`

	outcome := Parse(payload, "tool_use", 1)
	assert.Equal(t, OutcomeCountMismatch, outcome.Kind)
}

func TestParseGarbageIsMalformed(t *testing.T) {
	outcome := Parse("I could not process this batch.", "end_turn", 2)

	assert.Equal(t, OutcomeMalformed, outcome.Kind)
	assert.Empty(t, outcome.Results)
}

func TestParseWrongShapeIsMalformed(t *testing.T) {
	// Valid JSON, but results is not an array of result objects.
	outcome := Parse(`{"results": "nope"}`, "tool_use", 1)

	assert.Equal(t, OutcomeMalformed, outcome.Kind)
}

func TestParseTruncatedRepaired(t *testing.T) {
	// Cut off mid-array after one complete result, as a max_tokens stop does.
	truncated := `{"results": [
		{"external_id": "id-a", "aliases": [], "tags": ["core"], "confidence": 0.9, "quality": 0.8, "difficulty": 0.3, "time": 2, "author": "N/A"},
		{"external_id": "id-b", "aliases": [], "ta`

	outcome := Parse(truncated, "max_tokens", 3)

	require.Equal(t, OutcomeCountMismatch, outcome.Kind)
	require.NotEmpty(t, outcome.Results)
	assert.Equal(t, "id-a", outcome.Results[0].ExternalID)
}

func TestParseTruncationNotRepairedOnCleanStop(t *testing.T) {
	// Same broken payload, but the stop reason does not indicate
	// truncation, so no repair is attempted.
	truncated := `{"results": [{"external_id": "id-a", "aliases": [], "ta`

	outcome := Parse(truncated, "end_turn", 1)
	assert.Equal(t, OutcomeMalformed, outcome.Kind)
}

func TestParseClampsScores(t *testing.T) {
	// Out-of-range numbers are clamped, not rejected.
	payload := `{
		"results": [
			{"external_id": "id-a", "aliases": [], "tags": [], "confidence": 1.5, "quality": -0.2, "difficulty": 0.3, "time": -4, "author": "N/A"}
		],
		"count_verification": 1
	}`

	outcome := Parse(payload, "tool_use", 1)
	require.Equal(t, OutcomeOk, outcome.Kind)
	r := outcome.Results[0]
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, 0.0, r.Quality)
	assert.Equal(t, 0.3, r.Difficulty)
	assert.Equal(t, 0.0, r.Time)
}

func TestRepairTruncatedJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already balanced", `{"a": 1}`, `{"a": 1}`},
		{"unclosed object", `{"a": 1`, `{"a": 1}`},
		{"unclosed nested", `{"a": [1, 2`, `{"a": [1, 2]}`},
		{"trailing comma", `{"a": [1, 2,`, `{"a": [1, 2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairTruncatedJSON(tt.in))
		})
	}
}
