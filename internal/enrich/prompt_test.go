package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/model"
)

func promptBatch() []model.NormalizedItem {
	return []model.NormalizedItem{
		{ExternalID: "id-a", URLSlug: "inch-worm", Name: "Inch Worm", Text: "Walk hands out."},
		{ExternalID: "id-b", URLSlug: "burpee", Name: "Burpee", Text: "Down, up, jump."},
		{ExternalID: "id-c", URLSlug: "merkin", Name: "Merkin", Text: "A pushup."},
	}
}

func TestBuildRequestEnumeratesIDs(t *testing.T) {
	req := BuildRequest(promptBatch(), "claude-sonnet-4-5-20250929", 4096)

	require.Len(t, req.Messages, 1)
	prompt := req.Messages[0].Content
	for _, id := range []string{"id-a", "id-b", "id-c"} {
		assert.Contains(t, prompt, id)
	}
	assert.Contains(t, prompt, "Inch Worm")
	assert.Contains(t, prompt, "Set count_verification to 3.")
	assert.True(t, strings.Contains(req.System, "Never omit an id"), "system prompt must forbid omissions")
}

func TestBuildRequestForcesTool(t *testing.T) {
	req := BuildRequest(promptBatch(), "claude-sonnet-4-5-20250929", 4096)

	require.Len(t, req.Tools, 1)
	assert.Equal(t, ToolName, req.Tools[0].Name)
	assert.Equal(t, ToolName, req.ToolChoice)
	assert.ElementsMatch(t, []string{"results", "count_verification"}, req.Tools[0].Required)
}

func TestToolSchemaPinsCardinality(t *testing.T) {
	schema := ToolSchema(3)

	results, ok := schema["results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, results["minItems"])
	assert.Equal(t, 3, results["maxItems"])

	count, ok := schema["count_verification"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, count["const"])
}

func TestValidationSchemaIsRelaxed(t *testing.T) {
	schema := ValidationSchema()

	props := schema["properties"].(map[string]any)
	results := props["results"].(map[string]any)
	_, hasMin := results["minItems"]
	_, hasMax := results["maxItems"]
	assert.False(t, hasMin)
	assert.False(t, hasMax)
}
