package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchPromptCategory(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{name: "nil metadata", metadata: nil, want: CategoryUncategorised},
		{name: "no category key", metadata: map[string]any{"topic": "history"}, want: CategoryUncategorised},
		{name: "empty category", metadata: map[string]any{"category": ""}, want: CategoryUncategorised},
		{name: "non-string category", metadata: map[string]any{"category": 7}, want: CategoryUncategorised},
		{name: "string category", metadata: map[string]any{"category": "doctrine"}, want: "doctrine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BatchPrompt{Prompt: "q", Metadata: tt.metadata}
			assert.Equal(t, tt.want, prompt.Category())
		})
	}
}

func TestBatchPromptJSONShape(t *testing.T) {
	input := `[
		{"prompt": "bare minimum"},
		{"id": "q-2", "prompt": "full", "k": 3, "response_mode": "tree_summarize",
		 "metadata": {"category": "history"}}
	]`

	var prompts []BatchPrompt
	require.NoError(t, json.Unmarshal([]byte(input), &prompts))
	require.Len(t, prompts, 2)

	assert.Empty(t, prompts[0].ID)
	assert.Equal(t, "bare minimum", prompts[0].Prompt)
	assert.Zero(t, prompts[0].TopK)

	assert.Equal(t, "q-2", prompts[1].ID)
	assert.Equal(t, 3, prompts[1].TopK)
	assert.Equal(t, ResponseModeTreeSummarize, prompts[1].Mode)
	assert.Equal(t, "history", prompts[1].Metadata["category"])
}

func TestQueryResultJSONAlwaysHasSources(t *testing.T) {
	record := QueryResult{
		PromptID: "prompt_1",
		Prompt:   "q",
		Status:   StatusSuccess,
		Sources:  []Citation{},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sources":[]`)
}
