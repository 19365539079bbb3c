package domain

import "time"

// Batch result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BatchPrompt is one item of the batch input.
// Only Prompt is required; the rest have documented defaults.
type BatchPrompt struct {
	// ID identifies the prompt. When missing it is synthesised
	// deterministically from position as "prompt_<n>" (1-based).
	ID string `json:"id,omitempty"`

	// Prompt is the question text (required).
	Prompt string `json:"prompt"`

	// TopK overrides the retrieval depth (default DefaultTopK).
	TopK int `json:"k,omitempty"`

	// Mode overrides the synthesis strategy (default compact).
	Mode ResponseMode `json:"response_mode,omitempty"`

	// Metadata is caller-supplied passthrough. A "category" key, when
	// present, groups the final summary counts.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResult is the durable record written for each processed prompt.
// Records are appended once, in prompt order, and never mutated.
type QueryResult struct {
	PromptID string `json:"prompt_id"`
	Prompt   string `json:"prompt"`

	// Status is StatusSuccess or StatusError.
	Status string `json:"status"`

	// Response is the synthesised answer (success only).
	Response string `json:"response,omitempty"`

	// ErrorMessage describes the failure (error only).
	ErrorMessage string `json:"error_message,omitempty"`

	// Duration is how long the item took.
	Duration time.Duration `json:"duration_ns"`

	// DurationSeconds mirrors Duration for human consumers of the log.
	DurationSeconds float64 `json:"duration_seconds"`

	Timestamp time.Time `json:"timestamp"`

	// TopK and Mode record the effective per-item settings.
	TopK int          `json:"k"`
	Mode ResponseMode `json:"response_mode"`

	// Sources cites the fragments behind the answer, in rank order.
	// Always present, possibly empty.
	Sources []Citation `json:"sources"`

	// InputMetadata is the caller-supplied passthrough.
	InputMetadata map[string]any `json:"input_metadata,omitempty"`
}

// BatchSummary aggregates a completed run.
type BatchSummary struct {
	// Total is the number of processed prompts.
	Total int `json:"total"`

	// Succeeded and Failed count records by status.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// ByCategory counts records by the caller-supplied "category"
	// metadata tag. Prompts without a category are keyed "uncategorised".
	ByCategory map[string]int `json:"by_category"`
}

// CategoryUncategorised keys summary counts for prompts without a category tag.
const CategoryUncategorised = "uncategorised"

// Category extracts the summary grouping tag from a prompt's metadata.
func (p BatchPrompt) Category() string {
	if v, ok := p.Metadata["category"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return CategoryUncategorised
}
