package domain

// ResponseMode selects the answer-synthesis strategy.
type ResponseMode string

// Available response modes.
const (
	// ResponseModeCompact concatenates ranked fragments into a single
	// context block and issues one generation call.
	ResponseModeCompact ResponseMode = "compact"

	// ResponseModeTreeSummarize summarises fragment groups independently,
	// then recursively summarises the summaries. More generation calls,
	// better coverage for large candidate sets.
	ResponseModeTreeSummarize ResponseMode = "tree_summarize"
)

// IsValid returns true if the response mode is recognised.
func (m ResponseMode) IsValid() bool {
	switch m {
	case ResponseModeCompact, ResponseModeTreeSummarize:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m ResponseMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m ResponseMode) Description() string {
	switch m {
	case ResponseModeCompact:
		return "Compact (single generation call over stuffed context)"
	case ResponseModeTreeSummarize:
		return "Tree Summarize (grouped summaries, recursively reduced)"
	default:
		return "Unknown"
	}
}

// DefaultTopK is the number of candidates retrieved when not overridden.
const DefaultTopK = 5

// QueryOptions configures a single retrieval-augmented query.
type QueryOptions struct {
	// TopK is the number of candidates to retrieve (default DefaultTopK).
	TopK int

	// Mode is the synthesis strategy (default ResponseModeCompact).
	Mode ResponseMode
}

// Normalised returns a copy with defaults applied.
func (o QueryOptions) Normalised() QueryOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if !o.Mode.IsValid() {
		o.Mode = ResponseModeCompact
	}
	return o
}

// WithDefaults returns a copy with unset fields filled from defaults,
// then package defaults for anything still unset. Callers layer
// configured defaults under explicit per-call overrides.
func (o QueryOptions) WithDefaults(defaults QueryOptions) QueryOptions {
	if o.TopK <= 0 {
		o.TopK = defaults.TopK
	}
	if !o.Mode.IsValid() {
		o.Mode = defaults.Mode
	}
	return o.Normalised()
}

// Answer is the single result variant for a completed query.
// Citations is always present but possibly empty, so call sites never
// probe for attribute presence.
type Answer struct {
	// Text is the synthesised answer.
	Text string `json:"text"`

	// Citations attribute the answer back to retrieved fragments,
	// in retrieval rank order.
	Citations []Citation `json:"citations"`

	// Dropped counts candidates whose fragments could not be resolved.
	// Non-zero values indicate a build-time inconsistency.
	Dropped int `json:"dropped,omitempty"`
}
