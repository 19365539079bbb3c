package domain

import "time"

// ChatRole identifies the author of a conversation turn.
type ChatRole string

// Conversation turn roles.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry in the conversation memory.
type ChatTurn struct {
	// Role is who produced the turn.
	Role ChatRole `json:"role"`

	// Content is the turn text.
	Content string `json:"content"`

	// Timestamp is when the turn was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// TokenCost is the abstract token size of a turn, used for the memory
// budget. Any consistent length proxy is acceptable as long as eviction
// stays deterministic; this one is ceil(len/4) with a floor of one.
func (t ChatTurn) TokenCost() int {
	n := (len(t.Content) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Transcript is a saved chat session.
type Transcript struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// StartedAt is when the session began.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the transcript was saved.
	EndedAt time.Time `json:"ended_at"`

	// Turns is the full ordered history, unbounded by the memory budget.
	Turns []ChatTurn `json:"turns"`
}
