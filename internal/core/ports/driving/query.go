package driving

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// QueryService answers a single question against the ingested corpus.
type QueryService interface {
	// Query retrieves, synthesises and cites an answer.
	Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)
}

// ChatService answers questions in a multi-turn session with memory.
type ChatService interface {
	// Chat answers one turn, consulting prior conversation context.
	Chat(ctx context.Context, message string, opts domain.QueryOptions) (*domain.Answer, error)

	// Transcript returns the full session history for persistence.
	Transcript() domain.Transcript
}
