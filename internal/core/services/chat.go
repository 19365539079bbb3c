package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

// Ensure ChatSession implements the interface.
var _ driving.ChatService = (*ChatSession)(nil)

// ChatSession answers questions in a multi-turn conversation.
// Conversation memory feeds synthesis; the transcript keeps the full
// unbounded history for optional persistence. Sessions live only for
// the process lifetime unless the transcript is explicitly saved.
type ChatSession struct {
	queries   *QueryService
	memory    *ConversationMemory
	sessionID string
	startedAt time.Time
	history   []domain.ChatTurn
}

// NewChatSession starts a session with the given memory token budget.
func NewChatSession(queries *QueryService, memoryBudget int) *ChatSession {
	return &ChatSession{
		queries:   queries,
		memory:    NewConversationMemory(memoryBudget),
		sessionID: uuid.NewString(),
		startedAt: time.Now().UTC(),
	}
}

// Chat answers one turn. Failed turns are reported to the caller and do
// not end the session; only successful exchanges enter the memory.
func (s *ChatSession) Chat(
	ctx context.Context, message string, opts domain.QueryOptions,
) (*domain.Answer, error) {
	answer, err := s.queries.query(ctx, message, opts, s.memory.AsContext())
	if err != nil {
		return nil, err
	}

	userTurn := domain.ChatTurn{
		Role:      domain.RoleUser,
		Content:   message,
		Timestamp: time.Now().UTC(),
	}
	assistantTurn := domain.ChatTurn{
		Role:      domain.RoleAssistant,
		Content:   answer.Text,
		Timestamp: time.Now().UTC(),
	}

	s.memory.Append(userTurn)
	s.memory.Append(assistantTurn)
	s.history = append(s.history, userTurn, assistantTurn)

	return answer, nil
}

// Transcript returns the full session history for persistence.
func (s *ChatSession) Transcript() domain.Transcript {
	turns := make([]domain.ChatTurn, len(s.history))
	copy(turns, s.history)
	return domain.Transcript{
		SessionID: s.sessionID,
		StartedAt: s.startedAt,
		EndedAt:   time.Now().UTC(),
		Turns:     turns,
	}
}

// SessionID returns the session identifier.
func (s *ChatSession) SessionID() string {
	return s.sessionID
}

// TokensInMemory reports the token cost of the current memory window.
func (s *ChatSession) TokensInMemory() int {
	return s.memory.TokensUsed()
}
