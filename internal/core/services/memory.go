package services

import (
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// DefaultMemoryBudget is the conversation memory token budget.
const DefaultMemoryBudget = 3000

// ConversationMemory is a bounded, ordered buffer of chat turns.
// The bound is a token budget, not a turn count: when appending would
// exceed it, the oldest turns are evicted first until the budget is
// satisfied. The newest turn is always retained, even when it alone
// exceeds the budget, so a single oversized turn is never dropped.
//
// Memory is consumed by one session at a time; it is not safe for
// concurrent use.
type ConversationMemory struct {
	budget int
	used   int
	turns  []domain.ChatTurn
}

// NewConversationMemory creates a memory with the given token budget.
// A non-positive budget takes DefaultMemoryBudget.
func NewConversationMemory(budget int) *ConversationMemory {
	if budget <= 0 {
		budget = DefaultMemoryBudget
	}
	return &ConversationMemory{budget: budget}
}

// Append records a turn, evicting oldest turns first as needed.
func (m *ConversationMemory) Append(turn domain.ChatTurn) {
	cost := turn.TokenCost()

	for len(m.turns) > 0 && m.used+cost > m.budget {
		evicted := m.turns[0]
		m.turns = m.turns[1:]
		m.used -= evicted.TokenCost()
		logger.Debug("Memory evicted %s turn (%d tokens)", evicted.Role, evicted.TokenCost())
	}

	m.turns = append(m.turns, turn)
	m.used += cost
}

// AsContext returns the retained turns in order, oldest first.
// The returned slice is a copy; mutating it does not affect the buffer.
func (m *ConversationMemory) AsContext() []domain.ChatTurn {
	out := make([]domain.ChatTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

// TokensUsed reports the current budget consumption.
func (m *ConversationMemory) TokensUsed() int {
	return m.used
}

// Len reports the number of retained turns.
func (m *ConversationMemory) Len() int {
	return len(m.turns)
}
