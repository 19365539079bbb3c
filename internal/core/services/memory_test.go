package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func turnOfTokens(role domain.ChatRole, tokens int) domain.ChatTurn {
	// TokenCost is ceil(len/4), so 4 chars per token.
	return domain.ChatTurn{
		Role:    role,
		Content: strings.Repeat("x", tokens*4),
	}
}

func TestMemoryKeepsTurnsWithinBudget(t *testing.T) {
	mem := NewConversationMemory(100)

	mem.Append(turnOfTokens(domain.RoleUser, 30))
	mem.Append(turnOfTokens(domain.RoleAssistant, 30))

	assert.Equal(t, 2, mem.Len())
	assert.Equal(t, 60, mem.TokensUsed())
}

func TestMemoryEvictsOldestFirst(t *testing.T) {
	mem := NewConversationMemory(100)

	first := turnOfTokens(domain.RoleUser, 40)
	second := turnOfTokens(domain.RoleAssistant, 40)
	mem.Append(first)
	mem.Append(second)

	// 40 + 40 + 40 exceeds the budget; the oldest turn goes.
	third := turnOfTokens(domain.RoleUser, 40)
	mem.Append(third)

	turns := mem.AsContext()
	require.Len(t, turns, 2)
	assert.Equal(t, second.Content, turns[0].Content)
	assert.Equal(t, third.Content, turns[1].Content)
	assert.Equal(t, 80, mem.TokensUsed())
}

func TestMemoryRetainsOversizedNewestTurn(t *testing.T) {
	mem := NewConversationMemory(50)

	mem.Append(turnOfTokens(domain.RoleUser, 10))
	// A single turn larger than the whole budget evicts everything else
	// but is itself retained; memory never goes empty on append.
	big := turnOfTokens(domain.RoleAssistant, 200)
	mem.Append(big)

	turns := mem.AsContext()
	require.Len(t, turns, 1)
	assert.Equal(t, big.Content, turns[0].Content)
	assert.Equal(t, 200, mem.TokensUsed())
}

func TestMemoryAsContextReturnsCopy(t *testing.T) {
	mem := NewConversationMemory(100)
	mem.Append(turnOfTokens(domain.RoleUser, 10))

	turns := mem.AsContext()
	turns[0].Content = "mutated"

	assert.NotEqual(t, "mutated", mem.AsContext()[0].Content)
}

func TestMemoryDefaultBudget(t *testing.T) {
	mem := NewConversationMemory(0)

	// Fill past the default budget and confirm eviction engages.
	for i := 0; i < 20; i++ {
		mem.Append(turnOfTokens(domain.RoleUser, 200))
	}

	assert.LessOrEqual(t, mem.TokensUsed(), DefaultMemoryBudget)
}

func TestTokenCost(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "empty content still costs one", content: "", want: 1},
		{name: "short content rounds up", content: "abc", want: 1},
		{name: "exact multiple", content: "abcdefgh", want: 2},
		{name: "rounds up past multiple", content: "abcdefghi", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := domain.ChatTurn{Role: domain.RoleUser, Content: tt.content}
			assert.Equal(t, tt.want, turn.TokenCost())
		})
	}
}
