package services

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	candidates []domain.Candidate
	ids        []string
	dims       int
	searchErr  error
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]domain.Candidate, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k <= 0 {
		return nil, nil
	}
	if k > len(m.candidates) {
		k = len(m.candidates)
	}
	return m.candidates[:k], nil
}

func (m *mockVectorIndex) Dimensions() int {
	return m.dims
}

func (m *mockVectorIndex) Count() int {
	return len(m.ids)
}

func (m *mockVectorIndex) IDs() []string {
	return m.ids
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing. It records
// every call so tests can assert call counts and prompt content.
type mockLLMService struct {
	response    string
	generateErr error
	chatErr     error

	// chatFailOn limits chatErr to the nth Chat call (1-based).
	// Zero fails every call while chatErr is set.
	chatFailOn int

	generateCalls []string
	chatCalls     [][]driven.ChatMessage
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.generateCalls = append(m.generateCalls, prompt)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.response, nil
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.chatCalls = append(m.chatCalls, messages)
	if m.chatErr != nil && (m.chatFailOn == 0 || m.chatFailOn == len(m.chatCalls)) {
		return "", m.chatErr
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) calls() int {
	return len(m.generateCalls) + len(m.chatCalls)
}

// --- Test data helpers ---

func testFragment(id, text string) domain.Fragment {
	return domain.Fragment{
		ID:         id,
		Text:       text,
		SourceName: "handbook.pdf",
		Location:   "12",
		ParentRef:  "ref-1",
	}
}

func rankedFragments(texts ...string) []domain.RankedFragment {
	out := make([]domain.RankedFragment, len(texts))
	for i, text := range texts {
		out[i] = domain.RankedFragment{
			Fragment: testFragment("frag-"+text, text),
			Score:    1.0 - float64(i)*0.1,
		}
	}
	return out
}
