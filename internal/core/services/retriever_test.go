package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func TestRetrieverResolvesCandidatesInRankOrder(t *testing.T) {
	store := memory.NewFragmentStore()
	store.PutFragment(testFragment("frag-a", "alpha"))
	store.PutFragment(testFragment("frag-b", "beta"))
	store.PutFragment(testFragment("frag-c", "gamma"))

	index := &mockVectorIndex{
		dims: 3,
		ids:  []string{"frag-a", "frag-b", "frag-c"},
		candidates: []domain.Candidate{
			{FragmentID: "frag-b", Score: 0.9, Rank: 0},
			{FragmentID: "frag-a", Score: 0.7, Rank: 1},
			{FragmentID: "frag-c", Score: 0.2, Rank: 2},
		},
	}
	embedding := &mockEmbeddingService{embedding: []float32{1, 0, 0}}

	retriever := NewRetriever(store, index, embedding)
	retrieval, err := retriever.Retrieve(context.Background(), "what is beta?", 3)
	require.NoError(t, err)

	require.Len(t, retrieval.Fragments, 3)
	assert.Equal(t, "beta", retrieval.Fragments[0].Fragment.Text)
	assert.Equal(t, "alpha", retrieval.Fragments[1].Fragment.Text)
	assert.Equal(t, "gamma", retrieval.Fragments[2].Fragment.Text)
	assert.InDelta(t, 0.9, retrieval.Fragments[0].Score, 1e-9)
	assert.Zero(t, retrieval.Dropped)
}

func TestRetrieverDimensionMismatchIsFatal(t *testing.T) {
	store := memory.NewFragmentStore()
	index := &mockVectorIndex{dims: 384}
	embedding := &mockEmbeddingService{embedding: make([]float32, 768)}

	retriever := NewRetriever(store, index, embedding)
	_, err := retriever.Retrieve(context.Background(), "question", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "mock-embed")
}

func TestRetrieverDropsDanglingCandidates(t *testing.T) {
	store := memory.NewFragmentStore()
	store.PutFragment(testFragment("frag-a", "alpha"))

	// frag-missing is in the index but not the store.
	index := &mockVectorIndex{
		dims: 3,
		ids:  []string{"frag-a", "frag-missing"},
		candidates: []domain.Candidate{
			{FragmentID: "frag-a", Score: 0.8, Rank: 0},
			{FragmentID: "frag-missing", Score: 0.5, Rank: 1},
		},
	}
	embedding := &mockEmbeddingService{embedding: []float32{1, 0, 0}}

	retriever := NewRetriever(store, index, embedding)
	retrieval, err := retriever.Retrieve(context.Background(), "question", 2)

	require.NoError(t, err)
	require.Len(t, retrieval.Fragments, 1)
	assert.Equal(t, "alpha", retrieval.Fragments[0].Fragment.Text)
	assert.Equal(t, 1, retrieval.Dropped)
}

func TestRetrieverPropagatesEmbeddingFailure(t *testing.T) {
	store := memory.NewFragmentStore()
	index := &mockVectorIndex{dims: 3}
	embedding := &mockEmbeddingService{embedErr: assert.AnError}

	retriever := NewRetriever(store, index, embedding)
	_, err := retriever.Retrieve(context.Background(), "question", 5)

	assert.ErrorIs(t, err, assert.AnError)
}
