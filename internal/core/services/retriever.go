package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Retrieval is the outcome of one retrieval call.
type Retrieval struct {
	// Fragments are the resolved candidates in index rank order.
	Fragments []domain.RankedFragment

	// Dropped counts candidates whose fragment id could not be resolved
	// against the document store. Dangling references indicate a
	// build-time inconsistency and are reported, never hidden.
	Dropped int
}

// Retriever ranks corpus fragments against a query embedding.
// The index and store are opened read-only and shared across queries.
type Retriever struct {
	store     driven.FragmentStore
	index     driven.VectorIndex
	embedding driven.EmbeddingService
}

// NewRetriever creates a retriever over the given artifacts.
func NewRetriever(
	store driven.FragmentStore,
	index driven.VectorIndex,
	embedding driven.EmbeddingService,
) *Retriever {
	return &Retriever{
		store:     store,
		index:     index,
		embedding: embedding,
	}
}

// Retrieve embeds the query, searches the index and resolves candidates
// back to fragments. Result ordering is inherited from the index; the
// retriever never re-sorts, so rankings stay deterministic.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*Retrieval, error) {
	if r.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, k=%d", query, k)

	vector, err := r.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if len(vector) != r.index.Dimensions() {
		// Model/index version skew. Fatal, never retried.
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index expects %d (model %q)",
			domain.ErrDimensionMismatch, len(vector), r.index.Dimensions(), r.embedding.ModelName())
	}

	candidates, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	logger.Debug("Index returned %d candidates", len(candidates))

	result := &Retrieval{
		Fragments: make([]domain.RankedFragment, 0, len(candidates)),
	}

	for _, c := range candidates {
		fragment, err := r.store.GetFragment(ctx, c.FragmentID)
		if err != nil {
			if errors.Is(err, domain.ErrFragmentNotFound) {
				result.Dropped++
				logger.Warn("Dropping candidate %s (rank %d): fragment missing from store",
					c.FragmentID, c.Rank)
				continue
			}
			return nil, fmt.Errorf("resolve fragment %s: %w", c.FragmentID, err)
		}
		result.Fragments = append(result.Fragments, domain.RankedFragment{
			Fragment: *fragment,
			Score:    c.Score,
		})
	}

	if result.Dropped > 0 {
		logger.Error("Retrieval dropped %d of %d candidates: index and document store are inconsistent, consider rebuilding",
			result.Dropped, len(candidates))
	}
	logger.Debug("Resolved %d fragments", len(result.Fragments))

	return result, nil
}
