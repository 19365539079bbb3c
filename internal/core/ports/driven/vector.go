package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// VectorIndex answers nearest-neighbour queries over the persisted
// embedding-index artifact. The index is built offline and read-only at
// query time; there is no partial-update API (rebuild-on-change).
type VectorIndex interface {
	// Search returns exactly min(k, Count()) candidates ordered by
	// similarity descending, ties broken by insertion order so results
	// are deterministic. k <= 0 yields an empty result, not an error.
	Search(ctx context.Context, query []float32, k int) ([]domain.Candidate, error)

	// Dimensions returns the fixed vector dimension of this index.
	Dimensions() int

	// Count returns the number of embedding records.
	Count() int

	// IDs returns every embedding record id in insertion order.
	// Used by consistency verification.
	IDs() []string

	// Close releases resources.
	Close() error
}
