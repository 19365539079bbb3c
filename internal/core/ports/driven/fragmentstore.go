package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// FragmentStore is the read path over the persisted document-store
// artifact. It is the ground truth for what was ingested; fragments and
// references are immutable after ingestion and safe for concurrent readers.
type FragmentStore interface {
	// GetFragment retrieves a fragment by id.
	// Returns domain.ErrFragmentNotFound if the id is absent.
	GetFragment(ctx context.Context, id string) (*domain.Fragment, error)

	// GetReference retrieves a document reference by id.
	// Returns domain.ErrReferenceNotFound if the id is absent.
	GetReference(ctx context.Context, refID string) (*domain.DocumentRef, error)

	// AllReferences iterates every document reference. The sequence is
	// finite and restartable: each call starts a fresh pass.
	AllReferences(ctx context.Context) (ReferenceIterator, error)

	// FragmentCount returns the number of stored fragments.
	FragmentCount(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// ReferenceIterator walks document references one at a time.
type ReferenceIterator interface {
	// Next returns the next reference, or (nil, nil) when exhausted.
	Next() (*domain.DocumentRef, error)

	// Close releases the iterator.
	Close() error
}
