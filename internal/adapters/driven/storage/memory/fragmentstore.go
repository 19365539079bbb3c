// Package memory provides in-memory store implementations used by
// tests and ephemeral tooling.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure FragmentStore implements the interface.
var _ driven.FragmentStore = (*FragmentStore)(nil)

// FragmentStore is an in-memory implementation of driven.FragmentStore.
type FragmentStore struct {
	mu        sync.RWMutex
	fragments map[string]domain.Fragment
	refs      map[string]domain.DocumentRef
}

// NewFragmentStore creates an empty in-memory fragment store.
func NewFragmentStore() *FragmentStore {
	return &FragmentStore{
		fragments: make(map[string]domain.Fragment),
		refs:      make(map[string]domain.DocumentRef),
	}
}

// PutFragment stores a fragment.
func (s *FragmentStore) PutFragment(fragment domain.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[fragment.ID] = fragment
}

// PutReference stores a document reference.
func (s *FragmentStore) PutReference(ref domain.DocumentRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref.RefID] = ref
}

// GetFragment retrieves a fragment by id.
func (s *FragmentStore) GetFragment(_ context.Context, id string) (*domain.Fragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragment, ok := s.fragments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFragmentNotFound, id)
	}
	return &fragment, nil
}

// GetReference retrieves a document reference by id.
func (s *FragmentStore) GetReference(_ context.Context, refID string) (*domain.DocumentRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.refs[refID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, refID)
	}
	return &ref, nil
}

// AllReferences iterates references in sorted id order for determinism.
func (s *FragmentStore) AllReferences(_ context.Context) (driven.ReferenceIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.refs))
	for id := range s.refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	refs := make([]domain.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.refs[id])
	}
	return &sliceIterator{refs: refs}, nil
}

// FragmentCount returns the number of stored fragments.
func (s *FragmentStore) FragmentCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fragments), nil
}

// Close releases resources.
func (s *FragmentStore) Close() error {
	return nil
}

// sliceIterator walks a snapshot of references.
type sliceIterator struct {
	refs []domain.DocumentRef
	next int
}

// Next returns the next reference, or (nil, nil) when exhausted.
func (it *sliceIterator) Next() (*domain.DocumentRef, error) {
	if it.next >= len(it.refs) {
		return nil, nil
	}
	ref := it.refs[it.next]
	it.next++
	return &ref, nil
}

// Close releases the iterator.
func (it *sliceIterator) Close() error {
	return nil
}
