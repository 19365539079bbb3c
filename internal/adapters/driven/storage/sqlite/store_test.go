package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "fragments.db"))
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func sampleFragments() []domain.Fragment {
	return []domain.Fragment{
		{
			ID:         "frag-1",
			Text:       "The first fragment of the handbook.",
			SourceName: "handbook.pdf",
			Location:   "1",
			ParentRef:  "ref-1",
			Metadata:   map[string]any{"section": "intro"},
		},
		{
			ID:         "frag-2",
			Text:       "The second fragment.",
			SourceName: "handbook.pdf",
			Location:   "2",
			ParentRef:  "ref-1",
		},
	}
}

func TestStoreFragmentRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFragments(ctx, sampleFragments()))

	got, err := store.GetFragment(ctx, "frag-1")
	require.NoError(t, err)

	assert.Equal(t, "frag-1", got.ID)
	assert.Equal(t, "The first fragment of the handbook.", got.Text)
	assert.Equal(t, "handbook.pdf", got.SourceName)
	assert.Equal(t, "1", got.Location)
	assert.Equal(t, "ref-1", got.ParentRef)
	assert.Equal(t, "intro", got.Metadata["section"])
}

func TestStoreFragmentNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetFragment(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrFragmentNotFound)
}

func TestStoreDefaultLocation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFragments(ctx, []domain.Fragment{
		{ID: "frag-x", Text: "no location recorded", SourceName: "doc.pdf"},
	}))

	got, err := store.GetFragment(ctx, "frag-x")
	require.NoError(t, err)
	assert.Equal(t, domain.LocationUnknown, got.Location)
}

func TestStoreSaveFragmentsUpserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFragments(ctx, sampleFragments()))

	updated := sampleFragments()
	updated[0].Text = "rewritten text"
	require.NoError(t, store.SaveFragments(ctx, updated))

	got, err := store.GetFragment(ctx, "frag-1")
	require.NoError(t, err)
	assert.Equal(t, "rewritten text", got.Text)

	count, err := store.FragmentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreReferenceRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ref := domain.DocumentRef{
		RefID:       "ref-1",
		Metadata:    map[string]any{"file_name": "handbook.pdf"},
		FragmentIDs: []string{"frag-1", "frag-2"},
	}
	require.NoError(t, store.SaveReference(ctx, ref))

	got, err := store.GetReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.RefID)
	assert.Equal(t, []string{"frag-1", "frag-2"}, got.FragmentIDs)
	assert.Equal(t, "handbook.pdf", got.Metadata["file_name"])
}

func TestStoreReferenceNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetReference(context.Background(), "no-such-ref")
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)
}

func TestStoreAllReferencesIterates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"ref-b", "ref-a", "ref-c"} {
		require.NoError(t, store.SaveReference(ctx, domain.DocumentRef{RefID: id}))
	}

	iter, err := store.AllReferences(ctx)
	require.NoError(t, err)
	defer iter.Close()

	var seen []string
	for {
		ref, err := iter.Next()
		require.NoError(t, err)
		if ref == nil {
			break
		}
		seen = append(seen, ref.RefID)
	}
	assert.ElementsMatch(t, []string{"ref-a", "ref-b", "ref-c"}, seen)

	// A fresh iterator starts over.
	again, err := store.AllReferences(ctx)
	require.NoError(t, err)
	defer again.Close()
	first, err := again.Next()
	require.NoError(t, err)
	assert.NotNil(t, first)
}

func TestStoreFragmentCountEmpty(t *testing.T) {
	store := setupTestStore(t)

	count, err := store.FragmentCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fragments.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveFragments(ctx, sampleFragments()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.FragmentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
