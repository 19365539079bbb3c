package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

// consistentFixture builds a store and index that agree with each other.
func consistentFixture() (*memory.FragmentStore, *mockVectorIndex) {
	store := memory.NewFragmentStore()
	store.PutFragment(testFragment("frag-a", "alpha"))
	store.PutFragment(testFragment("frag-b", "beta"))
	store.PutReference(domain.DocumentRef{
		RefID:       "ref-1",
		FragmentIDs: []string{"frag-a", "frag-b"},
	})

	index := &mockVectorIndex{
		dims: 3,
		ids:  []string{"frag-a", "frag-b"},
	}
	return store, index
}

func checkByName(t *testing.T, results []driving.CheckResult, name string) driving.CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no check named %q", name)
	return driving.CheckResult{}
}

func TestVerifyAllChecksPass(t *testing.T) {
	store, index := consistentFixture()

	dir := t.TempDir()
	artifact := filepath.Join(dir, "vectors.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("payload"), 0600))

	verifier := NewVerifier(store, index, []string{artifact})
	results, err := verifier.Verify(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.Passed, "check %q failed: %s", r.Name, r.Detail)
	}
}

func TestVerifyReportsMissingArtifact(t *testing.T) {
	store, index := consistentFixture()

	missing := filepath.Join(t.TempDir(), "vectors.bin")
	verifier := NewVerifier(store, index, []string{missing})
	results, err := verifier.Verify(context.Background())
	require.NoError(t, err)

	check := checkByName(t, results, "storage artifacts")
	assert.False(t, check.Passed)
	assert.Contains(t, check.Detail, "vectors.bin")
}

func TestVerifyReportsDanglingEmbedding(t *testing.T) {
	store, index := consistentFixture()
	index.ids = append(index.ids, "frag-ghost")

	verifier := NewVerifier(store, index, nil)
	results, err := verifier.Verify(context.Background())
	require.NoError(t, err)

	check := checkByName(t, results, "document/embedding cross-reference")
	assert.False(t, check.Passed)
	assert.Contains(t, check.Detail, "frag-ghost")
}

func TestVerifyReportsBrokenReferenceLinkage(t *testing.T) {
	store, index := consistentFixture()
	store.PutReference(domain.DocumentRef{
		RefID:       "ref-2",
		FragmentIDs: []string{"frag-gone"},
	})

	verifier := NewVerifier(store, index, nil)
	results, err := verifier.Verify(context.Background())
	require.NoError(t, err)

	check := checkByName(t, results, "reference linkage")
	assert.False(t, check.Passed)
	assert.Contains(t, check.Detail, "frag-gone")
}

func TestCrossValidateConsistent(t *testing.T) {
	store, index := consistentFixture()
	assert.NoError(t, CrossValidate(context.Background(), store, index))
}

func TestCrossValidateDuplicateEmbeddingID(t *testing.T) {
	store, index := consistentFixture()
	index.ids = []string{"frag-a", "frag-a"}

	err := CrossValidate(context.Background(), store, index)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestCrossValidateUnresolvableEmbedding(t *testing.T) {
	store, index := consistentFixture()
	index.ids = append(index.ids, "frag-ghost")

	err := CrossValidate(context.Background(), store, index)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestCrossValidateCountMismatch(t *testing.T) {
	store, index := consistentFixture()
	// A stored fragment with no embedding.
	store.PutFragment(testFragment("frag-c", "gamma"))

	err := CrossValidate(context.Background(), store, index)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}
