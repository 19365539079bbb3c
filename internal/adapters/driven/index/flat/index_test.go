package flat

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func buildIndex(t *testing.T, dim int, records map[string][]float32, order []string) *Index {
	t.Helper()
	idx, err := New(dim)
	require.NoError(t, err)
	for _, id := range order {
		require.NoError(t, idx.Add(id, records[id]))
	}
	return idx
}

func TestNewRejectsInvalidDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		_, err := New(dim)
		assert.Error(t, err)
	}
}

func TestAddRejectsWrongDimension(t *testing.T) {
	idx, err := New(3)
	require.NoError(t, err)

	err = idx.Add("frag-a", []float32{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	idx := buildIndex(t, 2, map[string][]float32{
		"east":      {1, 0},
		"north":     {0, 1},
		"northeast": {1, 1},
	}, []string{"east", "north", "northeast"})

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "east", results[0].FragmentID)
	assert.Equal(t, "northeast", results[1].FragmentID)
	assert.Equal(t, "north", results[2].FragmentID)

	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, results[1].Score, 1e-6)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)

	for rank, c := range results {
		assert.Equal(t, rank, c.Rank)
	}
}

func TestSearchReturnsMinKAndCount(t *testing.T) {
	idx := buildIndex(t, 2, map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}, []string{"a", "b"})

	tests := []struct {
		name string
		k    int
		want int
	}{
		{name: "k larger than count", k: 10, want: 2},
		{name: "k equals count", k: 2, want: 2},
		{name: "k smaller than count", k: 1, want: 1},
		{name: "k zero", k: 0, want: 0},
		{name: "k negative", k: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Search(context.Background(), []float32{1, 1}, tt.k)
			require.NoError(t, err)
			assert.Len(t, results, tt.want)
		})
	}
}

func TestSearchTiesBreakByInsertionOrder(t *testing.T) {
	// Identical vectors score identically; insertion order decides.
	same := []float32{1, 1}
	idx, err := New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add("first", same))
	require.NoError(t, idx.Add("second", same))
	require.NoError(t, idx.Add("third", same))

	for run := 0; run < 5; run++ {
		results, err := idx.Search(context.Background(), []float32{1, 1}, 3)
		require.NoError(t, err)
		assert.Equal(t, "first", results[0].FragmentID)
		assert.Equal(t, "second", results[1].FragmentID)
		assert.Equal(t, "third", results[2].FragmentID)
	}
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	idx := buildIndex(t, 3, map[string][]float32{"a": {1, 0, 0}}, []string{"a"})

	_, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchZeroVectorScoresZero(t *testing.T) {
	idx := buildIndex(t, 2, map[string][]float32{
		"zero": {0, 0},
		"unit": {1, 0},
	}, []string{"zero", "unit"})

	results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "unit", results[0].FragmentID)
	assert.Zero(t, results[1].Score)
}

func TestPersistLoadRoundTrip(t *testing.T) {
	idx := buildIndex(t, 3, map[string][]float32{
		"frag-a": {0.1, -2.5, 3.75},
		"frag-b": {1e-30, math.MaxFloat32, -0.0},
	}, []string{"frag-a", "frag-b"})

	path := filepath.Join(t.TempDir(), "vectors.bin")
	require.NoError(t, idx.Persist(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, idx.Dimensions(), loaded.Dimensions())
	assert.Equal(t, idx.Count(), loaded.Count())
	assert.Equal(t, idx.IDs(), loaded.IDs())

	// Exact float32 round-trip, bit for bit.
	for j := range idx.vecs {
		for d := range idx.vecs[j] {
			assert.Equal(t,
				math.Float32bits(idx.vecs[j][d]),
				math.Float32bits(loaded.vecs[j][d]))
		}
	}
}

func TestPersistLeavesNoTempFile(t *testing.T) {
	idx := buildIndex(t, 2, map[string][]float32{"a": {1, 0}}, []string{"a"})

	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")
	require.NoError(t, idx.Persist(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vectors.bin", entries[0].Name())
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an index artifact at all"), 0600))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestLoadRejectsTruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x56, 0x52}, 0600))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint32(buf[4:], 99)
	binary.LittleEndian.PutUint32(buf[8:], 2)
	binary.LittleEndian.PutUint32(buf[12:], 0)
	require.NoError(t, os.WriteFile(path, buf, 0600))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestLoadRejectsCountMismatch(t *testing.T) {
	idx := buildIndex(t, 2, map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}, []string{"a", "b"})

	path := filepath.Join(t.TempDir(), "vectors.bin")
	require.NoError(t, idx.Persist(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	t.Run("declared count exceeds payload", func(t *testing.T) {
		tampered := make([]byte, len(data))
		copy(tampered, data)
		binary.LittleEndian.PutUint32(tampered[12:], 3)
		bad := filepath.Join(t.TempDir(), "vectors.bin")
		require.NoError(t, os.WriteFile(bad, tampered, 0600))

		_, err := Load(bad)
		assert.ErrorIs(t, err, domain.ErrCorruptIndex)
	})

	t.Run("payload exceeds declared count", func(t *testing.T) {
		tampered := make([]byte, len(data))
		copy(tampered, data)
		binary.LittleEndian.PutUint32(tampered[12:], 1)
		bad := filepath.Join(t.TempDir(), "vectors.bin")
		require.NoError(t, os.WriteFile(bad, tampered, 0600))

		_, err := Load(bad)
		assert.ErrorIs(t, err, domain.ErrCorruptIndex)
	})

	t.Run("truncated vector payload", func(t *testing.T) {
		truncated := data[:len(data)-3]
		bad := filepath.Join(t.TempDir(), "vectors.bin")
		require.NoError(t, os.WriteFile(bad, truncated, 0600))

		_, err := Load(bad)
		assert.ErrorIs(t, err, domain.ErrCorruptIndex)
	})
}

func TestAddCopiesVector(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)

	vec := []float32{1, 0}
	require.NoError(t, idx.Add("a", vec))
	vec[0] = 99

	results, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}
