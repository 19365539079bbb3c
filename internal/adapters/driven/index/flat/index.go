// Package flat provides a file-backed exact nearest-neighbour index.
// Vectors are held in memory and scored by cosine similarity with a
// brute-force scan; the persisted artifact is a little-endian binary
// file with an exact float32 round-trip.
package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Artifact layout: magic, format version, dimension, declared record
// count, then count records of (idLen uint32, id bytes, float32[dim]).
const (
	magic         = uint32(0x434F5256) // "CORV"
	formatVersion = uint32(1)
)

// Index is an in-memory flat vector index. It is append-only during
// build and strictly read-only after; queries may share it across
// goroutines without locking.
type Index struct {
	ids  []string
	vecs [][]float32
	mags []float64
	dim  int
}

// New creates an empty index with the given dimension.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Add appends an embedding record during an offline build.
func (i *Index) Add(id string, vector []float32) error {
	if len(vector) != i.dim {
		return fmt.Errorf("%w: vector for %s has %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, id, len(vector), i.dim)
	}
	i.ids = append(i.ids, id)
	vec := make([]float32, len(vector))
	copy(vec, vector)
	i.vecs = append(i.vecs, vec)
	i.mags = append(i.mags, magnitude(vec))
	return nil
}

// Search returns exactly min(k, Count()) candidates ordered by cosine
// similarity descending. Ties are broken by insertion order, so results
// are deterministic across runs. k <= 0 yields an empty result.
func (i *Index) Search(_ context.Context, query []float32, k int) ([]domain.Candidate, error) {
	if len(query) != i.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(query), i.dim)
	}
	if k <= 0 || len(i.vecs) == 0 {
		return []domain.Candidate{}, nil
	}

	qm := magnitude(query)

	scored := make([]domain.Candidate, len(i.vecs))
	for j := range i.vecs {
		score := 0.0
		if qm > 0 && i.mags[j] > 0 {
			score = dot(query, i.vecs[j]) / (qm * i.mags[j])
		}
		scored[j] = domain.Candidate{FragmentID: i.ids[j], Score: score}
	}

	// Stable sort over insertion order keeps tie-breaking deterministic.
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	out := scored[:k]
	for rank := range out {
		out[rank].Rank = rank
	}
	return out, nil
}

// Dimensions returns the fixed vector dimension.
func (i *Index) Dimensions() int {
	return i.dim
}

// Count returns the number of embedding records.
func (i *Index) Count() int {
	return len(i.ids)
}

// IDs returns every record id in insertion order.
func (i *Index) IDs() []string {
	out := make([]string, len(i.ids))
	copy(out, i.ids)
	return out
}

// Close releases resources. The flat index holds none beyond memory.
func (i *Index) Close() error {
	return nil
}

// Persist writes the index artifact. The write goes through a temp file
// and rename so a crash never leaves a torn artifact behind.
func (i *Index) Persist(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating index artifact: %w", err)
	}

	w := bufio.NewWriter(f)
	header := []uint32{magic, formatVersion, uint32(i.dim), uint32(len(i.ids))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return fmt.Errorf("writing index header: %w", err)
		}
	}

	for j, id := range i.ids {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			f.Close()
			return fmt.Errorf("writing record %d: %w", j, err)
		}
		if _, err := w.WriteString(id); err != nil {
			f.Close()
			return fmt.Errorf("writing record %d: %w", j, err)
		}
		for _, v := range i.vecs[j] {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(v)); err != nil {
				f.Close()
				return fmt.Errorf("writing record %d: %w", j, err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing index artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing index artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing index artifact: %w", err)
	}
	return nil
}

// Load reads and validates a persisted index artifact. A declared
// record count that does not match the payload, or any malformed
// record, fails with domain.ErrCorruptIndex.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index artifact: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var header [4]uint32
	for n := range header {
		if err := binary.Read(r, binary.LittleEndian, &header[n]); err != nil {
			return nil, fmt.Errorf("%w: truncated header in %s", domain.ErrCorruptIndex, path)
		}
	}
	if header[0] != magic {
		return nil, fmt.Errorf("%w: %s is not an index artifact", domain.ErrCorruptIndex, path)
	}
	if header[1] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", domain.ErrCorruptIndex, header[1])
	}

	dim := int(header[2])
	declared := int(header[3])
	if dim <= 0 {
		return nil, fmt.Errorf("%w: declared dimension %d", domain.ErrCorruptIndex, dim)
	}

	idx := &Index{
		dim:  dim,
		ids:  make([]string, 0, declared),
		vecs: make([][]float32, 0, declared),
		mags: make([]float64, 0, declared),
	}

	for n := 0; n < declared; n++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("%w: declared %d vectors, payload ends at %d",
				domain.ErrCorruptIndex, declared, n)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return nil, fmt.Errorf("%w: truncated id in record %d", domain.ErrCorruptIndex, n)
		}

		vec := make([]float32, dim)
		for d := range vec {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, fmt.Errorf("%w: record %d has truncated vector (dimension inconsistency)",
					domain.ErrCorruptIndex, n)
			}
			vec[d] = math.Float32frombits(bits)
		}

		idx.ids = append(idx.ids, string(idBytes))
		idx.vecs = append(idx.vecs, vec)
		idx.mags = append(idx.mags, magnitude(vec))
	}

	// Trailing bytes mean the payload exceeds the declared count.
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: payload exceeds declared count %d", domain.ErrCorruptIndex, declared)
	}

	return idx, nil
}

func dot(a []float32, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
