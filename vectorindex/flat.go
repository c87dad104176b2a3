package vectorindex

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"legalrag-backend/models"
	"legalrag-backend/storage"
)

const (
	flatMagic   = "LRFI"
	flatVersion = uint32(1)

	// maxFlatDim bounds the header dimension; embedding models stay far below it
	maxFlatDim = 1 << 16
	// readBatch is the number of ids or floats decoded per read
	readBatch = 4096
)

var (
	ErrIndexNotFound      = errors.New("vector index not found")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrCorruptIndex       = errors.New("vector index file is corrupt")
	ErrDuplicateID        = errors.New("duplicate vector id")
)

// FlatIndex is an exhaustive inner-product index, the equivalent of an IndexFlatIP.
// Vectors are stored contiguously. Add must not be called once the index is shared.
type FlatIndex struct {
	dim     int
	ids     []int64
	vectors []float32
	seen    map[int64]struct{}
}

// NewFlatIndex creates an empty index of the given dimension
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim, seen: make(map[int64]struct{})}
}

// Dimension returns the vector dimension
func (f *FlatIndex) Dimension() int { return f.dim }

// Len returns the number of stored vectors
func (f *FlatIndex) Len() int { return len(f.ids) }

// Add stores a vector under id
func (f *FlatIndex) Add(id int64, vector []float32) error {
	if id < 0 {
		return fmt.Errorf("invalid vector id %d", id)
	}
	if len(vector) != f.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), f.dim)
	}
	if _, ok := f.seen[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	f.seen[id] = struct{}{}
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vector...)
	return nil
}

// Search returns the k nearest neighbors of vector by inner product.
// Ties keep insertion order.
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]models.Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(vector) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), f.dim)
	}

	candidates := make([]models.Neighbor, len(f.ids))
	for i, id := range f.ids {
		row := f.vectors[i*f.dim : (i+1)*f.dim]
		var dot float32
		for j, x := range row {
			dot += x * vector[j]
		}
		candidates[i] = models.Neighbor{ID: id, Score: dot}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Score > candidates[b].Score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return pad(candidates, k), nil
}

// WriteTo serializes the index: magic, version, dim, count, ids, vectors (little endian)
func (f *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	header := struct {
		Version uint32
		Dim     uint32
		Count   uint64
	}{flatVersion, uint32(f.dim), uint64(len(f.ids))}

	if _, err := cw.Write([]byte(flatMagic)); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, f.ids); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, f.vectors); err != nil {
		return cw.n, err
	}
	return cw.n, bw.Flush()
}

// ReadFlatIndex deserializes an index written by WriteTo
func ReadFlatIndex(r io.Reader) (*FlatIndex, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(flatMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if string(magic) != flatMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, magic)
	}

	var header struct {
		Version uint32
		Dim     uint32
		Count   uint64
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if header.Version != flatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, header.Version, flatVersion)
	}
	if header.Dim == 0 {
		return nil, fmt.Errorf("%w: zero dimension", ErrCorruptIndex)
	}
	if header.Dim > maxFlatDim {
		return nil, fmt.Errorf("%w: dimension %d exceeds %d", ErrCorruptIndex, header.Dim, maxFlatDim)
	}

	// The count is not trusted for allocation: ids and vectors are read in bounded
	// batches so a short or lying file ends in EOF.
	ids := make([]int64, 0, min(header.Count, readBatch))
	for remaining := header.Count; remaining > 0; {
		batch := make([]int64, min(remaining, readBatch))
		if err := binary.Read(br, binary.LittleEndian, batch); err != nil {
			return nil, fmt.Errorf("%w: reading ids: %v", ErrCorruptIndex, err)
		}
		ids = append(ids, batch...)
		remaining -= uint64(len(batch))
	}

	f := NewFlatIndex(int(header.Dim))
	rows := max(readBatch/f.dim, 1)
	for start := 0; start < len(ids); start += rows {
		n := min(rows, len(ids)-start)
		vectors := make([]float32, n*f.dim)
		if err := binary.Read(br, binary.LittleEndian, vectors); err != nil {
			return nil, fmt.Errorf("%w: reading vectors: %v", ErrCorruptIndex, err)
		}
		for i := 0; i < n; i++ {
			if err := f.Add(ids[start+i], vectors[i*f.dim:(i+1)*f.dim]); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
			}
		}
	}
	return f, nil
}

// LoadFlatIndex reads an index artifact from storage
func LoadFlatIndex(ctx context.Context, store storage.Storage, name string) (*FlatIndex, error) {
	rc, err := store.Download(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	defer rc.Close()

	return ReadFlatIndex(rc)
}

// SaveFlatIndex writes an index artifact to storage
func SaveFlatIndex(ctx context.Context, store storage.Storage, name string, f *FlatIndex) error {
	pr, pw := io.Pipe()
	go func() {
		_, err := f.WriteTo(pw)
		pw.CloseWithError(err)
	}()

	if _, err := store.Upload(ctx, name, pr); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("failed to upload vector index: %w", err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
