package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

// File layout: magic, version, dimension, count, then count*dimension
// float32 values, all little-endian.
var fileMagic = [4]byte{'P', 'R', 'I', 'X'}

const fileVersion uint32 = 1

// headerSize is the byte length of magic, version, dimension and count.
const headerSize int64 = 16

// Flat is an exact inner-product index over fixed-width vectors. Vector
// position is the chunk id. The only supported mutation is appending
// during a build; an existing index is replaced wholesale, never edited.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of the given width.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Add appends vectors in input order.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has width %d, index expects %d", i, len(v), f.dim)
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.vectors)
}

// Dimension returns the vector width.
func (f *Flat) Dimension() int {
	return f.dim
}

// Search returns the k best positions by inner product, descending, with
// ties kept in insertion order. The result always has length k; positions
// past the number of stored vectors hold id -1 and score 0, and callers
// must filter those sentinels out.
func (f *Flat) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != f.dim {
		return nil, nil, fmt.Errorf("query has width %d, index expects %d", len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be positive, got %d", k)
	}

	type hit struct {
		id    int
		score float32
	}
	hits := make([]hit, len(f.vectors))
	for i, v := range f.vectors {
		var dot float32
		for j := range v {
			dot += query[j] * v[j]
		}
		hits[i] = hit{id: i, score: dot}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	ids := make([]int, k)
	scores := make([]float32, k)
	for i := 0; i < k; i++ {
		if i < len(hits) {
			ids[i] = hits[i].id
			scores[i] = hits[i].score
		} else {
			ids[i] = -1
		}
	}
	return ids, scores, nil
}

// Save serializes the index to path.
func (f *Flat) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(fileMagic[:]); err != nil {
		return err
	}
	header := []uint32{fileVersion, uint32(f.dim), uint32(len(f.vectors))}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, v := range f.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// Open deserializes an index from path.
func Open(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("not an index file: %s", path)
	}

	var version, dim, count uint32
	for _, dst := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("failed to read index header: %w", err)
		}
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	if dim == 0 {
		return nil, fmt.Errorf("index file has zero dimension")
	}

	// The count is untrusted input; verify the file actually holds that
	// many vectors before allocating for them.
	if info, err := file.Stat(); err == nil {
		need := headerSize + int64(count)*int64(dim)*4
		if info.Size() < need {
			return nil, fmt.Errorf("index file truncated: %d bytes, need %d for %d vectors", info.Size(), need, count)
		}
	}

	f := &Flat{dim: int(dim), vectors: make([][]float32, 0, count)}
	for i := uint32(0); i < count; i++ {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		f.vectors = append(f.vectors, v)
	}
	return f, nil
}
