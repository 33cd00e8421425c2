package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/citewise/citewise/internal/models"
)

// memoryEntry is one stored vector with the chunk metadata needed to build
// a search hit.
type memoryEntry struct {
	id           string
	documentID   string
	documentName string
	chunkIndex   int
	hash         string
	text         string
	vector       []float32
}

// MemoryIndex is an in-memory vector index using brute-force cosine
// distance search. Suitable for corpora up to tens of thousands of chunks.
type MemoryIndex struct {
	dimensions int
	entries    []memoryEntry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make([]memoryEntry, 0),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Add stores one vector per chunk and returns generated vector IDs in
// chunk order.
func (m *MemoryIndex) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32, documentID string) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != m.dimensions {
			return nil, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		id := uuid.New().String()
		m.entries = append(m.entries, memoryEntry{
			id:           id,
			documentID:   documentID,
			documentName: chunk.DocumentName,
			chunkIndex:   chunk.Index,
			hash:         chunk.Hash,
			text:         chunk.Text,
			vector:       vec,
		})
		ids[i] = id
	}
	return ids, nil
}

// Search returns up to limit hits by ascending cosine distance. Vectors are
// expected to be L2-normalized, so distance is 1 minus the dot product.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, limit int, documentID string) ([]models.SearchHit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	hits := make([]models.SearchHit, 0, len(m.entries))
	for i := range m.entries {
		e := &m.entries[i]
		if documentID != "" && e.documentID != documentID {
			continue
		}
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * e.vector[j])
		}
		distance := math.Max(0, 1-dot)
		hits = append(hits, models.SearchHit{
			VectorID:     e.id,
			Text:         e.text,
			DocumentID:   e.documentID,
			DocumentName: e.documentName,
			ChunkIndex:   e.chunkIndex,
			Hash:         e.hash,
			Distance:     distance,
			Similarity:   1 / (1 + distance),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

// DeleteByDocument removes all vectors of a document.
func (m *MemoryIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]memoryEntry, 0, len(m.entries))
	removed := 0
	for _, e := range m.entries {
		if e.documentID == documentID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

// Save persists the index to path. Directory is created if needed. Format:
// dimensions (4), n (4), then per entry: length-prefixed id, document ID,
// document name, hash and text, chunk index (4), vector (dimensions*4).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i := range m.entries {
		e := &m.entries[i]
		for _, s := range []string{e.id, e.documentID, e.documentName, e.hash, e.text} {
			if err := writeString(f, s); err != nil {
				return err
			}
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(e.chunkIndex)); err != nil {
			return fmt.Errorf("write chunk index: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. A missing file leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	entries := make([]memoryEntry, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var e memoryEntry
		for _, dst := range []*string{&e.id, &e.documentID, &e.documentName, &e.hash, &e.text} {
			s, err := readString(f)
			if err != nil {
				return err
			}
			*dst = s
		}
		var chunkIndex uint32
		if err := binary.Read(f, binary.LittleEndian, &chunkIndex); err != nil {
			return fmt.Errorf("read chunk index: %w", err)
		}
		e.chunkIndex = int(chunkIndex)
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		e.vector = bytesToFloat32Slice(buf)
		entries = append(entries, e)
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("write string len: %w", err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string len: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
