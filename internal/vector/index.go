// Package vector provides vector index and similarity search over chunk
// embeddings.
package vector

import (
	"context"

	"github.com/citewise/citewise/internal/models"
)

// Index defines vector storage and nearest-neighbor search. Implementations
// keep enough chunk metadata alongside each vector to answer a search
// without a storage round trip.
type Index interface {
	// Add stores one vector per chunk and returns the backend vector IDs
	// in chunk order.
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32, documentID string) ([]string, error)
	// Search returns up to limit hits ordered by ascending distance. A
	// non-empty documentID restricts the search to that document.
	Search(ctx context.Context, query []float32, limit int, documentID string) ([]models.SearchHit, error)
	// DeleteByDocument removes all vectors belonging to a document and
	// returns how many were removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}
