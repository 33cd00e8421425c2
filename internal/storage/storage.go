// Package storage defines persistence for documents, chunk references and
// query traces.
package storage

import (
	"context"

	"github.com/citewise/citewise/internal/models"
)

// Storage defines document, chunk and trace persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, chunkCount int) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []*models.ChunkRef) error
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.ChunkRef, error)
	DeleteChunksByDocumentID(ctx context.Context, docID string) error

	// Trace operations
	InsertTrace(ctx context.Context, trace *models.GenerationTrace) error
	GetTrace(ctx context.Context, id string) (*models.GenerationTrace, error)
	ListTraces(ctx context.Context, offset, limit int) ([]*models.GenerationTrace, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
