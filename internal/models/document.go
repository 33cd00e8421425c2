// Package models defines the core data structures for documents, chunks,
// search hits, citations, and query traces.
package models

import "time"

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded source document. Status is the only field that
// changes after creation.
type Document struct {
	ID         string                 `json:"id"`
	Filename   string                 `json:"filename"`
	FileType   string                 `json:"file_type"`
	FileSize   int64                  `json:"file_size"`
	Status     DocumentStatus         `json:"status"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	ChunkCount int                    `json:"chunk_count"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Chunk is one bounded segment of a document's text, as produced by the
// chunker. Immutable once created. The hash covers the exact chunk text and
// is used for cross-document dedup, not identity.
type Chunk struct {
	Index         int    `json:"index"`
	Text          string `json:"text"`
	DocumentName  string `json:"document_name"`
	CharCount     int    `json:"char_count"`
	Hash          string `json:"hash"`
	TokenEstimate int    `json:"token_estimate"`
}

// ChunkRef is the persisted reference linking a document chunk to its
// vector-index entry.
type ChunkRef struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	VectorID   string    `json:"vector_id"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Hash       string    `json:"hash"`
	CreatedAt  time.Time `json:"created_at"`
}
