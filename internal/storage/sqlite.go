// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		metadata TEXT,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		vector_id TEXT NOT NULL,
		content TEXT NOT NULL,
		token_count INTEGER NOT NULL DEFAULT 0,
		hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_chunk ON document_chunks(document_id, chunk_index);

	CREATE TABLE IF NOT EXISTS query_traces (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		retrieved_chunk_ids TEXT,
		similarity_scores TEXT,
		answer_text TEXT NOT NULL,
		citations TEXT,
		llm_provider TEXT NOT NULL,
		embedding_provider TEXT NOT NULL,
		top_k INTEGER NOT NULL DEFAULT 0,
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_traces_created_at ON query_traces(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, file_type, file_size, status, metadata, chunk_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.FileType, doc.FileSize, string(doc.Status),
		string(metadataJSON), doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var metadataJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, file_type, file_size, status, metadata, chunk_count, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.Status,
		&metadataJSON, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("document", id)
	}
	if err != nil {
		return nil, err
	}

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &doc, nil
}

// UpdateDocumentStatus moves a document through its processing lifecycle
// and records the final chunk count.
func (s *SQLiteStorage) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus, chunkCount int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, chunk_count = ?, updated_at = ? WHERE id = ?`,
		string(status), chunkCount, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return errs.NotFound("document", id)
	}
	return nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return errs.NotFound("document", id)
	}
	return nil
}

// ListDocuments returns documents with offset and limit, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, file_type, file_size, status, metadata, chunk_count, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var metadataJSON string
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.FileType, &doc.FileSize, &doc.Status,
			&metadataJSON, &doc.ChunkCount, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" && metadataJSON != "null" {
			_ = json.Unmarshal([]byte(metadataJSON), &doc.Metadata)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// BatchCreateChunks inserts multiple chunk references in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.ChunkRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (id, document_id, chunk_index, vector_id, content, token_count, hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		chunk.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.ChunkIndex,
			chunk.VectorID, chunk.Content, chunk.TokenCount, chunk.Hash, chunk.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunksByDocumentID returns all chunk references for a document ordered
// by chunk_index.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.ChunkRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, vector_id, content, token_count, hash, created_at
		 FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.ChunkRef
	for rows.Next() {
		var chunk models.ChunkRef
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.VectorID,
			&chunk.Content, &chunk.TokenCount, &chunk.Hash, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// DeleteChunksByDocumentID removes all chunk references for a document.
func (s *SQLiteStorage) DeleteChunksByDocumentID(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, docID)
	return err
}

// InsertTrace appends a query trace. Traces are never updated.
func (s *SQLiteStorage) InsertTrace(ctx context.Context, trace *models.GenerationTrace) error {
	chunkIDsJSON, err := json.Marshal(trace.RetrievedChunkIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk ids: %w", err)
	}
	scoresJSON, err := json.Marshal(trace.SimilarityScores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	citationsJSON, err := json.Marshal(trace.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	if trace.CreatedAt.IsZero() {
		trace.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_traces (id, query_text, retrieved_chunk_ids, similarity_scores, answer_text,
		 citations, llm_provider, embedding_provider, top_k, processing_time_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trace.ID, trace.QueryText, string(chunkIDsJSON), string(scoresJSON), trace.AnswerText,
		string(citationsJSON), trace.LLMProvider, trace.EmbeddingProvider, trace.TopK,
		trace.ProcessingTimeMS, trace.CreatedAt,
	)
	return err
}

// GetTrace returns a trace by ID.
func (s *SQLiteStorage) GetTrace(ctx context.Context, id string) (*models.GenerationTrace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query_text, retrieved_chunk_ids, similarity_scores, answer_text,
		 citations, llm_provider, embedding_provider, top_k, processing_time_ms, created_at
		 FROM query_traces WHERE id = ?`, id,
	)
	trace, err := scanTrace(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("trace", id)
	}
	return trace, err
}

// ListTraces returns traces with offset and limit, newest first.
func (s *SQLiteStorage) ListTraces(ctx context.Context, offset, limit int) ([]*models.GenerationTrace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_text, retrieved_chunk_ids, similarity_scores, answer_text,
		 citations, llm_provider, embedding_provider, top_k, processing_time_ms, created_at
		 FROM query_traces ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var traces []*models.GenerationTrace
	for rows.Next() {
		trace, err := scanTrace(rows.Scan)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, rows.Err()
}

func scanTrace(scan func(dest ...any) error) (*models.GenerationTrace, error) {
	var trace models.GenerationTrace
	var chunkIDsJSON, scoresJSON, citationsJSON string
	err := scan(&trace.ID, &trace.QueryText, &chunkIDsJSON, &scoresJSON, &trace.AnswerText,
		&citationsJSON, &trace.LLMProvider, &trace.EmbeddingProvider, &trace.TopK,
		&trace.ProcessingTimeMS, &trace.CreatedAt)
	if err != nil {
		return nil, err
	}
	if chunkIDsJSON != "" {
		if err := json.Unmarshal([]byte(chunkIDsJSON), &trace.RetrievedChunkIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk ids: %w", err)
		}
	}
	if scoresJSON != "" {
		if err := json.Unmarshal([]byte(scoresJSON), &trace.SimilarityScores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}
	}
	if citationsJSON != "" {
		if err := json.Unmarshal([]byte(citationsJSON), &trace.Citations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
		}
	}
	return &trace, nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunk references.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
