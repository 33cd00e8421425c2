// Package ingest turns source files into chunks, embeddings and index
// entries, both for direct uploads and for watched directories.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/chunker"
	"github.com/citewise/citewise/internal/embedding"
	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/storage"
	"github.com/citewise/citewise/internal/vector"
)

// pathNamespace derives stable document IDs for watched files, so
// reprocessing a path replaces the previous version.
var pathNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Processor ingests documents: chunk, embed, index, persist.
type Processor struct {
	store     storage.Storage
	index     vector.Index
	embedders *embedding.Registry
	chunker   *chunker.Chunker
	logger    *zap.Logger
}

// NewProcessor creates a processor.
func NewProcessor(store storage.Storage, index vector.Index, embedders *embedding.Registry, ch *chunker.Chunker, logger *zap.Logger) *Processor {
	return &Processor{
		store:     store,
		index:     index,
		embedders: embedders,
		chunker:   ch,
		logger:    logger,
	}
}

// Process ingests one document. Validation happens before any state is
// created, so a rejected upload leaves no document row behind. The document
// row moves pending -> processing -> completed, or to failed when any
// pipeline step errors.
func (p *Processor) Process(ctx context.Context, filename string, content []byte, embeddingProvider string, metadata map[string]interface{}) (*models.UploadResult, error) {
	start := time.Now()

	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, errs.Validationf("unsupported file type: %s (supported: .txt, .md)", ext)
	}
	if !utf8.Valid(content) {
		return nil, errs.Validationf("file %s is not valid UTF-8", filename)
	}
	embedder, err := p.embedders.Get(embeddingProvider)
	if err != nil {
		return nil, err
	}
	if dims := embedder.Dimensions(); dims > 0 && dims != p.index.Dimensions() {
		return nil, errs.Validationf(
			"embedding provider %s produces %d-dimensional vectors but the index expects %d",
			p.embedders.ResolveName(embeddingProvider), dims, p.index.Dimensions())
	}

	doc := &models.Document{
		ID:       uuid.New().String(),
		Filename: filename,
		FileType: ext,
		FileSize: int64(len(content)),
		Status:   models.StatusPending,
		Metadata: metadata,
	}
	return p.process(ctx, doc, string(content), embedder, start)
}

func (p *Processor) process(ctx context.Context, doc *models.Document, text string, embedder embedding.Embedder, start time.Time) (*models.UploadResult, error) {
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if err := p.store.UpdateDocumentStatus(ctx, doc.ID, models.StatusProcessing, 0); err != nil {
		p.markFailed(ctx, doc.ID)
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	chunks := p.chunker.Chunk(text, doc.Filename)
	if len(chunks) == 0 {
		if err := p.store.UpdateDocumentStatus(ctx, doc.ID, models.StatusCompleted, 0); err != nil {
			p.markFailed(ctx, doc.ID)
			return nil, fmt.Errorf("mark completed: %w", err)
		}
		return &models.UploadResult{
			DocumentID:       doc.ID,
			Filename:         doc.Filename,
			ChunkCount:       0,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			Status:           models.StatusCompleted,
		}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		p.markFailed(ctx, doc.ID)
		return nil, errs.Capability("embedding", fmt.Errorf("embed chunks: %w", err))
	}

	vectorIDs, err := p.index.Add(ctx, chunks, vectors, doc.ID)
	if err != nil {
		p.markFailed(ctx, doc.ID)
		return nil, errs.Capability("vector index", fmt.Errorf("index chunks: %w", err))
	}

	refs := make([]*models.ChunkRef, len(chunks))
	for i, chunk := range chunks {
		refs[i] = &models.ChunkRef{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			ChunkIndex: chunk.Index,
			VectorID:   vectorIDs[i],
			Content:    chunk.Text,
			TokenCount: chunk.TokenEstimate,
			Hash:       chunk.Hash,
		}
	}
	if err := p.store.BatchCreateChunks(ctx, refs); err != nil {
		p.markFailed(ctx, doc.ID)
		return nil, errs.Capability("storage", fmt.Errorf("persist chunks: %w", err))
	}

	if err := p.store.UpdateDocumentStatus(ctx, doc.ID, models.StatusCompleted, len(chunks)); err != nil {
		p.markFailed(ctx, doc.ID)
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	p.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("chunks", len(chunks)),
	)
	return &models.UploadResult{
		DocumentID:       doc.ID,
		Filename:         doc.Filename,
		ChunkCount:       len(chunks),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Status:           models.StatusCompleted,
	}, nil
}

// markFailed records the failed status on a detached context so a canceled
// request still leaves the document in a terminal state.
func (p *Processor) markFailed(ctx context.Context, docID string) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.store.UpdateDocumentStatus(failCtx, docID, models.StatusFailed, 0); err != nil {
		p.logger.Error("failed to mark document failed",
			zap.String("document_id", docID),
			zap.Error(err),
		)
	}
}

// ProcessPath ingests a file from a watched directory. The document ID is
// derived from the absolute path, and any previous version of the same
// path is replaced.
func (p *Processor) ProcessPath(ctx context.Context, path string) (*models.UploadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if !supportedExtensions[ext] {
		return nil, errs.Validationf("unsupported file type: %s (supported: .txt, .md)", ext)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(content) {
		return nil, errs.Validationf("file %s is not valid UTF-8", abs)
	}
	embedder, err := p.embedders.Get("")
	if err != nil {
		return nil, err
	}

	docID := uuid.NewSHA1(pathNamespace, []byte(abs)).String()
	if err := p.Delete(ctx, docID); err != nil && !errs.IsNotFound(err) {
		return nil, fmt.Errorf("replace previous version: %w", err)
	}

	doc := &models.Document{
		ID:       docID,
		Filename: filepath.Base(abs),
		FileType: ext,
		FileSize: int64(len(content)),
		Status:   models.StatusPending,
		Metadata: map[string]interface{}{"source_path": abs},
	}
	return p.process(ctx, doc, string(content), embedder, time.Now())
}

// RemovePath deletes the document previously ingested from a watched path.
// Unknown paths are ignored.
func (p *Processor) RemovePath(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	docID := uuid.NewSHA1(pathNamespace, []byte(abs)).String()
	err = p.Delete(ctx, docID)
	if errs.IsNotFound(err) {
		return nil
	}
	return err
}

// Delete removes a document with its chunks and vectors.
func (p *Processor) Delete(ctx context.Context, docID string) error {
	if _, err := p.store.GetDocument(ctx, docID); err != nil {
		return err
	}
	if _, err := p.index.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("remove vectors: %w", err)
	}
	if err := p.store.DeleteChunksByDocumentID(ctx, docID); err != nil {
		return fmt.Errorf("remove chunks: %w", err)
	}
	if err := p.store.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	p.logger.Info("document deleted", zap.String("document_id", docID))
	return nil
}
