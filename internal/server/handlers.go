package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/trace"
)

const maxUploadBytes = 32 << 20 // 32 MiB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":         docCount,
		"chunks":            chunkCount,
		"vector_index_size": s.index.Size(),
		"config": map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.index.Dimensions(),
			"llm_provider":         s.config.LLM.Provider,
			"top_k":                s.config.Retrieval.TopK,
			"max_per_document":     s.config.Retrieval.MaxPerDocument,
			"chunk_size":           s.config.Retrieval.ChunkSize,
			"chunk_overlap":        s.config.Retrieval.ChunkOverlap,
		},
	})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(content) > maxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	embeddingProvider := r.FormValue("embedding_provider")
	s.logger.Debug("upload request",
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)),
		zap.String("embedding_provider", embeddingProvider),
	)

	result, err := s.processor.Process(r.Context(), header.Filename, content, embeddingProvider, nil)
	if err != nil {
		s.respondMappedError(w, err, "document processing failed")
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r, 50)
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondMappedError(w, err, "failed to get document")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.processor.Delete(r.Context(), id); err != nil {
		s.respondMappedError(w, err, "failed to delete document")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	llmProvider, err := s.llms.Get(req.LLMProvider)
	if err != nil {
		s.respondMappedError(w, err, "query processing failed")
		return
	}

	ranked, embeddingProvider, err := s.retriever.Retrieve(r.Context(), req.Query, req.EmbeddingProvider, req.TopK)
	if err != nil {
		s.respondMappedError(w, err, "query processing failed")
		return
	}

	result, err := s.generator.Generate(r.Context(), llmProvider, req.Query, ranked)
	if err != nil {
		s.respondMappedError(w, err, "query processing failed")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.config.Retrieval.TopK
	}
	elapsed := time.Since(start)
	traceResult := s.recorder.Record(r.Context(), trace.Input{
		Query:             req.Query,
		Ranked:            ranked,
		Answer:            result.Answer,
		Citations:         result.Citations,
		LLMProvider:       s.llms.ResolveName(req.LLMProvider),
		EmbeddingProvider: embeddingProvider,
		TopK:              topK,
		ProcessingTime:    elapsed,
	})

	traceID := ""
	if traceResult.Recorded() {
		traceID = traceResult.TraceID
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{
		Answer:           result.Answer,
		Citations:        result.Citations,
		TraceID:          traceID,
		ProcessingTimeMS: elapsed.Milliseconds(),
		ContextUsed:      result.ContextUsed,
	})
}

func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r, 50)
	traces, err := s.recorder.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list traces failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}
	if traces == nil {
		traces = []*models.GenerationTrace{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"traces": traces})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.recorder.Get(r.Context(), id)
	if err != nil {
		s.respondMappedError(w, err, "failed to get trace")
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func pagination(r *http.Request, defaultLimit int) (offset, limit int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return offset, limit
}

// respondMappedError translates the error taxonomy to HTTP statuses.
// Internal errors are logged with detail but answered with a generic
// message.
func (s *Server) respondMappedError(w http.ResponseWriter, err error, generic string) {
	switch {
	case errs.IsValidation(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error(generic, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, generic)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
