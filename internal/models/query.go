package models

import "fmt"

// SearchHit is one raw nearest-neighbour result. Distance is in backend
// units (ascending = closer); Similarity is the derived 1/(1+distance)
// score in [0,1].
type SearchHit struct {
	VectorID     string  `json:"vector_id"`
	Text         string  `json:"text"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Hash         string  `json:"hash"`
	Distance     float64 `json:"distance"`
	Similarity   float64 `json:"similarity_score"`
}

// RankedChunk is a SearchHit that survived the diversity filter. Slice
// position defines citation numbering, so order is significant.
type RankedChunk struct {
	SearchHit
}

// Citation maps a context marker back to its source chunk. Text is a
// preview capped at 200 characters.
type Citation struct {
	Number          int     `json:"number"`
	DocumentName    string  `json:"document_name"`
	ChunkIndex      int     `json:"chunk_index"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
}

// QueryRequest is a question against the corpus with optional overrides
// for result count and provider selection.
type QueryRequest struct {
	Query             string `json:"query"`
	TopK              int    `json:"top_k,omitempty"`
	LLMProvider       string `json:"llm_provider,omitempty"`
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
}

// Validate checks required fields and clamps TopK to maxTopK. TopK zero
// means "use the configured default" and is left for the caller to fill.
func (q *QueryRequest) Validate(maxTopK int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k cannot be negative")
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// QueryResponse is the answer to a query with its supporting citations.
type QueryResponse struct {
	Answer           string     `json:"answer"`
	Citations        []Citation `json:"citations"`
	TraceID          string     `json:"trace_id"`
	ProcessingTimeMS int64      `json:"processing_time_ms"`
	ContextUsed      int        `json:"context_used"`
}

// UploadResult reports the outcome of one document ingestion.
type UploadResult struct {
	DocumentID       string         `json:"document_id"`
	Filename         string         `json:"filename"`
	ChunkCount       int            `json:"chunk_count"`
	ProcessingTimeMS int64          `json:"processing_time_ms"`
	Status           DocumentStatus `json:"status"`
}
