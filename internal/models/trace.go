package models

import "time"

// GenerationTrace is the persisted record of one query run: what was
// asked, what evidence was retrieved, and what was generated. Append-only.
type GenerationTrace struct {
	ID                string     `json:"id"`
	QueryText         string     `json:"query_text"`
	RetrievedChunkIDs []string   `json:"retrieved_chunk_ids"`
	SimilarityScores  []float64  `json:"similarity_scores"`
	AnswerText        string     `json:"answer_text"`
	Citations         []Citation `json:"citations"`
	LLMProvider       string     `json:"llm_provider"`
	EmbeddingProvider string     `json:"embedding_provider"`
	TopK              int        `json:"top_k"`
	ProcessingTimeMS  int64      `json:"processing_time_ms"`
	CreatedAt         time.Time  `json:"created_at"`
}
