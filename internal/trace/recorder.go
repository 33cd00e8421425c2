// Package trace records query traces after answer generation. Trace
// persistence is best-effort: a failed write never fails the query.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/storage"
)

const defaultWriteTimeout = 5 * time.Second

// Input carries everything a trace row needs from one query run.
type Input struct {
	Query             string
	Ranked            []models.RankedChunk
	Answer            string
	Citations         []models.Citation
	LLMProvider       string
	EmbeddingProvider string
	TopK              int
	ProcessingTime    time.Duration
}

// Result reports what happened to the trace write. Err is set when the
// write was attempted and failed.
type Result struct {
	TraceID   string
	Attempted bool
	Err       error
}

// Recorded reports whether the trace was written successfully.
func (r Result) Recorded() bool {
	return r.Attempted && r.Err == nil
}

// Recorder writes query traces to storage.
type Recorder struct {
	store   storage.Storage
	logger  *zap.Logger
	timeout time.Duration
}

// NewRecorder creates a recorder. A zero timeout uses the default.
func NewRecorder(store storage.Storage, logger *zap.Logger, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Recorder{store: store, logger: logger, timeout: timeout}
}

// Record writes one trace row. The write runs on a detached context so a
// canceled request cannot leave a half-written trace, and failures are
// logged and reported in the result rather than returned.
func (r *Recorder) Record(ctx context.Context, input Input) Result {
	trace := &models.GenerationTrace{
		ID:                uuid.New().String(),
		QueryText:         input.Query,
		RetrievedChunkIDs: make([]string, 0, len(input.Ranked)),
		SimilarityScores:  make([]float64, 0, len(input.Ranked)),
		AnswerText:        input.Answer,
		Citations:         input.Citations,
		LLMProvider:       input.LLMProvider,
		EmbeddingProvider: input.EmbeddingProvider,
		TopK:              input.TopK,
		ProcessingTimeMS:  input.ProcessingTime.Milliseconds(),
		CreatedAt:         time.Now(),
	}
	for _, chunk := range input.Ranked {
		trace.RetrievedChunkIDs = append(trace.RetrievedChunkIDs, chunk.VectorID)
		trace.SimilarityScores = append(trace.SimilarityScores, chunk.Similarity)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.InsertTrace(writeCtx, trace); err != nil {
		r.logger.Error("trace write failed",
			zap.String("trace_id", trace.ID),
			zap.Error(err),
		)
		return Result{TraceID: trace.ID, Attempted: true, Err: &errs.TraceWriteError{Err: err}}
	}
	return Result{TraceID: trace.ID, Attempted: true}
}

// Get returns a trace by ID.
func (r *Recorder) Get(ctx context.Context, id string) (*models.GenerationTrace, error) {
	return r.store.GetTrace(ctx, id)
}

// List returns recent traces, newest first.
func (r *Recorder) List(ctx context.Context, offset, limit int) ([]*models.GenerationTrace, error) {
	return r.store.ListTraces(ctx, offset, limit)
}
