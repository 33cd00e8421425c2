package trace

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/storage"
)

func newTestRecorder(t *testing.T) (*Recorder, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRecorder(store, zap.NewNop(), 0), store
}

func testInput() Input {
	return Input{
		Query: "what is a dog?",
		Ranked: []models.RankedChunk{
			{SearchHit: models.SearchHit{VectorID: "v1", Similarity: 0.9}},
			{SearchHit: models.SearchHit{VectorID: "v2", Similarity: 0.7}},
		},
		Answer:            "A dog is a mammal [1].",
		Citations:         []models.Citation{{Number: 1, DocumentName: "animals.txt"}},
		LLMProvider:       "ollama",
		EmbeddingProvider: "local",
		TopK:              5,
		ProcessingTime:    250 * time.Millisecond,
	}
}

func TestRecorder_Record(t *testing.T) {
	r, _ := newTestRecorder(t)

	result := r.Record(context.Background(), testInput())
	if !result.Recorded() {
		t.Fatalf("record failed: %+v", result)
	}
	if result.TraceID == "" {
		t.Fatal("trace ID should be set")
	}

	trace, err := r.Get(context.Background(), result.TraceID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if trace.QueryText != "what is a dog?" {
		t.Errorf("query=%q", trace.QueryText)
	}
	if len(trace.RetrievedChunkIDs) != 2 || trace.RetrievedChunkIDs[0] != "v1" {
		t.Errorf("chunk ids: %v", trace.RetrievedChunkIDs)
	}
	if len(trace.SimilarityScores) != 2 || trace.SimilarityScores[1] != 0.7 {
		t.Errorf("scores: %v", trace.SimilarityScores)
	}
	if trace.ProcessingTimeMS != 250 {
		t.Errorf("processing_time_ms=%d", trace.ProcessingTimeMS)
	}
}

func TestRecorder_SurvivesCanceledRequest(t *testing.T) {
	r, _ := newTestRecorder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := r.Record(ctx, testInput())
	if !result.Recorded() {
		t.Fatalf("write should succeed on a detached context: %+v", result)
	}
}

type failingStorage struct {
	storage.Storage
	err error
}

func (f *failingStorage) InsertTrace(ctx context.Context, trace *models.GenerationTrace) error {
	return f.err
}

func TestRecorder_WriteFailureIsReported(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	failing := &failingStorage{Storage: store, err: errors.New("disk full")}
	r := NewRecorder(failing, zap.NewNop(), 0)

	result := r.Record(context.Background(), testInput())
	if result.Recorded() {
		t.Fatal("record should report failure")
	}
	if !result.Attempted {
		t.Error("write should have been attempted")
	}
	var traceErr *errs.TraceWriteError
	if !errors.As(result.Err, &traceErr) {
		t.Errorf("expected TraceWriteError, got %v", result.Err)
	}
}

func TestRecorder_List(t *testing.T) {
	r, _ := newTestRecorder(t)
	r.Record(context.Background(), testInput())
	r.Record(context.Background(), testInput())

	traces, err := r.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(traces) != 2 {
		t.Errorf("got %d traces", len(traces))
	}
}
