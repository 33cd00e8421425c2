package retrieval

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/embedding"
	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/vector"
)

func newTestRetriever(t *testing.T, dims int) (*Retriever, vector.Index, *embedding.MockEmbedder) {
	t.Helper()
	idx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	mock := embedding.NewMockEmbedder(dims)
	reg := embedding.NewRegistry("local")
	reg.Register("local", mock)
	return NewRetriever(reg, idx, 5, 3, zap.NewNop()), idx, mock
}

func indexTexts(t *testing.T, idx vector.Index, emb *embedding.MockEmbedder, docID, docName string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{Index: i, Text: text, DocumentName: docName, Hash: text}
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Add(ctx, chunks, vectors, docID); err != nil {
		t.Fatal(err)
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	r, idx, emb := newTestRetriever(t, 16)
	indexTexts(t, idx, emb, "doc-1", "a.txt", "cats are mammals", "dogs are mammals")
	indexTexts(t, idx, emb, "doc-2", "b.txt", "planes can fly")

	ranked, provider, err := r.Retrieve(context.Background(), "cats are mammals", "", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if provider != "local" {
		t.Errorf("provider=%q", provider)
	}
	if len(ranked) != 3 {
		t.Fatalf("got %d chunks", len(ranked))
	}
	if ranked[0].Text != "cats are mammals" {
		t.Errorf("top chunk=%q", ranked[0].Text)
	}
	if ranked[0].Similarity < ranked[1].Similarity {
		t.Error("chunks should be ordered by descending similarity")
	}
}

func TestRetriever_TopKOverride(t *testing.T) {
	r, idx, emb := newTestRetriever(t, 16)
	indexTexts(t, idx, emb, "doc-1", "a.txt", "one", "two", "three", "four")

	ranked, _, err := r.Retrieve(context.Background(), "one", "", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(ranked) != 2 {
		t.Errorf("got %d chunks, want 2", len(ranked))
	}
}

func TestRetriever_UnknownProvider(t *testing.T) {
	r, _, _ := newTestRetriever(t, 16)
	_, _, err := r.Retrieve(context.Background(), "q", "bogus", 0)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRetriever_DimensionMismatchRejected(t *testing.T) {
	idx, err := vector.NewMemoryIndex(16)
	if err != nil {
		t.Fatal(err)
	}
	reg := embedding.NewRegistry("local")
	reg.Register("local", embedding.NewMockEmbedder(16))
	reg.Register("wide", embedding.NewMockEmbedder(32))
	r := NewRetriever(reg, idx, 5, 3, zap.NewNop())

	_, _, err = r.Retrieve(context.Background(), "q", "wide", 0)
	if err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
	if !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRetriever_EmptyIndex(t *testing.T) {
	r, _, _ := newTestRetriever(t, 16)
	ranked, _, err := r.Retrieve(context.Background(), "anything", "", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %d chunks from empty index", len(ranked))
	}
}
