package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/chunker"
	"github.com/citewise/citewise/internal/config"
	"github.com/citewise/citewise/internal/embedding"
	"github.com/citewise/citewise/internal/generation"
	"github.com/citewise/citewise/internal/ingest"
	"github.com/citewise/citewise/internal/llm"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/retrieval"
	"github.com/citewise/citewise/internal/storage"
	"github.com/citewise/citewise/internal/trace"
	"github.com/citewise/citewise/internal/vector"
)

func newTestServer(t *testing.T, mockLLM *llm.MockProvider) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	idx, err := vector.NewMemoryIndex(16)
	if err != nil {
		t.Fatal(err)
	}

	embedders := embedding.NewRegistry("local")
	embedders.Register("local", embedding.NewMockEmbedder(16))

	llms := llm.NewRegistry("ollama")
	llms.Register("ollama", mockLLM)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	logger := zap.NewNop()
	ch := chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	processor := ingest.NewProcessor(store, idx, embedders, ch, logger)
	retriever := retrieval.NewRetriever(embedders, idx, cfg.Retrieval.TopK, cfg.Retrieval.MaxPerDocument, logger)
	generator := generation.NewGenerator(logger)
	recorder := trace.NewRecorder(store, logger, 0)

	return NewServer(processor, retriever, generator, llms, recorder, store, idx, cfg, logger)
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(fw, content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, handler http.Handler, req *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
		}
	}
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &llm.MockProvider{})
	rec := doJSON(t, srv.Router(), httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestUploadAndQueryFlow(t *testing.T) {
	mockLLM := &llm.MockProvider{Answer: "Cats are small mammals [1]."}
	srv := newTestServer(t, mockLLM)
	router := srv.Router()

	var upload models.UploadResult
	rec := doJSON(t, router, uploadRequest(t, "cats.txt", "Cats are small carnivorous mammals kept as pets."), &upload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status=%d: %s", rec.Code, rec.Body.String())
	}
	if upload.ChunkCount == 0 || upload.Status != models.StatusCompleted {
		t.Fatalf("upload result: %+v", upload)
	}

	queryBody, _ := json.Marshal(models.QueryRequest{Query: "what are cats?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(queryBody))
	var resp models.QueryResponse
	rec = doJSON(t, router, req, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("query status=%d: %s", rec.Code, rec.Body.String())
	}
	if resp.Answer != "Cats are small mammals [1]." {
		t.Errorf("answer=%q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].DocumentName != "cats.txt" {
		t.Errorf("citations: %+v", resp.Citations)
	}
	if resp.TraceID == "" {
		t.Error("trace ID should be set")
	}
	if resp.ContextUsed == 0 {
		t.Error("context_used should be positive")
	}
	if !strings.Contains(mockLLM.LastContext, "[1]") {
		t.Errorf("LLM context: %q", mockLLM.LastContext)
	}

	// The recorded trace mirrors the response.
	var gotTrace models.GenerationTrace
	rec = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/traces/"+resp.TraceID, nil), &gotTrace)
	if rec.Code != http.StatusOK {
		t.Fatalf("get trace status=%d", rec.Code)
	}
	if gotTrace.QueryText != "what are cats?" || gotTrace.AnswerText != resp.Answer {
		t.Errorf("trace: %+v", gotTrace)
	}
	if gotTrace.LLMProvider != "ollama" || gotTrace.EmbeddingProvider != "local" {
		t.Errorf("trace providers: %+v", gotTrace)
	}
}

func TestQueryEmptyCorpusShortCircuits(t *testing.T) {
	mockLLM := &llm.MockProvider{}
	srv := newTestServer(t, mockLLM)

	queryBody, _ := json.Marshal(models.QueryRequest{Query: "anything?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(queryBody))
	var resp models.QueryResponse
	rec := doJSON(t, srv.Router(), req, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if resp.Answer != generation.NotFoundAnswer {
		t.Errorf("answer=%q", resp.Answer)
	}
	if len(resp.Citations) != 0 || resp.ContextUsed != 0 {
		t.Errorf("response: %+v", resp)
	}
	if mockLLM.Calls != 0 {
		t.Error("LLM should not be called without context")
	}
}

func TestQueryValidation(t *testing.T) {
	srv := newTestServer(t, &llm.MockProvider{})
	router := srv.Router()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty query", `{"query": ""}`, http.StatusBadRequest},
		{"negative top_k", `{"query": "q", "top_k": -1}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown llm provider", `{"query": "q", "llm_provider": "claude"}`, http.StatusBadRequest},
		{"unknown embedding provider", `{"query": "q", "embedding_provider": "bogus"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(tc.body))
			rec := doJSON(t, router, req, nil)
			if rec.Code != tc.want {
				t.Errorf("status=%d, want %d (body: %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	srv := newTestServer(t, &llm.MockProvider{})
	rec := doJSON(t, srv.Router(), uploadRequest(t, "report.pdf", "binaryish"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d: %s", rec.Code, rec.Body.String())
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv := newTestServer(t, &llm.MockProvider{})
	router := srv.Router()

	var upload models.UploadResult
	rec := doJSON(t, router, uploadRequest(t, "doc.md", "# Heading\n\nSome markdown body."), &upload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status=%d", rec.Code)
	}

	var doc models.Document
	rec = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+upload.DocumentID, nil), &doc)
	if rec.Code != http.StatusOK || doc.Filename != "doc.md" {
		t.Fatalf("get: status=%d doc=%+v", rec.Code, doc)
	}

	var list struct {
		Documents []models.Document `json:"documents"`
	}
	rec = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil), &list)
	if rec.Code != http.StatusOK || len(list.Documents) != 1 {
		t.Fatalf("list: status=%d n=%d", rec.Code, len(list.Documents))
	}

	rec = doJSON(t, router, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+upload.DocumentID, nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rec.Code)
	}

	rec = doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+upload.DocumentID, nil), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status=%d", rec.Code)
	}
}

func TestGetTraceNotFound(t *testing.T) {
	srv := newTestServer(t, &llm.MockProvider{})
	rec := doJSON(t, srv.Router(), httptest.NewRequest(http.MethodGet, "/api/v1/traces/nope", nil), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, &llm.MockProvider{})
	router := srv.Router()

	doJSON(t, router, uploadRequest(t, "a.txt", "some text content"), nil)

	var status struct {
		Documents       int64          `json:"documents"`
		Chunks          int64          `json:"chunks"`
		VectorIndexSize int            `json:"vector_index_size"`
		Config          map[string]any `json:"config"`
	}
	rec := doJSON(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil), &status)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if status.Documents != 1 || status.Chunks == 0 || status.VectorIndexSize == 0 {
		t.Errorf("status: %+v", status)
	}
	if status.Config["llm_provider"] == "" {
		t.Error("config block should be populated")
	}
}
