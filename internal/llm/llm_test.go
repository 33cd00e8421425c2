package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/citewise/citewise/internal/errs"
)

func TestRegistry_GetDefault(t *testing.T) {
	r := NewRegistry("ollama")
	mock := &MockProvider{}
	r.Register("ollama", mock)

	p, err := r.Get("")
	if err != nil {
		t.Fatalf("Get(\"\"): %v", err)
	}
	if p != Provider(mock) {
		t.Error("empty name should resolve to the default provider")
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry("ollama")
	r.Register("ollama", &MockProvider{})

	_, err := r.Get("claude")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRAGMessages(t *testing.T) {
	msgs := ragMessages("what is X?", "[1] X is a thing.")
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Errorf("roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[0].Content, "Not found in sources") {
		t.Error("system prompt should mention the not-found response")
	}
	if !strings.Contains(msgs[1].Content, "[1] X is a thing.") {
		t.Error("user message should contain the context")
	}
	if !strings.Contains(msgs[1].Content, "Question: what is X?") {
		t.Error("user message should contain the question")
	}
}

func TestOllamaProvider_Generate(t *testing.T) {
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: chatMessage{Role: "assistant", Content: "The answer is 42 [1]."},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "llama3.2"})
	answer, err := p.Generate(context.Background(), "what is the answer?", "[1] It is 42.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "The answer is 42 [1]." {
		t.Errorf("answer=%q", answer)
	}
	if gotReq.Stream {
		t.Error("stream should be false")
	}
	if gotReq.Model != "llama3.2" {
		t.Errorf("model=%q", gotReq.Model)
	}
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotReq openaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("auth=%q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok [1]"}},
			},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	answer, err := p.Generate(context.Background(), "q", "ctx")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "ok [1]" {
		t.Errorf("answer=%q", answer)
	}
	if gotReq.Temperature != 0.3 {
		t.Errorf("temperature=%f", gotReq.Temperature)
	}
	if gotReq.MaxTokens != 1000 {
		t.Errorf("max_tokens=%d", gotReq.MaxTokens)
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited", "type": "rate_limit"},
		})
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	_, err = p.Generate(context.Background(), "q", "ctx")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected rate limit error, got %v", err)
	}
}

func TestNewGroqProvider_RequiresKey(t *testing.T) {
	if _, err := NewGroqProvider(GroqConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestMockProvider_Err(t *testing.T) {
	m := &MockProvider{Err: errors.New("boom")}
	if _, err := m.Generate(context.Background(), "q", "c"); err == nil {
		t.Fatal("expected error")
	}
	if m.Calls != 1 || m.LastQuery != "q" {
		t.Errorf("call not recorded: %+v", m)
	}
}
