package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tshaffer/memorappy/internal/core/domain"
	"github.com/tshaffer/memorappy/internal/infrastructure/resilience"
)

func TestCompleteSendsSystemAndPrompt(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  {\"queryType\":\"structured\"}\n"}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", "llama3", "nomic-embed-text")
	out, err := client.Complete(context.Background(), "classify", "tacos in oakland")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != `{"queryType":"structured"}` {
		t.Fatalf("unexpected completion %q", out)
	}
	if payload["model"] != "llama3" || payload["system"] != "classify" || payload["prompt"] != "tacos in oakland" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["stream"] != false {
		t.Fatalf("expected non-streaming request, got %v", payload["stream"])
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" || len(req.Input) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	}))
	defer server.Close()

	vectors, err := New(server.URL, "gen", "nomic-embed-text").EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
}

func TestEmbedBatchRejectsShortResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "gen", "embed").EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected vector count mismatch error")
	}
}

func TestEmbedBatchEmptyInputSkipsRequest(t *testing.T) {
	client := New("http://127.0.0.1:1", "gen", "embed")
	vectors, err := client.EmbedBatch(context.Background(), nil)
	if err != nil || len(vectors) != 0 {
		t.Fatalf("expected empty result, got %v, %v", vectors, err)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "gen", "embed").EmbedBatch(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be marked temporary, got %v", err)
	}
}

func TestClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "missing", "embed").Complete(context.Background(), "s", "u")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("404 must not be temporary")
	}
}

func TestExecutorRetriesUnavailableServer(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	})
	client := NewWithOptions(server.URL, "gen", "embed", Options{ResilienceExecutor: exec})
	out, err := client.Complete(context.Background(), "s", "u")
	if err != nil || out != "ok" {
		t.Fatalf("expected retry to succeed, got %q, %v", out, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestModelNameIncludesProvider(t *testing.T) {
	if got := New("http://x", "gen", "nomic-embed-text").ModelName(); got != "ollama/nomic-embed-text" {
		t.Fatalf("unexpected model name %q", got)
	}
}
