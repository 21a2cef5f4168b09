package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOllamaComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"<think>plan</think>A short summary.","done":true,"prompt_eval_count":42,"eval_count":17}` + "\n"))
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new ollama: %v", err)
	}
	out, err := o.Complete(context.Background(), CompletionRequest{
		Model: "llama3.2", System: "sys", Prompt: "user", MaxTokens: 300, Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	want := &Completion{Text: "A short summary.", PromptTokens: ptr(42), CompletionTokens: ptr(17)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Complete mismatch (-want +got):\n%s", diff)
	}
	if got["model"] != "llama3.2" || got["system"] != "sys" || got["prompt"] != "user" || got["stream"] != false {
		t.Errorf("unexpected request: %v", got)
	}
}

func TestNewOllamaInvalidHost(t *testing.T) {
	if _, err := NewOllama("localhost", nil); err == nil {
		t.Fatal("expected error for host without scheme")
	}
}
