package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"news_briefing/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error

	requests []*http.Request
	bodies   []string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(b))
	}
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

type fakeCallLog struct {
	mu   sync.Mutex
	logs []model.SearchLog
}

func (f *fakeCallLog) CreateSearchLog(_ context.Context, l *model.SearchLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *l)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

const searchOK = `{
  "state": 200,
  "res": {
    "usage": {"prompt_tokens": 120, "completion_tokens": 480, "total_tokens": 600},
    "model_extensions": {
      "paas_citations": [
        {"title": "Quantum error correction milestone", "url": "https://www.nature.com/articles/q1",
         "snippet": "<b>Researchers</b> report &amp; confirm", "site_name": "Nature", "image": null,
         "og_tags": {"image": "https://media.nature.com/q1.png"}, "favicon": "https://nature.com/favicon.ico", "is_visible": true},
        {"title": "Hidden result", "url": "https://example.com/hidden", "is_visible": false},
        {"title": "", "url": "https://example.com/untitled", "is_visible": true},
        {"title": "Startup raises Series B", "url": "https://techcrunch.com/2026/10/17/b/", "snippet": "",
         "og_tags": {"description": "A short description"}, "is_visible": true}
      ]
    }
  }
}`

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		transport  *mockTransport
		want       []Candidate
		wantErr    bool
		wantStatus model.Status
	}{
		{
			name:      "citations parsed",
			transport: &mockTransport{body: searchOK, statusCode: 200},
			want: []Candidate{
				{
					Title: "Quantum error correction milestone", URL: "https://www.nature.com/articles/q1",
					Snippet: "Researchers report & confirm", Source: "Nature",
					ImageURL: "https://media.nature.com/q1.png", Favicon: "https://nature.com/favicon.ico",
					PublishedAt: fixedNow,
				},
				{
					Title: "Startup raises Series B", URL: "https://techcrunch.com/2026/10/17/b/",
					Snippet: "A short description", Source: "techcrunch.com", PublishedAt: fixedNow,
				},
			},
			wantStatus: model.StatusSuccess,
		},
		{
			name:       "error state",
			transport:  &mockTransport{body: `{"state": 500}`, statusCode: 200},
			wantErr:    true,
			wantStatus: model.StatusError,
		},
		{
			name:       "http error status",
			transport:  &mockTransport{body: "bad gateway", statusCode: 502},
			wantErr:    true,
			wantStatus: model.StatusError,
		},
		{
			name:       "network error",
			transport:  &mockTransport{err: errors.New("connection refused")},
			wantErr:    true,
			wantStatus: model.StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := &fakeCallLog{}
			s, err := NewSearch(tt.transport, SearchConfig{URL: "http://search.local/v1/chat", APIKey: "secret", PromptID: "42"}, calls, discardLogger())
			if err != nil {
				t.Fatalf("new search: %v", err)
			}
			s.now = func() time.Time { return fixedNow }

			got, err := s.Search(context.Background(), "quantum computing", Options{Recency: "1week", FilterOff: true}, CategoryRef{ID: "c1", Name: "Science"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("Search mismatch (-want +got):\n%s", diff)
				}
			}

			if len(calls.logs) != 1 {
				t.Fatalf("expected 1 call log, got %d", len(calls.logs))
			}
			entry := calls.logs[0]
			if entry.Status != tt.wantStatus {
				t.Errorf("log status = %s, want %s", entry.Status, tt.wantStatus)
			}
			if entry.RequestBody == nil {
				t.Error("expected request body in call log")
			}
			if tt.wantErr && entry.ErrorMessage == nil {
				t.Error("expected error message in call log")
			}
			if diff := cmp.Diff(ptr("c1"), entry.CategoryID); diff != "" {
				t.Errorf("category id mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchRequest(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		wantAuth string
	}{
		{name: "bearer key", apiKey: "secret", wantAuth: "Bearer secret"},
		{name: "NONE disables auth", apiKey: "NONE", wantAuth: ""},
		{name: "empty disables auth", apiKey: "", wantAuth: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{body: searchOK, statusCode: 200}
			s, err := NewSearch(transport, SearchConfig{URL: "http://search.local", APIKey: tt.apiKey, PromptID: "7"}, nil, discardLogger())
			if err != nil {
				t.Fatalf("new search: %v", err)
			}
			if _, err := s.Search(context.Background(), "ai", Options{Recency: "1month", ExpansionLimit: "Simple"}, CategoryRef{}); err != nil {
				t.Fatalf("search: %v", err)
			}

			if got := transport.requests[0].Header.Get("Authorization"); got != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", got, tt.wantAuth)
			}

			var sent searchRequest
			if err := json.Unmarshal([]byte(transport.bodies[0]), &sent); err != nil {
				t.Fatalf("decode sent body: %v", err)
			}
			want := searchRequest{
				PromptID: 7,
				Messages: []searchMessage{
					{Role: "system", Content: searchSystemPrompt},
					{Role: "user", Content: "ai"},
				},
				ModelExtensions: searchExtensions{
					ServiceType:     "PAAS",
					ReturnCitations: true,
					ExtensionLimit:  "Simple",
					DomainFilter:    []string{},
					RecencyFilter:   "month",
				},
			}
			if diff := cmp.Diff(want, sent); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewSearchInvalidPromptID(t *testing.T) {
	if _, err := NewSearch(&mockTransport{}, SearchConfig{URL: "http://x", PromptID: "abc"}, nil, discardLogger()); err == nil {
		t.Fatal("expected error for non-numeric prompt id")
	}
}

func TestSourceFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://www.nature.com/articles/x", want: "nature.com"},
		{url: "https://news.bbc.co.uk/story", want: "bbc.co.uk"},
		{url: "http://127.0.0.1:8080/a", want: "127.0.0.1"},
		{url: "not a url", want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := SourceFromURL(tt.url); got != tt.want {
				t.Errorf("SourceFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRecencyWindow(t *testing.T) {
	tests := map[string]string{
		"1day": "day", "day": "day", "": "day", "bogus": "day",
		"1week": "week", "week": "week",
		"1month": "month", "month": "month",
	}
	for in, want := range tests {
		if got := recencyWindow(in); got != want {
			t.Errorf("recencyWindow(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCallLogTruncatesQuery(t *testing.T) {
	calls := &fakeCallLog{}
	rec := recorder{provider: "search", calls: calls, log: discardLogger()}
	long := string(bytes.Repeat([]byte("가"), maxQueryLen+50))

	rec.record(context.Background(), call{query: long, start: time.Now()}, nil)

	got := calls.logs[0]
	want := model.SearchLog{
		Provider: "search",
		Query:    string(bytes.Repeat([]byte("가"), maxQueryLen)),
		Status:   model.StatusSuccess,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.SearchLog{}, "DurationMS")); diff != "" {
		t.Errorf("call log mismatch (-want +got):\n%s", diff)
	}
}
