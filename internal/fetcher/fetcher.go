// Package fetcher implements the article source adapters: it queries an
// external provider for one category, normalizes the results into candidates
// and records every call in the search-call log.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"news_briefing/internal/metrics"
	"news_briefing/internal/model"
)

const (
	maxQueryLen     = 1000
	maxLoggedBody   = 64 * 1024
	maxResponseSize = 5 * 1024 * 1024
	userAgent       = "NewsBriefing/1.0"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallLogger persists search-call audit records.
type CallLogger interface {
	CreateSearchLog(ctx context.Context, l *model.SearchLog) error
}

// Options carries the per-run search settings.
type Options struct {
	Recency        string
	FilterOff      bool
	ExpansionLimit string
}

// CategoryRef identifies the category a search is made for. It is only used for logging.
type CategoryRef struct {
	ID   string
	Name string
}

// Candidate is a provider result before validation and persistence.
type Candidate struct {
	Title       string
	URL         string
	Snippet     string
	Source      string
	ImageURL    string
	Favicon     string
	PublishedAt time.Time
}

// Source fetches candidate articles for one query.
type Source interface {
	Search(ctx context.Context, query string, opts Options, cat CategoryRef) ([]Candidate, error)
}

// call accumulates what gets written to the search-call log.
type call struct {
	query    string
	cat      CategoryRef
	start    time.Time
	request  []byte
	response []byte
	results  int
	prompt   *int
	complete *int
}

// recorder writes search-call logs and metrics for one provider.
type recorder struct {
	provider string
	calls    CallLogger
	log      *slog.Logger
}

func (r recorder) record(ctx context.Context, c call, callErr error) {
	status := model.StatusSuccess
	if callErr != nil {
		status = model.StatusError
	}
	elapsed := time.Since(c.start)
	metrics.RecordCall(metrics.KindSearch, string(status), elapsed)

	if r.calls == nil {
		return
	}
	entry := &model.SearchLog{
		Provider:         r.provider,
		Query:            truncate(c.query, maxQueryLen),
		Status:           status,
		DurationMS:       elapsed.Milliseconds(),
		ResultCount:      c.results,
		PromptTokens:     c.prompt,
		CompletionTokens: c.complete,
		RequestBody:      bodyPtr(c.request),
		ResponseBody:     bodyPtr(c.response),
	}
	if c.cat.ID != "" {
		entry.CategoryID = &c.cat.ID
	}
	if c.cat.Name != "" {
		entry.CategoryName = &c.cat.Name
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := r.calls.CreateSearchLog(ctx, entry); err != nil {
		r.log.Warn("save search log", "provider", r.provider, "error", err)
	}
}

// do sends req and returns the body of a 2xx response. Non-2xx responses
// are returned as an error that includes the start of the body.
func do(client HTTPClient, req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", req.Method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func bodyPtr(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := truncate(string(b), maxLoggedBody)
	return &s
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
