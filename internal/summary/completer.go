// Package summary generates short article summaries through an LLM completion
// endpoint and records every call in the summary-call log.
package summary

import (
	"context"
	"net/http"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CompletionRequest is a single system+user prompt exchange.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completion is the first choice returned by the endpoint. Token counts are
// nil when the provider does not report them.
type Completion struct {
	Text             string
	PromptTokens     *int
	CompletionTokens *int
}

// Completer calls an LLM completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
