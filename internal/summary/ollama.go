package summary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// Ollama runs completions on an Ollama server.
type Ollama struct {
	client *ollama.Client
}

// NewOllama creates a completer for the Ollama server at host.
func NewOllama(host string, httpClient *http.Client) (*Ollama, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama host %q must be an absolute URL", host)
	}
	return &Ollama{client: ollama.NewClient(base, httpClient)}, nil
}

// Complete runs a single non-streaming generation.
func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	stream := false
	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var text strings.Builder
	out := &Completion{}
	err := o.client.Generate(ctx, &ollama.GenerateRequest{
		Model:   req.Model,
		System:  req.System,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: options,
	}, func(res ollama.GenerateResponse) error {
		text.WriteString(res.Response)
		if res.Done {
			prompt, completion := res.PromptEvalCount, res.EvalCount
			out.PromptTokens = &prompt
			out.CompletionTokens = &completion
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	out.Text = strings.TrimSpace(removeThinkBlock(text.String()))
	return out, nil
}

// removeThinkBlock drops a leading <think>...</think> section emitted by reasoning models.
func removeThinkBlock(s string) string {
	start := strings.Index(s, "<think>")
	if start < 0 {
		return s
	}
	end := strings.Index(s[start:], "</think>")
	if end < 0 {
		return s
	}
	return s[:start] + s[start+end+len("</think>"):]
}
