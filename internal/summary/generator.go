package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"news_briefing/internal/metrics"
	"news_briefing/internal/model"
)

const (
	maxLoggedPrompt = 1000
	maxTokens       = 300
	temperature     = 0.3
)

// Modes select which prompt a Generator builds.
const (
	ModeHeadline = "headline"
	ModeContent  = "content"
)

// CallLogger persists summary-call audit records.
type CallLogger interface {
	CreateSummaryLog(ctx context.Context, l *model.SummaryLog) error
}

// Config configures a Generator.
type Config struct {
	Model         string
	Language      string
	Mode          string
	RatePerMinute int
}

// Input describes the article to summarize. Snippet and Description are optional.
type Input struct {
	ArticleID   string
	Title       string
	URL         string
	Source      string
	Snippet     string
	Description string
}

// Generator produces article summaries.
type Generator struct {
	completer Completer
	calls     CallLogger
	cfg       Config
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NewGenerator creates a Generator. calls may be nil to disable call logging.
func NewGenerator(c Completer, calls CallLogger, cfg Config, log *slog.Logger) *Generator {
	if cfg.Language == "" {
		cfg.Language = "Korean"
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeHeadline
	}
	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}
	return &Generator{
		completer: c,
		calls:     calls,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
	}
}

// Summarize returns a summary for in, or "" when there is nothing to summarize
// or the endpoint returned no text. Endpoint failures are logged to the call
// log and returned.
func (g *Generator) Summarize(ctx context.Context, in Input) (string, error) {
	if g.cfg.Mode == ModeContent && strings.TrimSpace(in.Snippet) == "" && strings.TrimSpace(in.Description) == "" {
		return "", nil
	}
	return g.complete(ctx, in.ArticleID, g.buildPrompt(in))
}

// BatchItem is one entry of a batch summarization.
type BatchItem struct {
	ID      string
	Title   string
	Content string
}

// BatchResult holds the summary of one BatchItem. Summary is nil when the
// item failed or produced no text.
type BatchResult struct {
	ID      string
	Summary *string
}

// SummarizeBatch summarizes each item independently. A failing item is logged
// and yields a nil summary without aborting the rest.
func (g *Generator) SummarizeBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, item := range items {
		var prompt string
		if strings.TrimSpace(item.Content) != "" {
			prompt = g.contentPrompt(item.Title, item.Content)
		} else {
			prompt = g.buildPrompt(Input{Title: item.Title})
		}

		res := BatchResult{ID: item.ID}
		text, err := g.complete(ctx, item.ID, prompt)
		if err != nil {
			g.log.Error("batch summary", "article_id", item.ID, "error", err)
		} else if text != "" {
			res.Summary = &text
		}
		results = append(results, res)
	}
	return results
}

func (g *Generator) complete(ctx context.Context, articleID, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limit: %w", err)
	}

	start := time.Now()
	out, err := g.completer.Complete(ctx, CompletionRequest{
		Model:       g.cfg.Model,
		System:      g.systemPrompt(),
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	elapsed := time.Since(start)

	entry := &model.SummaryLog{
		Model:      g.cfg.Model,
		Prompt:     truncate(prompt, maxLoggedPrompt),
		DurationMS: elapsed.Milliseconds(),
	}
	if articleID != "" {
		entry.ArticleID = &articleID
	}

	if err != nil {
		msg := err.Error()
		entry.Status = model.StatusError
		entry.ErrorMessage = &msg
		g.record(ctx, entry, elapsed)
		return "", fmt.Errorf("generate summary: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	entry.Status = model.StatusSuccess
	if text != "" {
		entry.Response = &text
	}
	entry.InputTokens = out.PromptTokens
	entry.OutputTokens = out.CompletionTokens
	g.record(ctx, entry, elapsed)
	return text, nil
}

func (g *Generator) record(ctx context.Context, entry *model.SummaryLog, elapsed time.Duration) {
	metrics.RecordCall(metrics.KindSummary, string(entry.Status), elapsed)
	if g.calls == nil {
		return
	}
	if err := g.calls.CreateSummaryLog(ctx, entry); err != nil {
		g.log.Warn("save summary log", "error", err)
	}
}

func (g *Generator) systemPrompt() string {
	return fmt.Sprintf("You are an expert at summarizing news articles concisely and clearly. Always answer in %s.", g.cfg.Language)
}

func (g *Generator) buildPrompt(in Input) string {
	if g.cfg.Mode == ModeContent {
		content := strings.TrimSpace(strings.Join([]string{in.Snippet, in.Description}, "\n"))
		return g.contentPrompt(in.Title, content)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the title and source of the following news article, summarize its likely content in %s in 3-4 lines.\n\n", g.cfg.Language)
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	if in.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", in.Source)
	}
	if in.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", in.URL)
	}
	if s := strings.TrimSpace(in.Snippet); s != "" {
		fmt.Fprintf(&b, "Snippet: %s\n", s)
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	b.WriteString("\nGuidelines:\n- Include only the core facts the title supports\n- Keep a factual, non-speculative tone\n- Let the reader grasp the point of the article quickly")
	return b.String()
}

func (g *Generator) contentPrompt(title, content string) string {
	return fmt.Sprintf("Summarize the following news article in %s in 3-4 lines.\n\nTitle: %s\n\nContent:\n%s\n\n"+
		"Guidelines:\n- Include only key information\n- Keep an objective tone\n- Let the reader grasp the point of the article quickly\n- At most 3-4 lines",
		g.cfg.Language, title, content)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
