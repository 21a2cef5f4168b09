// Package pipeline implements the fetch orchestrator: for every category it
// searches the configured source, validates and stores new articles,
// summarizes the ones that were newly saved and writes one run log per run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news_briefing/internal/fetcher"
	"news_briefing/internal/metrics"
	"news_briefing/internal/model"
	"news_briefing/internal/summary"
	"news_briefing/internal/validate"
)

// ErrNotConfigured marks a run or step that cannot proceed because required
// external configuration is missing.
var ErrNotConfigured = errors.New("not configured")

// CategoryStore lists the categories to fan out over.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// NewsStore persists articles and their summaries.
type NewsStore interface {
	CreateArticle(ctx context.Context, a *model.Article) (bool, error)
	UpdateSummary(ctx context.Context, id, summary string) error
	ListArticlesWithoutSummary(ctx context.Context, limit int) ([]model.Article, error)
}

// SettingStore provides the per-run search settings.
type SettingStore interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
}

// RunLogStore persists run logs.
type RunLogStore interface {
	CreateRunLog(ctx context.Context, l *model.RunLog) error
}

// Summarizer produces a summary for a stored article. An empty result means no summary.
type Summarizer interface {
	Summarize(ctx context.Context, in summary.Input) (string, error)
}

// Deps holds the collaborators of an Orchestrator. Source may be nil, in which
// case SourceErr explains why and every run fails with ErrNotConfigured.
// Summarizer may be nil to skip summarization.
type Deps struct {
	Categories CategoryStore
	News       NewsStore
	Settings   SettingStore
	Runs       RunLogStore
	Source     fetcher.Source
	SourceErr  error
	Summarizer Summarizer
	Log        *slog.Logger
}

// Orchestrator runs the fetch pipeline.
type Orchestrator struct {
	deps Deps
	log  *slog.Logger
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{deps: d, log: log}
}

// SummarizerEnabled reports whether newly saved articles get summarized.
func (o *Orchestrator) SummarizerEnabled() bool {
	return o.deps.Summarizer != nil
}

// Run processes every category once, sequentially, in store order. A failing
// category stops at the failure, keeps the counts gathered so far and records
// the error in its result; the other categories still run. Run only
// returns an error when it cannot start or the category list cannot be read.
func (o *Orchestrator) Run(ctx context.Context) ([]model.CategoryResult, error) {
	if o.deps.Source == nil {
		reason := o.deps.SourceErr
		if reason == nil {
			reason = errors.New("no article source")
		}
		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, reason)
	}

	categories, err := o.deps.Categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	results := make([]model.CategoryResult, 0, len(categories))
	for _, cat := range categories {
		res, err := o.processCategory(ctx, cat)
		if err != nil {
			o.log.Error("process category", "category_id", cat.ID, "name", cat.Name, "error", err)
			res.Errors = append(res.Errors, err.Error())
		}
		results = append(results, res)
	}
	return results, nil
}

func (o *Orchestrator) processCategory(ctx context.Context, cat model.Category) (model.CategoryResult, error) {
	res := model.CategoryResult{CategoryID: cat.ID, CategoryName: cat.Name, Errors: []string{}}

	settings, err := o.deps.Settings.LoadSettings(ctx)
	if err != nil {
		return res, fmt.Errorf("load settings: %w", err)
	}

	candidates, err := o.deps.Source.Search(ctx, cat.SearchQuery, fetcher.Options{
		Recency:        settings.RecencyFilter,
		FilterOff:      settings.FilterOff,
		ExpansionLimit: settings.ExpansionLimit,
	}, fetcher.CategoryRef{ID: cat.ID, Name: cat.Name})
	if err != nil {
		return res, err
	}
	res.Fetched = len(candidates)
	o.log.Debug("fetched candidates", "category_id", cat.ID, "count", len(candidates))

	for _, cand := range candidates {
		input := validate.Article{
			Title:      cand.Title,
			URL:        cand.URL,
			Source:     cand.Source,
			CategoryID: cat.ID,
		}
		// A malformed image is dropped rather than rejecting the article.
		if validate.AbsoluteURL(cand.ImageURL) {
			input.ImageURL = cand.ImageURL
		}
		if err := validate.ValidateArticle(input); err != nil {
			metrics.RecordArticle(metrics.OutcomeInvalid)
			res.Errors = append(res.Errors, fmt.Sprintf("invalid article %q: %v", label(cand), err))
			continue
		}

		article := newArticle(input, cand)
		created, err := o.deps.News.CreateArticle(ctx, article)
		if err != nil {
			return res, fmt.Errorf("save article %q: %w", cand.URL, err)
		}
		if !created {
			metrics.RecordArticle(metrics.OutcomeDuplicate)
			res.Duplicates++
			continue
		}
		metrics.RecordArticle(metrics.OutcomeSaved)
		res.Saved++

		if o.summarize(ctx, article, cand) {
			res.Summarized++
		}
	}

	o.log.Info("category done", "category_id", cat.ID, "fetched", res.Fetched, "saved", res.Saved,
		"duplicates", res.Duplicates, "summarized", res.Summarized, "errors", len(res.Errors))
	return res, nil
}

// summarize attaches a summary to a newly saved article. Failures are logged
// and never affect the saved article.
func (o *Orchestrator) summarize(ctx context.Context, a *model.Article, cand fetcher.Candidate) bool {
	if o.deps.Summarizer == nil {
		return false
	}
	text, err := o.deps.Summarizer.Summarize(ctx, summary.Input{
		ArticleID: a.ID,
		Title:     a.Title,
		URL:       a.URL,
		Source:    a.Source,
		Snippet:   cand.Snippet,
	})
	if err != nil {
		o.log.Warn("summarize article", "article_id", a.ID, "error", err)
		return false
	}
	if text == "" {
		return false
	}
	if err := o.deps.News.UpdateSummary(ctx, a.ID, text); err != nil {
		o.log.Error("store summary", "article_id", a.ID, "error", err)
		return false
	}
	return true
}

// RunAndLog times one run and writes its run log. The returned log is
// non-nil even when the run failed; the error is the run failure, if any.
func (o *Orchestrator) RunAndLog(ctx context.Context) (*model.RunLog, error) {
	start := time.Now()
	results, runErr := o.Run(ctx)
	elapsed := time.Since(start)

	entry := Aggregate(results)
	entry.DurationMS = elapsed.Milliseconds()
	if runErr != nil {
		msg := runErr.Error()
		entry.Status = model.StatusError
		entry.ErrorMessage = &msg
	}
	metrics.RecordRun(string(entry.Status), elapsed)

	if err := o.deps.Runs.CreateRunLog(ctx, entry); err != nil {
		o.log.Error("save run log", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("save run log: %w", err)
		}
	}

	o.log.Info("run finished", "status", entry.Status, "duration", elapsed, "fetched", entry.TotalFetched,
		"saved", entry.TotalSaved, "duplicates", entry.TotalDuplicates, "summarized", entry.TotalSummarized)
	return entry, runErr
}

// Aggregate sums per-category counters into a successful run log.
func Aggregate(results []model.CategoryResult) *model.RunLog {
	entry := &model.RunLog{Status: model.StatusSuccess, Categories: results}
	if entry.Categories == nil {
		entry.Categories = []model.CategoryResult{}
	}
	for _, r := range results {
		entry.TotalFetched += r.Fetched
		entry.TotalSaved += r.Saved
		entry.TotalDuplicates += r.Duplicates
		entry.TotalSummarized += r.Summarized
	}
	return entry
}

// Errors flattens per-category errors, prefixed with the category name, up to limit entries.
func Errors(results []model.CategoryResult, limit int) []string {
	out := []string{}
	for _, r := range results {
		for _, e := range r.Errors {
			if len(out) == limit {
				return out
			}
			out = append(out, r.CategoryName+": "+e)
		}
	}
	return out
}

func newArticle(in validate.Article, cand fetcher.Candidate) *model.Article {
	published := cand.PublishedAt
	if published.IsZero() {
		published = time.Now().UTC()
	}
	a := &model.Article{
		Title:       in.Title,
		URL:         in.URL,
		Source:      in.Source,
		PublishedAt: published,
	}
	if in.ImageURL != "" {
		img := in.ImageURL
		a.ImageURL = &img
	}
	if in.CategoryID != "" {
		cat := in.CategoryID
		a.CategoryID = &cat
	}
	return a
}

func label(c fetcher.Candidate) string {
	if c.URL != "" {
		return c.URL
	}
	if c.Title != "" {
		return c.Title
	}
	return "(empty)"
}
