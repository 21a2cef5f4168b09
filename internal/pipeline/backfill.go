package pipeline

import (
	"context"
	"errors"
	"fmt"

	"news_briefing/internal/summary"
)

// BackfillLimit is the number of articles one backfill pass summarizes.
const BackfillLimit = 10

// ErrInvalidLimit is returned when a backfill is asked for fewer than one article.
var ErrInvalidLimit = errors.New("limit must be at least 1")

// BackfillResult reports one summary backfill pass.
type BackfillResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"success"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// Backfill summarizes up to limit stored articles that have no summary yet.
// At most BackfillLimit error strings are kept.
func (o *Orchestrator) Backfill(ctx context.Context, limit int) (*BackfillResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if o.deps.Summarizer == nil {
		return nil, fmt.Errorf("%w: summarizer", ErrNotConfigured)
	}

	articles, err := o.deps.News.ListArticlesWithoutSummary(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list articles without summary: %w", err)
	}

	res := &BackfillResult{Errors: []string{}}
	for _, a := range articles {
		res.Processed++
		text, err := o.deps.Summarizer.Summarize(ctx, summary.Input{
			ArticleID: a.ID,
			Title:     a.Title,
			URL:       a.URL,
			Source:    a.Source,
		})
		if err == nil && text == "" {
			err = fmt.Errorf("no summary produced")
		}
		if err == nil {
			err = o.deps.News.UpdateSummary(ctx, a.ID, text)
		}
		if err != nil {
			res.Failed++
			if len(res.Errors) < BackfillLimit {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", a.ID, err))
			}
			continue
		}
		res.Succeeded++
	}

	o.log.Info("summary backfill", "processed", res.Processed, "success", res.Succeeded, "failed", res.Failed)
	return res, nil
}
