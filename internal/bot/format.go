package bot

import (
	"fmt"
	"strings"
	"time"

	"news_briefing/internal/model"
	"news_briefing/internal/pipeline"
)

const (
	reportErrorsShown = 5
	timeLayout        = "2006-01-02 15:04 UTC"
)

// FormatRunReport formats the outcome of one run.
func FormatRunReport(entry *model.RunLog, err error) string {
	if entry == nil {
		return fmt.Sprintf("Run failed: %v", err)
	}

	var b strings.Builder
	d := time.Duration(entry.DurationMS) * time.Millisecond
	fmt.Fprintf(&b, "Run finished: %s (%s)\n", entry.Status, d.Round(100*time.Millisecond))
	if err != nil {
		fmt.Fprintf(&b, "Error: %v\n", err)
		return b.String()
	}

	fmt.Fprintf(&b, "Fetched %d, saved %d, duplicates %d, summarized %d\n",
		entry.TotalFetched, entry.TotalSaved, entry.TotalDuplicates, entry.TotalSummarized)
	for _, c := range entry.Categories {
		fmt.Fprintf(&b, "\n%s: %d fetched, %d saved, %d duplicates, %d summarized",
			c.CategoryName, c.Fetched, c.Saved, c.Duplicates, c.Summarized)
		if n := len(c.Errors); n > 0 {
			fmt.Fprintf(&b, ", %d errors", n)
		}
	}

	if errs := pipeline.Errors(entry.Categories, reportErrorsShown); len(errs) > 0 {
		b.WriteString("\n\nErrors:")
		for _, e := range errs {
			b.WriteString("\n- ")
			b.WriteString(e)
		}
	}
	return b.String()
}

// FormatStatus formats the schedule settings and the latest run.
func FormatStatus(s model.Settings, active string, last *model.RunLog) string {
	var b strings.Builder
	switch {
	case active != "":
		fmt.Fprintf(&b, "Schedule: %s [active]\n", active)
	case s.Enabled:
		fmt.Fprintf(&b, "Schedule: %s [enabled, not active]\n", s.Schedule)
	default:
		fmt.Fprintf(&b, "Schedule: %s [disabled]\n", s.Schedule)
	}
	fmt.Fprintf(&b, "Recency: %s\n", s.RecencyFilter)

	if last == nil {
		b.WriteString("Last run: never")
		return b.String()
	}
	fmt.Fprintf(&b, "Last run: %s, %s, %d saved of %d fetched",
		last.CreatedAt.UTC().Format(timeLayout), last.Status, last.TotalSaved, last.TotalFetched)
	return b.String()
}

// FormatCategoryList formats categories for display.
func FormatCategoryList(cats []model.Category) string {
	if len(cats) == 0 {
		return "No categories. Use /addcat <name> | <query> to add one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Categories (%d/%d):\n", len(cats), model.MaxCategories)
	for _, c := range cats {
		label := c.ID
		if c.IsDefault {
			label = "built-in"
		}
		fmt.Fprintf(&b, "\n%s [%s]\n   %s\n", c.Name, label, c.SearchQuery)
	}
	return b.String()
}

// FormatRunList formats recent run logs, newest first.
func FormatRunList(runs []model.RunLog) string {
	if len(runs) == 0 {
		return "No runs yet. Use /run to collect news now."
	}
	var b strings.Builder
	b.WriteString("Recent runs:\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "\n%s %s: %d saved, %d duplicates, %d summarized",
			r.CreatedAt.UTC().Format(timeLayout), r.Status, r.TotalSaved, r.TotalDuplicates, r.TotalSummarized)
		if r.ErrorMessage != nil {
			fmt.Fprintf(&b, "\n   %s", *r.ErrorMessage)
		}
	}
	return b.String()
}

// FormatArticleList formats one page of articles.
func FormatArticleList(articles []model.Article, p model.Pagination) string {
	if len(articles) == 0 {
		return "No articles yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "News, page %d of %d:\n", p.Page, p.TotalPages)
	for _, a := range articles {
		fmt.Fprintf(&b, "\n%s (%s)\n", a.Title, a.Source)
		if a.Summary != nil {
			b.WriteString(*a.Summary)
			b.WriteString("\n")
		}
		b.WriteString(a.URL)
		b.WriteString("\n")
	}
	return b.String()
}
