package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"news_briefing/internal/model"
)

// CreateSearchLog appends a search-call record.
func (s *SQLite) CreateSearchLog(ctx context.Context, l *model.SearchLog) error {
	l.ID = newID()
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (id, category_id, category_name, provider, search_query, status, duration_ms,
		                          result_count, tokens_prompt, tokens_completion, request_body, response_body,
		                          error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, nullable(l.CategoryID), nullable(l.CategoryName), l.Provider, l.Query, string(l.Status),
		l.DurationMS, l.ResultCount, nullableInt(l.PromptTokens), nullableInt(l.CompletionTokens),
		nullable(l.RequestBody), nullable(l.ResponseBody), nullable(l.ErrorMessage), now,
	)
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	l.CreatedAt = parseTime(now)
	return nil
}

// ListSearchLogs returns a page of search-call logs, newest first, and the total count.
func (s *SQLite) ListSearchLogs(ctx context.Context, limit, offset int) ([]model.SearchLog, int, error) {
	total, err := s.queryCount(ctx, sq.Select("COUNT(*)").From("search_logs"))
	if err != nil {
		return nil, 0, fmt.Errorf("count search logs: %w", err)
	}

	query, args, err := sq.Select(
		"id", "category_id", "category_name", "provider", "search_query", "status", "duration_ms",
		"result_count", "tokens_prompt", "tokens_completion", "request_body", "response_body",
		"error_message", "created_at",
	).From("search_logs").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build search logs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query search logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []model.SearchLog{}
	for rows.Next() {
		var l model.SearchLog
		var status, created string
		var catID, catName, reqBody, respBody, errMsg sql.NullString
		var promptTok, complTok sql.NullInt64
		if err := rows.Scan(&l.ID, &catID, &catName, &l.Provider, &l.Query, &status, &l.DurationMS,
			&l.ResultCount, &promptTok, &complTok, &reqBody, &respBody, &errMsg, &created); err != nil {
			return nil, 0, fmt.Errorf("scan search log: %w", err)
		}
		l.CategoryID = stringPtr(catID)
		l.CategoryName = stringPtr(catName)
		l.Status = model.Status(status)
		l.PromptTokens = intPtr(promptTok)
		l.CompletionTokens = intPtr(complTok)
		l.RequestBody = stringPtr(reqBody)
		l.ResponseBody = stringPtr(respBody)
		l.ErrorMessage = stringPtr(errMsg)
		l.CreatedAt = parseTime(created)
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// CreateSummaryLog appends a summary-call record.
func (s *SQLite) CreateSummaryLog(ctx context.Context, l *model.SummaryLog) error {
	l.ID = newID()
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summary_logs (id, model, prompt, response, tokens_input, tokens_output, duration_ms,
		                           article_id, status, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Model, l.Prompt, nullable(l.Response), nullableInt(l.InputTokens), nullableInt(l.OutputTokens),
		l.DurationMS, nullable(l.ArticleID), string(l.Status), nullable(l.ErrorMessage), now,
	)
	if err != nil {
		return fmt.Errorf("insert summary log: %w", err)
	}
	l.CreatedAt = parseTime(now)
	return nil
}

// ListSummaryLogs returns the most recent summary-call logs, optionally for one article.
func (s *SQLite) ListSummaryLogs(ctx context.Context, f SummaryLogFilter) ([]model.SummaryLog, error) {
	q := sq.Select(
		"id", "model", "prompt", "response", "tokens_input", "tokens_output", "duration_ms",
		"article_id", "status", "error_message", "created_at",
	).From("summary_logs").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(f.Limit))
	if f.ArticleID != "" {
		q = q.Where(sq.Eq{"article_id": f.ArticleID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summary logs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summary logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []model.SummaryLog{}
	for rows.Next() {
		var l model.SummaryLog
		var status, created string
		var response, articleID, errMsg sql.NullString
		var inTok, outTok sql.NullInt64
		if err := rows.Scan(&l.ID, &l.Model, &l.Prompt, &response, &inTok, &outTok, &l.DurationMS,
			&articleID, &status, &errMsg, &created); err != nil {
			return nil, fmt.Errorf("scan summary log: %w", err)
		}
		l.Response = stringPtr(response)
		l.InputTokens = intPtr(inTok)
		l.OutputTokens = intPtr(outTok)
		l.ArticleID = stringPtr(articleID)
		l.Status = model.Status(status)
		l.ErrorMessage = stringPtr(errMsg)
		l.CreatedAt = parseTime(created)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// SummaryStats aggregates call counts, token usage and mean duration over all summary-call logs.
func (s *SQLite) SummaryStats(ctx context.Context) (model.SummaryStats, error) {
	var st model.SummaryStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(tokens_input), 0),
		        COALESCE(SUM(tokens_output), 0),
		        COALESCE(AVG(duration_ms), 0)
		 FROM summary_logs`,
	).Scan(&st.Total, &st.Success, &st.Errors, &st.InputTokens, &st.OutputTokens, &st.AvgDurationMS)
	if err != nil {
		return st, fmt.Errorf("summary stats: %w", err)
	}
	return st, nil
}

// DeleteSummaryLogsBefore removes summary-call logs created before the cutoff.
func (s *SQLite) DeleteSummaryLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summary_logs WHERE created_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("delete summary logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
