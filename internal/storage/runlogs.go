package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"news_briefing/internal/model"
)

// CreateRunLog appends one run record and populates its ID and CreatedAt.
func (s *SQLite) CreateRunLog(ctx context.Context, l *model.RunLog) error {
	results := l.Categories
	if results == nil {
		results = []model.CategoryResult{}
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode category results: %w", err)
	}

	l.ID = newID()
	now := nowString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_logs (id, status, duration_ms, total_fetched, total_saved, total_duplicates,
		                       total_summarized, category_results, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, string(l.Status), l.DurationMS, l.TotalFetched, l.TotalSaved, l.TotalDuplicates,
		l.TotalSummarized, string(encoded), nullable(l.ErrorMessage), now,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	l.CreatedAt = parseTime(now)
	return nil
}

// ListRunLogs returns a page of run logs, newest first, and the total count.
func (s *SQLite) ListRunLogs(ctx context.Context, limit, offset int) ([]model.RunLog, int, error) {
	total, err := s.queryCount(ctx, sq.Select("COUNT(*)").From("run_logs"))
	if err != nil {
		return nil, 0, fmt.Errorf("count run logs: %w", err)
	}

	query, args, err := sq.Select(
		"id", "status", "duration_ms", "total_fetched", "total_saved", "total_duplicates",
		"total_summarized", "category_results", "error_message", "created_at",
	).From("run_logs").
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build run logs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query run logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []model.RunLog{}
	for rows.Next() {
		var l model.RunLog
		var status, results, created string
		var errMsg sql.NullString
		if err := rows.Scan(&l.ID, &status, &l.DurationMS, &l.TotalFetched, &l.TotalSaved,
			&l.TotalDuplicates, &l.TotalSummarized, &results, &errMsg, &created); err != nil {
			return nil, 0, fmt.Errorf("scan run log: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &l.Categories); err != nil {
			return nil, 0, fmt.Errorf("decode category results: %w", err)
		}
		l.Status = model.Status(status)
		l.ErrorMessage = stringPtr(errMsg)
		l.CreatedAt = parseTime(created)
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
