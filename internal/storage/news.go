package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"news_briefing/internal/model"
)

var articleColumns = []string{
	"id", "title", "url", "source", "published_at", "summary", "image_url", "category_id", "created_at",
}

// CreateArticle inserts an article unless its URL is already stored.
// ID and CreatedAt are populated on success.
func (s *SQLite) CreateArticle(ctx context.Context, a *model.Article) (bool, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, url, source, published_at, summary, image_url, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		a.ID, a.Title, a.URL, a.Source, formatTime(a.PublishedAt),
		nullable(a.Summary), nullable(a.ImageURL), nullable(a.CategoryID), now,
	)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	a.CreatedAt = parseTime(now)
	return true, nil
}

// GetArticle returns a single article by its ID.
func (s *SQLite) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return s.getArticle(ctx, sq.Eq{"id": id})
}

// GetArticleByURL returns the article stored under url.
func (s *SQLite) GetArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	return s.getArticle(ctx, sq.Eq{"url": url})
}

func (s *SQLite) getArticle(ctx context.Context, where sq.Eq) (*model.Article, error) {
	query, args, err := sq.Select(articleColumns...).From("articles").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}
	a, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListArticles returns one page of articles, newest first, and the total
// number of articles matching the filter.
func (s *SQLite) ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, int, error) {
	countQ := sq.Select("COUNT(*)").From("articles")
	listQ := sq.Select(articleColumns...).From("articles").
		OrderBy("published_at DESC", "rowid DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))
	if f.CategoryID != "" {
		countQ = countQ.Where(sq.Eq{"category_id": f.CategoryID})
		listQ = listQ.Where(sq.Eq{"category_id": f.CategoryID})
	}

	total, err := s.queryCount(ctx, countQ)
	if err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	articles, err := s.queryArticles(ctx, listQ)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// ListArticlesWithoutSummary returns up to limit articles that have no summary, newest first.
func (s *SQLite) ListArticlesWithoutSummary(ctx context.Context, limit int) ([]model.Article, error) {
	q := sq.Select(articleColumns...).From("articles").
		Where(sq.Or{sq.Eq{"summary": nil}, sq.Eq{"summary": ""}}).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit))
	return s.queryArticles(ctx, q)
}

func (s *SQLite) queryArticles(ctx context.Context, q sq.SelectBuilder) ([]model.Article, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// UpdateSummary attaches or replaces the summary of an article.
func (s *SQLite) UpdateSummary(ctx context.Context, id, summary string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return expectRow(res)
}

// DeleteArticle removes an article by its ID.
func (s *SQLite) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanArticle(row scannable) (*model.Article, error) {
	var a model.Article
	var published, created string
	var summary, image, category sql.NullString
	err := row.Scan(&a.ID, &a.Title, &a.URL, &a.Source, &published, &summary, &image, &category, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}
	a.PublishedAt = parseTime(published)
	a.CreatedAt = parseTime(created)
	a.Summary = stringPtr(summary)
	a.ImageURL = stringPtr(image)
	a.CategoryID = stringPtr(category)
	return &a, nil
}
