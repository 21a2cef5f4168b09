// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"news_briefing/internal/model"
)

// Sentinel errors returned by Storage implementations.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateName   = errors.New("category name already exists")
	ErrCategoryLimit   = errors.New("category limit reached")
	ErrDefaultCategory = errors.New("default category cannot be modified")
)

// ArticleFilter selects a page of articles.
type ArticleFilter struct {
	CategoryID string
	Limit      int
	Offset     int
}

// SummaryLogFilter selects summary-call log rows. An empty ArticleID lists the most recent rows.
type SummaryLogFilter struct {
	ArticleID string
	Limit     int
}

// Storage is the interface for all persistence operations.
type Storage interface {
	// CreateArticle inserts a new article. It reports false without error when
	// an article with the same URL already exists; the store is left unchanged.
	CreateArticle(ctx context.Context, a *model.Article) (bool, error)
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	GetArticleByURL(ctx context.Context, url string) (*model.Article, error)
	ListArticles(ctx context.Context, f ArticleFilter) ([]model.Article, int, error)
	ListArticlesWithoutSummary(ctx context.Context, limit int) ([]model.Article, error)
	UpdateSummary(ctx context.Context, id, summary string) error
	DeleteArticle(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id string) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]model.Setting, error)
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSchedule(ctx context.Context, expr string, enabled bool) error

	CreateRunLog(ctx context.Context, l *model.RunLog) error
	ListRunLogs(ctx context.Context, limit, offset int) ([]model.RunLog, int, error)

	CreateSearchLog(ctx context.Context, l *model.SearchLog) error
	ListSearchLogs(ctx context.Context, limit, offset int) ([]model.SearchLog, int, error)

	CreateSummaryLog(ctx context.Context, l *model.SummaryLog) error
	ListSummaryLogs(ctx context.Context, f SummaryLogFilter) ([]model.SummaryLog, error)
	SummaryStats(ctx context.Context) (model.SummaryStats, error)
	DeleteSummaryLogsBefore(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
