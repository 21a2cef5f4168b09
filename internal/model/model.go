// Package model defines the domain types used across the application.
package model

import "time"

// Article is a stored news item. URL is the dedup key.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     *string   `json:"summary"`
	ImageURL    *string   `json:"imageUrl"`
	CategoryID  *string   `json:"categoryId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Category is a named search query the pipeline fans out over.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SearchQuery string    `json:"searchQuery"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Built-in category ids.
const (
	CategoryTech    = "default-tech"
	CategoryScience = "default-science"
)

// MaxCategories bounds the total number of categories, built-ins included.
const MaxCategories = 7

// Status is the outcome recorded on run and call logs.
type Status string

// Supported statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// CategoryResult holds the per-category counters of one run.
type CategoryResult struct {
	CategoryID   string   `json:"categoryId"`
	CategoryName string   `json:"categoryName"`
	Fetched      int      `json:"fetched"`
	Saved        int      `json:"saved"`
	Duplicates   int      `json:"duplicates"`
	Summarized   int      `json:"summarized"`
	Errors       []string `json:"errors"`
}

// RunLog records one orchestrator execution.
type RunLog struct {
	ID              string           `json:"id"`
	Status          Status           `json:"status"`
	DurationMS      int64            `json:"durationMs"`
	TotalFetched    int              `json:"totalFetched"`
	TotalSaved      int              `json:"totalSaved"`
	TotalDuplicates int              `json:"totalDuplicates"`
	TotalSummarized int              `json:"totalSummarized"`
	Categories      []CategoryResult `json:"categoryResults"`
	ErrorMessage    *string          `json:"errorMessage"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// SearchLog is an audit record of one Article Source call.
type SearchLog struct {
	ID               string    `json:"id"`
	CategoryID       *string   `json:"categoryId"`
	CategoryName     *string   `json:"categoryName"`
	Provider         string    `json:"provider"`
	Query            string    `json:"searchQuery"`
	Status           Status    `json:"status"`
	DurationMS       int64     `json:"durationMs"`
	ResultCount      int       `json:"resultCount"`
	PromptTokens     *int      `json:"tokensPrompt"`
	CompletionTokens *int      `json:"tokensCompletion"`
	RequestBody      *string   `json:"requestBody"`
	ResponseBody     *string   `json:"responseBody"`
	ErrorMessage     *string   `json:"errorMessage"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SummaryLog is an audit record of one summarizer call.
type SummaryLog struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Prompt       string    `json:"prompt"`
	Response     *string   `json:"response"`
	InputTokens  *int      `json:"tokensInput"`
	OutputTokens *int      `json:"tokensOutput"`
	DurationMS   int64     `json:"durationMs"`
	ArticleID    *string   `json:"newsId"`
	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"errorMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SummaryStats aggregates the summary-call log.
type SummaryStats struct {
	Total         int     `json:"totalCalls"`
	Success       int     `json:"successCalls"`
	Errors        int     `json:"errorCalls"`
	InputTokens   int     `json:"totalTokensInput"`
	OutputTokens  int     `json:"totalTokensOutput"`
	AvgDurationMS float64 `json:"avgDurationMs"`
}

// Setting keys.
const (
	SettingSchedule       = "CRON_SCHEDULE"
	SettingEnabled        = "CRON_ENABLED"
	SettingRecency        = "SEARCH_RECENCY_FILTER"
	SettingFilterOff      = "NEWS_FILTER_OFF"
	SettingExpansionLimit = "SEARCH_TYPE_EXTENSION_LIMIT"
)

// Setting defaults, applied when the key has no stored row.
const (
	DefaultSchedule       = "0 */6 * * *"
	DefaultRecency        = "1day"
	DefaultExpansionLimit = "Complex"
)

// Setting is a single key/value row.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Settings is the typed view of the settings table with defaults applied.
type Settings struct {
	Schedule       string `json:"schedule"`
	Enabled        bool   `json:"enabled"`
	RecencyFilter  string `json:"recencyFilter"`
	FilterOff      bool   `json:"newsFilterOff"`
	ExpansionLimit string `json:"searchTypeExtensionLimit"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		Schedule:       DefaultSchedule,
		Enabled:        false,
		RecencyFilter:  DefaultRecency,
		FilterOff:      true,
		ExpansionLimit: DefaultExpansionLimit,
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	HasMore    bool `json:"hasMore"`
	TotalPages int  `json:"totalPages"`
}

// NewPagination computes paging fields for a page of n items.
func NewPagination(page, limit, total, n int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		HasMore:    (page-1)*limit+n < total,
		TotalPages: totalPages,
	}
}
