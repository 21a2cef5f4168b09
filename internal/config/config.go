// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Source providers.
const (
	ProviderSearch  = "search"
	ProviderNewsAPI = "newsapi"
	ProviderRSS     = "rss"
)

// Summary providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Summary modes.
const (
	ModeHeadline = "headline"
	ModeContent  = "content"
)

// DefaultRSSSearchURL is the Google News RSS search endpoint. %s receives the escaped query.
const DefaultRSSSearchURL = "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en"

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
	HTTPAddr     string

	Source  SourceConfig
	Summary SummaryConfig

	TelegramBotToken string
	AdminChatID      int64
	AllowedUsers     []int64
}

// SourceConfig selects and configures the article source provider.
type SourceConfig struct {
	Provider     string
	SearchURL    string
	SearchKey    string
	PromptID     string
	NewsAPIKey   string
	RSSSearchURL string
}

// SummaryConfig configures the summarizer. An empty endpoint disables summarization.
type SummaryConfig struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaHost    string
	Model         string
	Language      string
	Mode          string
	RatePerMinute int
}

// Load reads configuration from environment variables. Values from a .env
// file in the working directory fill in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/news.db"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		HTTPAddr:     envOrDefault("HTTP_ADDR", ":8080"),
		Source: SourceConfig{
			Provider:     strings.ToLower(envOrDefault("SOURCE_PROVIDER", ProviderSearch)),
			SearchURL:    os.Getenv("SEARCH_API_URL"),
			SearchKey:    os.Getenv("SEARCH_API_KEY"),
			PromptID:     os.Getenv("SEARCH_PROMPT_ID"),
			NewsAPIKey:   os.Getenv("NEWSAPI_KEY"),
			RSSSearchURL: envOrDefault("RSS_SEARCH_URL", DefaultRSSSearchURL),
		},
		Summary: SummaryConfig{
			Provider:      strings.ToLower(envOrDefault("SUMMARY_PROVIDER", ProviderOpenAI)),
			OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL: strings.TrimRight(envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
			OllamaHost:    os.Getenv("OLLAMA_HOST"),
			Model:         envOrDefault("SUMMARY_MODEL", "gpt-4o-mini"),
			Language:      envOrDefault("SUMMARY_LANGUAGE", "Korean"),
			Mode:          strings.ToLower(envOrDefault("SUMMARY_MODE", ModeHeadline)),
			RatePerMinute: 60,
		},
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if !slices.Contains([]string{ProviderSearch, ProviderNewsAPI, ProviderRSS}, cfg.Source.Provider) {
		return nil, fmt.Errorf("invalid SOURCE_PROVIDER %q", cfg.Source.Provider)
	}
	if !slices.Contains([]string{ProviderOpenAI, ProviderOllama}, cfg.Summary.Provider) {
		return nil, fmt.Errorf("invalid SUMMARY_PROVIDER %q", cfg.Summary.Provider)
	}
	if cfg.Summary.Mode != ModeHeadline && cfg.Summary.Mode != ModeContent {
		return nil, fmt.Errorf("invalid SUMMARY_MODE %q", cfg.Summary.Mode)
	}

	if raw := os.Getenv("SUMMARY_RATE_PER_MINUTE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SUMMARY_RATE_PER_MINUTE %q", raw)
		}
		cfg.Summary.RatePerMinute = n
	}

	if raw := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID %q: %w", raw, err)
		}
		cfg.AdminChatID = id
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// Missing lists the environment variables the selected provider needs but lacks.
func (s SourceConfig) Missing() []string {
	var missing []string
	switch s.Provider {
	case ProviderSearch:
		if s.SearchURL == "" {
			missing = append(missing, "SEARCH_API_URL")
		}
		if s.PromptID == "" {
			missing = append(missing, "SEARCH_PROMPT_ID")
		}
	case ProviderNewsAPI:
		if s.NewsAPIKey == "" {
			missing = append(missing, "NEWSAPI_KEY")
		}
	case ProviderRSS:
		if s.RSSSearchURL == "" {
			missing = append(missing, "RSS_SEARCH_URL")
		}
	}
	return missing
}

// Enabled reports whether the summarizer endpoint and model are configured.
func (s SummaryConfig) Enabled() bool {
	if s.Model == "" {
		return false
	}
	switch s.Provider {
	case ProviderOpenAI:
		return s.OpenAIKey != "" && s.OpenAIBaseURL != ""
	case ProviderOllama:
		return s.OllamaHost != ""
	}
	return false
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID)
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
