package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"news_briefing/internal/config"
	"news_briefing/internal/fetcher"
	"news_briefing/internal/storage"
	"news_briefing/internal/summary"
)

const httpTimeout = 60 * time.Second

// Build wires an Orchestrator from configuration. Missing source
// configuration does not fail here; it is reported by every run instead.
func Build(cfg *config.Config, store storage.Storage, log *slog.Logger) *Orchestrator {
	client := &http.Client{Timeout: httpTimeout}

	src, srcErr := NewSource(cfg.Source, client, store, log)
	if srcErr != nil {
		log.Warn("article source unavailable", "provider", cfg.Source.Provider, "error", srcErr)
	}

	sum, err := NewSummarizer(cfg.Summary, client, store, log)
	if err != nil {
		log.Warn("summarizer unavailable", "provider", cfg.Summary.Provider, "error", err)
	}

	return New(Deps{
		Categories: store,
		News:       store,
		Settings:   store,
		Runs:       store,
		Source:     src,
		SourceErr:  srcErr,
		Summarizer: sum,
		Log:        log,
	})
}

// NewSource creates the configured article source.
func NewSource(cfg config.SourceConfig, client *http.Client, calls fetcher.CallLogger, log *slog.Logger) (fetcher.Source, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%s provider requires %s", cfg.Provider, strings.Join(missing, ", "))
	}
	switch cfg.Provider {
	case config.ProviderSearch:
		s, err := fetcher.NewSearch(client, fetcher.SearchConfig{URL: cfg.SearchURL, APIKey: cfg.SearchKey, PromptID: cfg.PromptID}, calls, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderNewsAPI:
		return fetcher.NewNewsAPI(client, "", cfg.NewsAPIKey, calls, log), nil
	case config.ProviderRSS:
		return fetcher.NewRSS(client, cfg.RSSSearchURL, calls, log), nil
	}
	return nil, fmt.Errorf("unknown source provider %q", cfg.Provider)
}

// NewSummarizer creates the configured summarizer. It returns nil without
// error when summarization is not configured.
func NewSummarizer(cfg config.SummaryConfig, client *http.Client, calls summary.CallLogger, log *slog.Logger) (Summarizer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var completer summary.Completer
	switch cfg.Provider {
	case config.ProviderOpenAI:
		completer = summary.NewOpenAI(client, cfg.OpenAIBaseURL, cfg.OpenAIKey)
	case config.ProviderOllama:
		o, err := summary.NewOllama(cfg.OllamaHost, client)
		if err != nil {
			return nil, err
		}
		completer = o
	default:
		return nil, fmt.Errorf("unknown summary provider %q", cfg.Provider)
	}

	return summary.NewGenerator(completer, calls, summary.Config{
		Model:         cfg.Model,
		Language:      cfg.Language,
		Mode:          cfg.Mode,
		RatePerMinute: cfg.RatePerMinute,
	}, log), nil
}
