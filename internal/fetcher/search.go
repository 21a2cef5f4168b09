package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const searchSystemPrompt = "You are a news research agent. Collect recent, accurate news articles with context " +
	"for the user's query and cite every source you use."

// SearchConfig configures the search/LLM provider.
type SearchConfig struct {
	URL      string
	APIKey   string
	PromptID string
}

// Search queries a chat-completions style search API and returns its citations.
type Search struct {
	client   HTTPClient
	url      string
	apiKey   string
	promptID int
	now      func() time.Time
	rec      recorder
}

// NewSearch creates a search provider. calls may be nil to disable call logging.
func NewSearch(client HTTPClient, cfg SearchConfig, calls CallLogger, log *slog.Logger) (*Search, error) {
	promptID, err := strconv.Atoi(cfg.PromptID)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt id %q: %w", cfg.PromptID, err)
	}
	return &Search{
		client:   client,
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		promptID: promptID,
		now:      time.Now,
		rec:      recorder{provider: "search", calls: calls, log: log},
	}, nil
}

type searchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchExtensions struct {
	ServiceType            string   `json:"service_type"`
	ReturnCitations        bool     `json:"return_citations"`
	ReturnImages           bool     `json:"return_images"`
	ReturnRelatedQuestions bool     `json:"return_related_questions"`
	ExtensionLimit         string   `json:"search_type_extension_limit"`
	DomainFilter           []string `json:"search_domain_filter"`
	RecencyFilter          string   `json:"search_recency_filter"`
	NewsFilterOff          bool     `json:"news_filter_off"`
}

type searchRequest struct {
	IsProduction    bool             `json:"is_production"`
	PromptID        int              `json:"prompt_id"`
	Messages        []searchMessage  `json:"messages"`
	ModelExtensions searchExtensions `json:"model_extensions"`
}

type citation struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Image     *string `json:"image"`
	SiteName  string  `json:"site_name"`
	Favicon   string  `json:"favicon"`
	IsVisible bool    `json:"is_visible"`
	OGTags    *struct {
		Description string `json:"description"`
		Image       string `json:"image"`
	} `json:"og_tags"`
}

type searchResponse struct {
	State int `json:"state"`
	Res   struct {
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		ModelExtensions struct {
			PaasCitations []citation `json:"paas_citations"`
		} `json:"model_extensions"`
	} `json:"res"`
}

// Search runs one query. Every call, successful or not, is written to the call log.
func (s *Search) Search(ctx context.Context, query string, opts Options, cat CategoryRef) ([]Candidate, error) {
	c := call{query: query, cat: cat, start: time.Now()}

	limit := opts.ExpansionLimit
	if limit == "" {
		limit = "Complex"
	}
	payload, err := json.Marshal(searchRequest{
		PromptID: s.promptID,
		Messages: []searchMessage{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
		ModelExtensions: searchExtensions{
			ServiceType:     "PAAS",
			ReturnCitations: true,
			ExtensionLimit:  limit,
			DomainFilter:    []string{},
			RecencyFilter:   recencyWindow(opts.Recency),
			NewsFilterOff:   opts.FilterOff,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	c.request = payload

	results, err := s.search(ctx, payload, &c)
	s.rec.record(ctx, c, err)
	if err != nil {
		return nil, fmt.Errorf("search api: %w", err)
	}
	return results, nil
}

func (s *Search) search(ctx context.Context, payload []byte, c *call) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" && s.apiKey != "NONE" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	body, err := do(s.client, req)
	if err != nil {
		return nil, err
	}
	c.response = body

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.State != http.StatusOK {
		return nil, fmt.Errorf("error state %d", resp.State)
	}
	if u := resp.Res.Usage; u != nil {
		c.prompt = &u.PromptTokens
		c.complete = &u.CompletionTokens
	}

	published := s.now().UTC()
	raw := make([]Candidate, 0, len(resp.Res.ModelExtensions.PaasCitations))
	for _, ct := range resp.Res.ModelExtensions.PaasCitations {
		if !ct.IsVisible {
			continue
		}
		cand := Candidate{
			Title:       ct.Title,
			URL:         ct.URL,
			Snippet:     ct.Snippet,
			Source:      ct.SiteName,
			Favicon:     ct.Favicon,
			PublishedAt: published,
		}
		if ct.Image != nil {
			cand.ImageURL = *ct.Image
		}
		if ct.OGTags != nil {
			if cand.Snippet == "" {
				cand.Snippet = ct.OGTags.Description
			}
			if cand.ImageURL == "" {
				cand.ImageURL = ct.OGTags.Image
			}
		}
		raw = append(raw, cand)
	}
	results := finalize(raw)
	c.results = len(results)
	return results, nil
}
