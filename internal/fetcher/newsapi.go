package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultNewsAPIURL is the NewsAPI base URL.
const DefaultNewsAPIURL = "https://newsapi.org"

// NewsAPI searches the NewsAPI "everything" endpoint.
type NewsAPI struct {
	client   HTTPClient
	baseURL  string
	apiKey   string
	pageSize int
	now      func() time.Time
	rec      recorder
}

// NewNewsAPI creates a NewsAPI provider. An empty baseURL selects the public endpoint.
func NewNewsAPI(client HTTPClient, baseURL, apiKey string, calls CallLogger, log *slog.Logger) *NewsAPI {
	if baseURL == "" {
		baseURL = DefaultNewsAPIURL
	}
	return &NewsAPI{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: 20,
		now:      time.Now,
		rec:      recorder{provider: "newsapi", calls: calls, log: log},
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search runs one query. The API key is sent as a header and never logged.
func (n *NewsAPI) Search(ctx context.Context, query string, opts Options, cat CategoryRef) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("from", n.since(opts.Recency).Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprint(n.pageSize))
	endpoint := n.baseURL + "/v2/everything?" + params.Encode()

	c := call{query: query, cat: cat, start: time.Now(), request: []byte("GET " + endpoint)}
	results, err := n.search(ctx, endpoint, &c)
	n.rec.record(ctx, c, err)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	return results, nil
}

func (n *NewsAPI) since(recency string) time.Time {
	now := n.now().UTC()
	switch recencyWindow(recency) {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	default:
		return now.AddDate(0, 0, -1)
	}
}

func (n *NewsAPI) search(ctx context.Context, endpoint string, c *call) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	body, err := do(n.client, req)
	c.response = body
	if err != nil {
		return nil, err
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("status %q: %s %s", resp.Status, resp.Code, resp.Message)
	}

	raw := make([]Candidate, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if strings.TrimSpace(a.Title) == "[Removed]" {
			continue
		}
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			published = n.now().UTC()
		}
		raw = append(raw, Candidate{
			Title:       a.Title,
			URL:         a.URL,
			Snippet:     a.Description,
			Source:      a.Source.Name,
			ImageURL:    a.URLToImage,
			PublishedAt: published,
		})
	}
	results := finalize(raw)
	c.results = len(results)
	return results, nil
}
