package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
)

// RSS searches a news RSS endpoint such as Google News search feeds.
type RSS struct {
	client   HTTPClient
	template string
	maxItems int
	now      func() time.Time
	rec      recorder
}

// NewRSS creates an RSS search provider. template must contain one %s that
// receives the escaped query.
func NewRSS(client HTTPClient, template string, calls CallLogger, log *slog.Logger) *RSS {
	return &RSS{
		client:   client,
		template: template,
		maxItems: 20,
		now:      time.Now,
		rec:      recorder{provider: "rss", calls: calls, log: log},
	}
}

// Search fetches the feed for query and returns its newest items.
func (r *RSS) Search(ctx context.Context, query string, opts Options, cat CategoryRef) ([]Candidate, error) {
	endpoint := fmt.Sprintf(r.template, url.QueryEscape(query+" "+rssWhen(opts.Recency)))

	c := call{query: query, cat: cat, start: time.Now(), request: []byte("GET " + endpoint)}
	feed, err := r.fetch(ctx, endpoint, &c)
	var results []Candidate
	if err == nil {
		results = r.candidates(feed)
		c.results = len(results)
	}
	r.rec.record(ctx, c, err)
	if err != nil {
		return nil, fmt.Errorf("rss: %w", err)
	}
	return results, nil
}

// fetch downloads and parses the feed at endpoint. The RSS-specific parser is
// used so that the per-item <source> publisher survives.
func (r *RSS) fetch(ctx context.Context, endpoint string, c *call) (*rss.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := do(r.client, req)
	c.response = body
	if err != nil {
		return nil, err
	}

	parser := &rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (r *RSS) candidates(feed *rss.Feed) []Candidate {
	raw := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(raw) == r.maxItems {
			break
		}
		cand := Candidate{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Description,
			PublishedAt: r.now().UTC(),
		}
		if item.PubDateParsed != nil {
			cand.PublishedAt = item.PubDateParsed.UTC()
		}
		// Google News appends " - Publisher" to titles and names the publisher in <source>.
		if item.Source != nil {
			cand.Source = strings.TrimSpace(item.Source.Title)
		}
		if cand.Source != "" {
			cand.Title = strings.TrimSuffix(strings.TrimSpace(cand.Title), " - "+cand.Source)
		}
		if e := item.Enclosure; e != nil && strings.HasPrefix(e.Type, "image/") {
			cand.ImageURL = e.URL
		}
		raw = append(raw, cand)
	}
	return finalize(raw)
}

// rssWhen turns the recency setting into a Google News "when:" operator.
func rssWhen(recency string) string {
	switch recencyWindow(recency) {
	case "week":
		return "when:7d"
	case "month":
		return "when:30d"
	default:
		return "when:1d"
	}
}
