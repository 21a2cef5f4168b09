package fetcher

import (
	"html"
	"net"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/publicsuffix"
)

const maxSnippetLen = 500

var stripTags = bluemonday.StrictPolicy()

// cleanText removes markup from provider text and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(stripTags.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// SourceFromURL returns the registrable domain of rawURL, e.g. "bbc.co.uk"
// for "https://www.news.bbc.co.uk/x". It returns "Unknown" when the URL has no host.
func SourceFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// finalize drops candidates without a title or URL and fills derived fields.
func finalize(in []Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		c.Title = cleanText(c.Title)
		c.URL = strings.TrimSpace(c.URL)
		if c.Title == "" || c.URL == "" {
			continue
		}
		c.Snippet = truncate(cleanText(c.Snippet), maxSnippetLen)
		c.Source = strings.TrimSpace(c.Source)
		if c.Source == "" {
			c.Source = SourceFromURL(c.URL)
		}
		c.ImageURL = strings.TrimSpace(c.ImageURL)
		c.Favicon = strings.TrimSpace(c.Favicon)
		out = append(out, c)
	}
	return out
}

// recencyWindow maps the stored recency setting to the provider's day/week/month.
func recencyWindow(setting string) string {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "1week", "week", "7day", "7days":
		return "week"
	case "1month", "month", "30day", "30days":
		return "month"
	default:
		return "day"
	}
}
