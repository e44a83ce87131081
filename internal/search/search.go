// Package search decides when a chat turn needs fresh external information
// and fetches it from a Brave-style web search API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/config"
)

// Result is one web search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Triggers for the retrieval gate: queries about current or local facts
// benefit from search context, everything else does not. Keywords match on
// word boundaries so "know" does not trip "now".
var searchKeywords = regexp.MustCompile(`(?i)\b(today|current|latest|now|weather|news|price|score|nearby|directions)\b`)

var searchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bis\b.+\bopen\b`),
	regexp.MustCompile(`(?i)\bwhen\s+(does|did|will)\b`),
}

// ShouldSearchWeb reports whether the raw user message warrants a web
// search. Pure decision function, case-insensitive.
func ShouldSearchWeb(text string) bool {
	if searchKeywords.MatchString(text) {
		return true
	}
	for _, pattern := range searchPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Client queries the search backend.
type Client struct {
	endpoint   string
	apiKey     string
	maxResults int
	http       *http.Client
	logger     *logrus.Logger
}

// NewClient creates a search client from configuration. Returns nil when no
// API key is configured, which disables retrieval augmentation entirely.
func NewClient(cfg config.SearchConfig, logger *logrus.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		http:       &http.Client{},
		logger:     logger,
	}
}

// Search issues one query and returns at most maxResults hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []Result `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := payload.Web.Results
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}

	c.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Debug("web search completed")

	return results, nil
}

// FormatResults renders hits as a numbered list suitable for splicing into
// the outgoing prompt.
func FormatResults(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
