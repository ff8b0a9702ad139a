// Package websearch wraps a Tavily-style web search API. Calls fail
// fast with no retries; callers treat failures as degraded results.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/contentscout/contentscout/pkg/models"
)

const (
	defaultBaseURL = "https://api.tavily.com"
	defaultTimeout = 20 * time.Second
)

// ProfileDomains are preferred sources for company-profile queries,
// most authoritative first.
var ProfileDomains = []string{
	"wikipedia.org", "en.wikipedia.org", "ko.wikipedia.org",
	"finance.google.com", "google.com/finance",
	"invest.deepsearch.com", "m.invest.zum.com",
	"companiesmarketcap.com", "marketscreener.com",
	"alphasquare.co.kr",
}

// Client calls the search API over plain HTTP.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient builds a client. baseURL may be empty for the public
// endpoint; a test server address overrides it.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SearchOptions tune one search call. Zero values use the API
// defaults.
type SearchOptions struct {
	TopK              int
	Timeout           time.Duration
	IncludeDomains    []string
	TimeRange         string // "d"|"w"|"m"|"y"
	Depth             string // "basic"|"advanced"
	IncludeRawContent bool
}

// Search runs one query and returns normalized results in the API's
// relevance order.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]models.WebResult, error) {
	if c.apiKey == "" {
		return nil, errors.New("websearch: API key unset")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	payload := map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": opts.TopK,
	}
	if len(opts.IncludeDomains) > 0 {
		payload["include_domains"] = opts.IncludeDomains
	}
	if opts.TimeRange != "" {
		payload["time_range"] = opts.TimeRange
	}
	if opts.Depth != "" {
		payload["search_depth"] = opts.Depth
	}
	if opts.IncludeRawContent {
		payload["include_raw_content"] = true
	}

	var out struct {
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Content       string  `json:"content"`
			RawContent    string  `json:"raw_content"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"published_date"`
		} `json:"results"`
	}
	if err := c.post(ctx, "/search", payload, &out); err != nil {
		return nil, err
	}

	results := make([]models.WebResult, 0, len(out.Results))
	for _, r := range out.Results {
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		results = append(results, models.WebResult{
			Title:     r.Title,
			URL:       CanonicalURL(r.URL),
			Source:    hostOf(r.URL),
			Content:   content,
			Snippet:   r.Content,
			Published: r.PublishedDate,
			Score:     r.Score,
		})
	}
	return results, nil
}

// Extract fetches the readable text of one page.
func (c *Client) Extract(ctx context.Context, pageURL string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("websearch: API key unset")
	}
	payload := map[string]any{
		"api_key": c.apiKey,
		"urls":    []string{CanonicalURL(pageURL)},
	}
	var out struct {
		Results []struct {
			RawContent string `json:"raw_content"`
		} `json:"results"`
	}
	if err := c.post(ctx, "/extract", payload, &out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", fmt.Errorf("websearch: no extractable content for %s", pageURL)
	}
	return out.Results[0].RawContent, nil
}

// SearchCompanyProfile searches for a company overview and reorders
// results so profile-friendly domains come first. An earlier position
// in ProfileDomains always beats a later one; the API score breaks
// ties within a tier.
func (c *Client) SearchCompanyProfile(ctx context.Context, entity string, topK int) ([]models.WebResult, error) {
	q := entity + " company profile overview 기업 개요 회사 소개 무엇을 하는 회사"
	results, err := c.Search(ctx, q, SearchOptions{TopK: topK, IncludeRawContent: true})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(a, b int) bool {
		pa := DomainPriority(results[a].Source+" "+results[a].URL, ProfileDomains)
		pb := DomainPriority(results[b].Source+" "+results[b].URL, ProfileDomains)
		if pa != pb {
			return pa > pb
		}
		return results[a].Score > results[b].Score
	})
	return results, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("websearch: %s returned %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FallbackSearcher adapts Client to the narrow search shape the query
// pipeline needs for its web fallback.
type FallbackSearcher struct {
	Client *Client
}

func (f FallbackSearcher) Search(ctx context.Context, query string, topK int) ([]models.WebResult, error) {
	return f.Client.Search(ctx, query, SearchOptions{TopK: topK})
}

// DomainPriority scores target by the position of the first matching
// domain: earlier entries get higher priority, no match is zero.
func DomainPriority(target string, domains []string) int {
	target = strings.ToLower(target)
	for i, d := range domains {
		if strings.Contains(target, d) {
			return 100 - i
		}
	}
	return 0
}

// CanonicalURL trims whitespace and drops fragments so the same page
// always dedupes to one key.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Host
}
