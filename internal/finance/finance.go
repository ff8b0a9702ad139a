// Package finance fetches spot quotes for stock symbols. Lookups are
// best effort: a failed symbol carries its error inside the quote and
// never fails the batch.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/contentscout/contentscout/pkg/models"
)

const defaultTimeout = 20 * time.Second

var krxSymbolRe = regexp.MustCompile(`^\d{6}$`)

// NormalizeSymbol appends the Korea Exchange suffix to bare six-digit
// codes; everything else passes through unchanged.
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if krxSymbolRe.MatchString(s) {
		return s + ".KS"
	}
	return s
}

// Client queries a quote endpoint that serves Yahoo-style chart
// responses per symbol.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client. baseURL may be empty for the public
// endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// GetQuotes looks up every symbol and returns one quote per input, in
// order. Per-symbol failures are recorded on the quote itself.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) []models.Quote {
	out := make([]models.Quote, 0, len(symbols))
	for _, raw := range symbols {
		sym := NormalizeSymbol(raw)
		q, err := c.quote(ctx, sym)
		if err != nil {
			out = append(out, models.Quote{Symbol: sym, Err: err.Error()})
			continue
		}
		out = append(out, q)
	}
	return out
}

func (c *Client) quote(ctx context.Context, symbol string) (models.Quote, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Quote{}, err
	}
	req.Header.Set("User-Agent", "contentscout/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, fmt.Errorf("quote endpoint returned %s", resp.Status)
	}

	var out struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					Currency           string  `json:"currency"`
				} `json:"meta"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Quote{}, err
	}
	if out.Chart.Error != nil {
		return models.Quote{}, fmt.Errorf("quote lookup failed: %s", out.Chart.Error.Description)
	}
	if len(out.Chart.Result) == 0 {
		return models.Quote{}, fmt.Errorf("no quote data for %s", symbol)
	}

	meta := out.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 || meta.Currency == "" {
		return models.Quote{}, fmt.Errorf("price or currency missing for %s", symbol)
	}
	return models.Quote{Symbol: symbol, Price: meta.RegularMarketPrice, Currency: meta.Currency}, nil
}
