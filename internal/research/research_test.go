package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contentscout/contentscout/internal/finance"
	"github.com/contentscout/contentscout/internal/websearch"
)

func TestLooksLikeTicker(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"AAPL outlook", true},
		{"005930 실적", true},
		{"005930.KS price", true},
		{"what is the weather", false},
		{"CJ ENM quarterly report", true},
	}
	for _, tc := range tests {
		if got := LooksLikeTicker(tc.query); got != tc.want {
			t.Errorf("LooksLikeTicker(%q): got %v, want %v", tc.query, got, tc.want)
		}
	}
}

func searchServer(t *testing.T, fail bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "A", "url": "https://a.example.com", "content": "a", "score": 0.9},
				{"title": "B", "url": "https://b.example.com", "content": "b", "score": 0.8},
			},
		})
	}))
}

func quoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []map[string]any{
					{"meta": map[string]any{"regularMarketPrice": 42.0, "currency": "USD"}},
				},
			},
		})
	}))
}

func TestHandleMergesTasks(t *testing.T) {
	web := searchServer(t, false)
	defer web.Close()
	quotes := quoteServer(t)
	defer quotes.Close()

	e := New(websearch.NewClient("key", web.URL), finance.NewClient(quotes.URL), nil)
	got := e.Handle(context.Background(), "market news", Plan{
		DoWeb:    true,
		DoStocks: true,
		Tickers:  []string{"AAPL"},
	})

	if len(got.WebTop) != 2 {
		t.Errorf("web_top: got %d results", len(got.WebTop))
	}
	if len(got.Prices) != 1 || got.Prices[0].Price != 42.0 {
		t.Errorf("prices: got %+v", got.Prices)
	}
	if len(got.Errors) != 0 {
		t.Errorf("unexpected errors: %v", got.Errors)
	}
}

func TestHandlePartialFailure(t *testing.T) {
	web := searchServer(t, true)
	defer web.Close()
	quotes := quoteServer(t)
	defer quotes.Close()

	e := New(websearch.NewClient("key", web.URL), finance.NewClient(quotes.URL), nil)
	got := e.Handle(context.Background(), "market news", Plan{
		DoWeb:    true,
		DoStocks: true,
		Tickers:  []string{"AAPL"},
	})

	// Quotes still arrive even though web search failed.
	if len(got.Prices) != 1 {
		t.Errorf("prices lost on sibling failure: got %+v", got.Prices)
	}
	if len(got.WebTop) != 0 {
		t.Errorf("web_top should be empty on failure: got %+v", got.WebTop)
	}
	found := false
	for _, msg := range got.Errors {
		if strings.HasPrefix(msg, "web: ") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a labeled web error, got %v", got.Errors)
	}
}

func TestHandleEmptyPlan(t *testing.T) {
	e := New(nil, nil, nil)
	got := e.Handle(context.Background(), "plain question with no tasks", Plan{})
	if got.WebTop == nil || got.Prices == nil || got.Errors == nil {
		t.Error("payload slices must be non-nil even with no tasks")
	}
	if len(got.Errors) != 0 {
		t.Errorf("unexpected errors: %v", got.Errors)
	}
}
