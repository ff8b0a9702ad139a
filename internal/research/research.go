// Package research fans a market-research query out to independent
// collaborators (web search, stock quotes, company profile, risk
// issues) and merges their results into one payload. Each task either
// contributes its field or records a labeled error; a single failed
// collaborator never sinks the whole query.
package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/internal/finance"
	"github.com/contentscout/contentscout/internal/websearch"
	"github.com/contentscout/contentscout/pkg/models"
)

const (
	maxWorkers     = 4
	defaultWebTopK = 6
	profileSources = 2
	webTopCut      = 5
)

// tickerRe spots explicit stock symbols: US-style letters with an
// optional exchange suffix, or six-digit KRX codes.
var tickerRe = regexp.MustCompile(`\b([A-Z]{1,5}(?:\.[A-Z]{2,4})?|\d{6}(?:\.[A-Z]{2,4})?)\b`)

// LooksLikeTicker reports whether the query mentions a stock symbol.
func LooksLikeTicker(q string) bool {
	return tickerRe.MatchString(q)
}

// ExtractTickers pulls distinct ticker-looking tokens from a query in
// order of first appearance.
func ExtractTickers(q string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range tickerRe.FindAllString(q, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Plan selects which collaborators run for a query.
type Plan struct {
	DoWeb      bool
	DoStocks   bool
	DoRisk     bool
	Tickers    []string
	WebTopK    int
	RiskTopK   int
	RiskEntity string
}

// Payload is the merged fan-out result.
type Payload struct {
	Query          string             `json:"query"`
	WebTop         []models.WebResult `json:"web_top"`
	Prices         []models.Quote     `json:"prices"`
	CompanyProfile string             `json:"company_profile"`
	ProfileSources []string           `json:"profile_sources"`
	RiskTop        []models.RiskItem  `json:"risk_top"`
	Errors         []string           `json:"errors"`
}

// Summarizer condenses extracted page text into a short profile.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Engine holds the collaborators. Any of web, quotes or summarizer
// may be nil; the matching tasks are then skipped or degraded.
type Engine struct {
	web        *websearch.Client
	quotes     *finance.Client
	summarizer Summarizer
}

// New builds an engine.
func New(web *websearch.Client, quotes *finance.Client, summarizer Summarizer) *Engine {
	return &Engine{web: web, quotes: quotes, summarizer: summarizer}
}

// taskResult is one labeled outcome flowing back from the pool. Only
// the field matching its kind is populated, so merging is a plain
// field assignment per kind.
type taskResult struct {
	kind     string
	web      []models.WebResult
	quotes   []models.Quote
	profile  string
	sources  []string
	risk     []models.RiskItem
	err      error
}

// Handle runs the plan's tasks over a bounded worker pool and merges
// whatever came back.
func (e *Engine) Handle(ctx context.Context, query string, plan Plan) Payload {
	if plan.WebTopK <= 0 {
		plan.WebTopK = defaultWebTopK
	}
	if plan.RiskTopK <= 0 {
		plan.RiskTopK = 8
	}

	type task struct {
		kind string
		run  func(context.Context) taskResult
	}
	var tasks []task

	if plan.DoWeb && e.web != nil {
		tasks = append(tasks, task{"web", func(ctx context.Context) taskResult {
			items, err := e.web.Search(ctx, query, websearch.SearchOptions{TopK: plan.WebTopK})
			return taskResult{kind: "web", web: items, err: err}
		}})
	}
	if plan.DoStocks && len(plan.Tickers) > 0 && e.quotes != nil {
		tasks = append(tasks, task{"stock", func(ctx context.Context) taskResult {
			return taskResult{kind: "stock", quotes: e.quotes.GetQuotes(ctx, plan.Tickers)}
		}})
	}
	if (LooksLikeTicker(query) || len(plan.Tickers) > 0) && e.web != nil {
		tasks = append(tasks, task{"profile", func(ctx context.Context) taskResult {
			profile, sources, err := e.fetchProfile(ctx, query)
			return taskResult{kind: "profile", profile: profile, sources: sources, err: err}
		}})
	}
	if plan.DoRisk && e.web != nil {
		entity := plan.RiskEntity
		if entity == "" {
			entity = query
		}
		tasks = append(tasks, task{"risk", func(ctx context.Context) taskResult {
			items, err := e.web.SearchRiskIssues(ctx, entity, websearch.RiskOptions{TopK: plan.RiskTopK, TrustOnly: true})
			return taskResult{kind: "risk", risk: items, err: err}
		}})
	}

	out := Payload{
		Query:          query,
		WebTop:         []models.WebResult{},
		Prices:         []models.Quote{},
		ProfileSources: []string{},
		RiskTop:        []models.RiskItem{},
		Errors:         []string{},
	}
	if len(tasks) == 0 {
		return out
	}

	work := make(chan task, len(tasks))
	results := make(chan taskResult, len(tasks))

	workers := maxWorkers
	if len(tasks) < workers {
		workers = len(tasks)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range work {
				results <- t.run(ctx)
			}
		}()
	}
	for _, t := range tasks {
		work <- t
	}
	close(work)
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			msg := fmt.Sprintf("%s: %v", r.kind, r.err)
			log.Warn().Str("task", r.kind).Err(r.err).Msg("research task failed")
			out.Errors = append(out.Errors, msg)
			continue
		}
		switch r.kind {
		case "web":
			out.WebTop = topResults(r.web, webTopCut)
		case "stock":
			out.Prices = r.quotes
		case "profile":
			out.CompanyProfile = r.profile
			if r.sources != nil {
				out.ProfileSources = r.sources
			}
		case "risk":
			out.RiskTop = r.risk
		}
	}
	return out
}

// fetchProfile finds profile pages, extracts the best one or two, and
// summarizes them. Extraction failures skip the page; summarization
// failure degrades to an empty profile.
func (e *Engine) fetchProfile(ctx context.Context, query string) (string, []string, error) {
	found, err := e.web.SearchCompanyProfile(ctx, query, profileSources)
	if err != nil {
		return "", nil, err
	}
	if len(found) == 0 {
		return "", []string{}, nil
	}

	const maxChars = 6000
	var texts []string
	var sources []string
	for _, r := range found[:min(len(found), profileSources)] {
		text, err := e.web.Extract(ctx, r.URL)
		if err != nil {
			log.Debug().Str("url", r.URL).Err(err).Msg("profile extraction failed")
			continue
		}
		if len(text) > maxChars {
			text = text[:maxChars]
		}
		if len(text) > 500 {
			texts = append(texts, fmt.Sprintf("[%s]\n%s", r.URL, text))
			sources = append(sources, r.URL)
		}
	}
	if len(texts) == 0 || e.summarizer == nil {
		return "", sources, nil
	}

	prompt := "Summarize the company overview below in 5-7 short lines: " +
		"core business and products, revenue sources, key markets and customers, " +
		"differentiators, and recent issues if any. Skip deep financial detail.\n\n" +
		strings.Join(texts, "\n\n---\n\n")
	profile, err := e.summarizer.Summarize(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("profile summarization failed")
		return "", sources, nil
	}
	return strings.TrimSpace(profile), sources, nil
}

func topResults(items []models.WebResult, k int) []models.WebResult {
	if len(items) > k {
		return items[:k]
	}
	return items
}
