// Package rag runs the retrieve-then-gate query pipeline: embed a
// query, pull top-K contexts from the vector store, decide whether the
// evidence is strong enough, and fall back to web search when it isn't.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/internal/embed"
	"github.com/contentscout/contentscout/internal/store"
	"github.com/contentscout/contentscout/pkg/models"
)

// Fallback reason codes.
const (
	ReasonNoContexts    = "no_contexts"
	ReasonLowConfidence = "low_confidence"
	ReasonSufficient    = "sufficient"
	ReasonDisabled      = "fallback_disabled"
)

// Default gating parameters. All are configuration; these apply when
// the corresponding Options field is zero.
const (
	DefaultTopK          = 5
	DefaultThresholdHigh = 0.78
	DefaultThresholdMean = 0.45
	DefaultMinCount      = 3
	// DefaultFallbackMax caps web results when no contexts were found.
	DefaultFallbackMax = 5
	// DefaultFallbackMaxAugment caps web results when low-scoring
	// contexts already exist, so the web only augments them.
	DefaultFallbackMaxAugment = 2
)

// WebSearcher is the external web-search collaborator.
type WebSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.WebResult, error)
}

// Summarizer produces the answer text from retrieved contexts.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Options configures gating. Zero values fall back to the documented
// defaults. A negative threshold configures an actual zero bar, which
// the zero value cannot express.
type Options struct {
	TopK               int
	ThresholdHigh      float64
	ThresholdMean      float64
	MinCount           int
	WebFallback        bool
	FallbackMax        int
	FallbackMaxAugment int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.ThresholdHigh == 0 {
		o.ThresholdHigh = DefaultThresholdHigh
	} else if o.ThresholdHigh < 0 {
		o.ThresholdHigh = 0
	}
	if o.ThresholdMean == 0 {
		o.ThresholdMean = DefaultThresholdMean
	} else if o.ThresholdMean < 0 {
		o.ThresholdMean = 0
	}
	if o.MinCount <= 0 {
		o.MinCount = DefaultMinCount
	}
	if o.FallbackMax <= 0 {
		o.FallbackMax = DefaultFallbackMax
	}
	if o.FallbackMaxAugment <= 0 {
		o.FallbackMaxAugment = DefaultFallbackMaxAugment
	}
	return o
}

// WebFallback reports whether and why the web-search collaborator was
// consulted for a query.
type WebFallback struct {
	Used    bool               `json:"used"`
	Reason  string             `json:"reason"`
	Results []models.WebResult `json:"web_results,omitempty"`
	Count   int                `json:"web_count"`
}

// Payload is the full result of one query.
type Payload struct {
	Contexts    []models.SearchResult `json:"contexts"`
	Gating      models.Gating         `json:"gating"`
	Answer      string                `json:"answer"`
	WebFallback WebFallback           `json:"web_fallback"`
	Debug       []string              `json:"debug,omitempty"`
}

// Engine ties the embedder, store and optional collaborators together.
type Engine struct {
	embedder   *embed.Embedder
	store      store.VectorStore
	web        WebSearcher
	summarizer Summarizer
	opts       Options
}

// New builds an engine. web and summarizer may be nil; the engine then
// skips fallback and answer generation respectively.
func New(embedder *embed.Embedder, vs store.VectorStore, web WebSearcher, summarizer Summarizer, opts Options) *Engine {
	return &Engine{
		embedder:   embedder,
		store:      vs,
		web:        web,
		summarizer: summarizer,
		opts:       opts.withDefaults(),
	}
}

// Handle runs the full pipeline for one query. The debug trail is
// accumulated per call; the engine itself holds no mutable state.
func (e *Engine) Handle(ctx context.Context, query string) (Payload, error) {
	var debug []string
	trace := func(format string, args ...any) {
		debug = append(debug, fmt.Sprintf(format, args...))
	}

	qvec, err := e.embedder.EncodeOne(ctx, query)
	if err != nil {
		return Payload{}, fmt.Errorf("rag: embedding query: %w", err)
	}

	contexts, err := e.store.Search(ctx, qvec, e.opts.TopK)
	if err != nil {
		return Payload{}, fmt.Errorf("rag: searching store: %w", err)
	}
	trace("retrieved %d contexts (top_k=%d)", len(contexts), e.opts.TopK)

	gating := e.gate(contexts)
	trace("gating status=%s top=%.4f mean=%.4f", gating.Status, gating.TopScore, gating.MeanTopK)

	fb := e.fallback(ctx, query, gating, len(contexts), trace)

	answer := e.answer(ctx, query, contexts, fb.Results, trace)

	return Payload{
		Contexts:    contexts,
		Gating:      gating,
		Answer:      answer,
		WebFallback: fb,
		Debug:       debug,
	}, nil
}

// gate classifies retrieval strength. Sufficient when the best hit
// clears the high bar, or enough hits clear the mean bar together.
func (e *Engine) gate(contexts []models.SearchResult) models.Gating {
	g := models.Gating{Status: models.GatingInsufficient}
	if len(contexts) == 0 {
		return g
	}
	var sum float64
	for _, c := range contexts {
		sum += c.Score
		if c.Score > g.TopScore {
			g.TopScore = c.Score
		}
	}
	g.MeanTopK = sum / float64(len(contexts))

	if g.TopScore >= e.opts.ThresholdHigh ||
		(len(contexts) >= e.opts.MinCount && g.MeanTopK >= e.opts.ThresholdMean) {
		g.Status = models.GatingSufficient
	}
	return g
}

func (e *Engine) fallback(ctx context.Context, query string, gating models.Gating, nContexts int, trace func(string, ...any)) WebFallback {
	if gating.Status == models.GatingSufficient {
		return WebFallback{Used: false, Reason: ReasonSufficient}
	}
	if !e.opts.WebFallback || e.web == nil {
		return WebFallback{Used: false, Reason: ReasonDisabled}
	}

	reason := ReasonNoContexts
	limit := e.opts.FallbackMax
	if nContexts > 0 {
		reason = ReasonLowConfidence
		limit = e.opts.FallbackMaxAugment
	}

	results, err := e.web.Search(ctx, query, limit)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("web fallback failed")
		trace("web fallback (%s) failed: %v", reason, err)
		return WebFallback{Used: false, Reason: reason}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	trace("web fallback (%s) returned %d results", reason, len(results))
	return WebFallback{Used: true, Reason: reason, Results: results, Count: len(results)}
}

// answer asks the summarizer for a response grounded in the evidence.
// Summarizer failure degrades to an empty answer; the contexts and
// gating decision still reach the caller.
func (e *Engine) answer(ctx context.Context, query string, contexts []models.SearchResult, web []models.WebResult, trace func(string, ...any)) string {
	if e.summarizer == nil {
		return ""
	}
	if len(contexts) == 0 && len(web) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Answer the question using only the evidence below.\n\n")
	b.WriteString("Question: " + query + "\n\nEvidence:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, c.Chunk.Meta.SourcePath, c.Chunk.Text)
	}
	for i, w := range web {
		fmt.Fprintf(&b, "[web %d] %s: %s\n", i+1, w.Title, firstNonEmpty(w.Content, w.Snippet))
	}

	answer, err := e.summarizer.Summarize(ctx, b.String())
	if err != nil {
		log.Warn().Err(err).Msg("summarization failed, returning empty answer")
		trace("summarization failed: %v", err)
		return ""
	}
	return strings.TrimSpace(answer)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
