// Package router dispatches a user query to the cheapest handler able
// to answer it: exact structured lookups first, ranked-listing
// extraction second, the generic retrieval pipeline last. Every
// handler returns a typed answer; collaborator failures surface as
// fields on the answer, never as raw errors.
package router

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/internal/lookup"
	"github.com/contentscout/contentscout/internal/notices"
	"github.com/contentscout/contentscout/internal/rag"
	"github.com/contentscout/contentscout/internal/research"
	"github.com/contentscout/contentscout/pkg/models"
)

// Answer kinds.
const (
	KindDirector = "director"
	KindListing  = "listing"
	KindRAG      = "rag"
	KindNotices  = "notices"
	KindResearch = "research"
)

// Answer is the closed set of reply shapes. Each handler produces
// exactly one kind; callers switch on Kind instead of probing fields.
type Answer interface {
	Kind() string
}

// DirectorAnswer is an exact structured hit against the director
// ranking table.
type DirectorAnswer struct {
	Query   string `json:"query"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

func (DirectorAnswer) Kind() string { return KindDirector }

// ListingAnswer is a rank-ordered extraction for one chart partition.
type ListingAnswer struct {
	Query    string               `json:"query"`
	Country  string               `json:"country"`
	Category string               `json:"category"`
	Items    []lookup.ListingItem `json:"items"`
}

func (ListingAnswer) Kind() string { return KindListing }

// RAGAnswer wraps the generic retrieval pipeline's payload. Error is
// set when the pipeline itself failed; the zero payload is then
// returned alongside it.
type RAGAnswer struct {
	Query   string      `json:"query"`
	Payload rag.Payload `json:"payload"`
	Error   string      `json:"error,omitempty"`
}

func (RAGAnswer) Kind() string { return KindRAG }

// NoticesAnswer wraps a notice search invoked via its own route.
type NoticesAnswer struct {
	Payload notices.Payload `json:"payload"`
}

func (NoticesAnswer) Kind() string { return KindNotices }

// ResearchAnswer wraps a research fan-out invoked via its own route.
type ResearchAnswer struct {
	Payload research.Payload `json:"payload"`
}

func (ResearchAnswer) Kind() string { return KindResearch }

// Partition names one (country, category) chart present in the index,
// with the display tokens that select it from a query.
type Partition struct {
	Country  string
	Category string
	// Aliases are extra query tokens that select this partition, e.g.
	// localized country names.
	Aliases []string
}

// DefaultPartitions covers the chart partitions the indexer scrapes
// out of the box.
var DefaultPartitions = []Partition{
	{Country: "KR", Category: "film", Aliases: []string{"korean film", "한국 영화"}},
	{Country: "KR", Category: "show", Aliases: []string{"korean show", "한국 드라마"}},
}

func (p Partition) matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(q, strings.ToLower(p.Country)) && strings.Contains(q, strings.ToLower(p.Category)) {
		return true
	}
	for _, a := range p.Aliases {
		if strings.Contains(q, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

var topNRe = regexp.MustCompile(`(?i)top\s*(\d{1,2})`)

const defaultListingLimit = 10

// Router owns the dispatch order. Directors and chunks are optional;
// a nil collaborator skips its stage.
type Router struct {
	directors  *lookup.DirectorTable
	chunks     []models.Chunk
	partitions []Partition
	engine     *rag.Engine
}

// New builds a router. chunks feeds listing extraction and should be
// the indexed corpus of the ranked listings, if any.
func New(directors *lookup.DirectorTable, chunks []models.Chunk, partitions []Partition, engine *rag.Engine) *Router {
	return &Router{
		directors:  directors,
		chunks:     chunks,
		partitions: partitions,
		engine:     engine,
	}
}

// Dispatch answers a query with the first matching handler.
func (r *Router) Dispatch(ctx context.Context, query string) Answer {
	if r.directors != nil {
		if name, count, ok := r.directors.Match(query); ok {
			return DirectorAnswer{
				Query:   query,
				Name:    name,
				Count:   count,
				Message: fmt.Sprintf("%s topped the chart %d times.", name, count),
			}
		}
	}

	if len(r.chunks) > 0 {
		for _, p := range r.partitions {
			if !p.matches(query) {
				continue
			}
			limit := defaultListingLimit
			if m := topNRe.FindStringSubmatch(query); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					limit = n
				}
			}
			items := lookup.ExtractListing(r.chunks, p.Country, p.Category, limit)
			if len(items) > 0 {
				return ListingAnswer{Query: query, Country: p.Country, Category: p.Category, Items: items}
			}
		}
	}

	if r.engine == nil {
		return RAGAnswer{Query: query, Error: "retrieval engine unavailable"}
	}
	payload, err := r.engine.Handle(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("retrieval pipeline failed")
		return RAGAnswer{Query: query, Error: err.Error()}
	}
	return RAGAnswer{Query: query, Payload: payload}
}
