// Package notices finds government funding and procurement
// announcements across several sources and merges them into one
// ranked list of canonical records.
package notices

import (
	"context"
	"strings"

	"github.com/contentscout/contentscout/internal/websearch"
	"github.com/contentscout/contentscout/pkg/models"
)

// Source labels for web-fetched notices.
const (
	SourceNIPA    = "NIPA"
	SourceBizInfo = "BizInfo"
	SourceWeb     = "web"
)

// Recommended per-source result counts.
const (
	NIPATopK    = 3
	BizInfoTopK = 2
	WebTopK     = 2
)

// mediaKeywords reinforce queries that lack a content-industry term,
// keeping generic queries on topic.
var mediaKeywords = []string{"영상", "미디어", "콘텐츠", "스트리밍", "VR", "AR", "AI"}

func hasMediaKeyword(q string) bool {
	for _, kw := range mediaKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// buildQuery reinforces the query with announcement keywords, plus
// media keywords when the query has none, plus an optional site
// restriction.
func buildQuery(query, site string) string {
	var b strings.Builder
	b.WriteString(query)
	if !hasMediaKeyword(query) {
		b.WriteString(" 영상 미디어 콘텐츠")
	}
	b.WriteString(" 공고 모집 지원")
	if site != "" {
		b.WriteString(" site:" + site)
	}
	return b.String()
}

// Fetcher runs domain-scoped announcement searches against the web
// search API.
type Fetcher struct {
	web *websearch.Client
}

// NewFetcher builds a fetcher over the given search client.
func NewFetcher(web *websearch.Client) *Fetcher {
	return &Fetcher{web: web}
}

// FetchNIPA searches announcements on the IT industry promotion
// agency's site.
func (f *Fetcher) FetchNIPA(ctx context.Context, query string, topK int) ([]models.Notice, error) {
	if topK <= 0 {
		topK = NIPATopK
	}
	results, err := f.web.Search(ctx, buildQuery(query, "nipa.kr"), websearch.SearchOptions{
		TopK:           topK,
		IncludeDomains: []string{"nipa.kr"},
	})
	if err != nil {
		return nil, err
	}
	return normalizeWebResults(results, SourceNIPA), nil
}

// FetchBizInfo searches announcements on the SME support portal.
func (f *Fetcher) FetchBizInfo(ctx context.Context, query string, topK int) ([]models.Notice, error) {
	if topK <= 0 {
		topK = BizInfoTopK
	}
	results, err := f.web.Search(ctx, buildQuery(query, "bizinfo.go.kr"), websearch.SearchOptions{
		TopK:           topK,
		IncludeDomains: []string{"bizinfo.go.kr"},
	})
	if err != nil {
		return nil, err
	}
	return normalizeWebResults(results, SourceBizInfo), nil
}

// FetchWeb is the open-web recall pass; noise is filtered downstream
// by normalization and ranking.
func (f *Fetcher) FetchWeb(ctx context.Context, query string, topK int) ([]models.Notice, error) {
	if topK <= 0 {
		topK = WebTopK
	}
	results, err := f.web.Search(ctx, buildQuery(query, ""), websearch.SearchOptions{TopK: topK})
	if err != nil {
		return nil, err
	}
	return normalizeWebResults(results, SourceWeb), nil
}
