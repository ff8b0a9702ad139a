package websearch

import (
	"context"
	"sort"
	"strings"

	"github.com/contentscout/contentscout/pkg/models"
)

// Negative keyword sets for risk monitoring of people and companies in
// the content industry. Korean and English are checked together.
var (
	RiskKeywordsKO = []string{
		"논란", "의혹", "혐의", "수사", "체포", "구속", "기소", "유죄", "징역", "벌금", "송치",
		"소송", "고소", "고발", "분쟁", "법적 대응", "합의금",
		"횡령", "배임", "탈세", "분식회계", "뇌물", "로비", "부패", "갑질", "블랙리스트",
		"성폭력", "성추행", "성희롱", "성범죄", "#미투", "미투", "학폭", "학교폭력", "폭행", "가정폭력",
		"마약", "약물", "음주운전", "도박",
		"표절", "사기", "사문서위조", "허위", "비리",
		"파산", "부도", "리콜", "보이콧", "하차", "제작 중단", "촬영 중단", "방영 중단",
	}
	RiskKeywordsEN = []string{
		"scandal", "controversy", "allegation", "accusation", "investigation", "arrest", "indicted", "lawsuit", "legal dispute",
		"fraud", "embezzlement", "breach of trust", "tax evasion", "bribery", "corruption",
		"sexual assault", "harassment", "#metoo", "bullying", "violence", "assault",
		"drug", "narcotics", "dui", "gambling",
		"plagiarism", "defamation", "fabrication", "misconduct",
		"bankruptcy", "insolvency", "recall", "boycott", "drop out", "production halted", "suspended",
	}
)

// TrustedNewsDomains rank news sources for risk and notice results,
// most trusted first.
var TrustedNewsDomains = []string{
	"yna.co.kr", "yonhapnews", "kbs.co.kr", "mbc.co.kr", "sbs.co.kr",
	"jtbc.co.kr", "newsis.com", "hankyung.com", "edaily.co.kr", "chosun.com", "joongang.co.kr", "hani.co.kr",
	"mk.co.kr", "donga.com", "khan.co.kr", "biz.chosun.com", "news.naver.com",
	"reuters.com", "apnews.com", "bbc.com", "bloomberg.com", "ft.com", "wsj.com", "nytimes.com", "theguardian.com",
	"variety.com", "hollywoodreporter.com", "deadline.com", "thewrap.com",
}

// RiskOptions tune a risk-issue search.
type RiskOptions struct {
	TopK          int
	TrustOnly     bool
	TimeRange     string
	ExtraKeywords []string
}

func riskKeywordSet(extra []string) []string {
	out := make([]string, 0, len(RiskKeywordsKO)+len(RiskKeywordsEN)+len(extra))
	seen := make(map[string]struct{})
	for _, k := range append(append(append([]string{}, RiskKeywordsKO...), RiskKeywordsEN...), extra...) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// BuildRiskQuery composes an advanced search query that OR-joins the
// leading negative keywords after the entity name.
func BuildRiskQuery(entity string) string {
	const perLang = 15
	kws := append(append([]string{}, RiskKeywordsKO[:perLang]...), RiskKeywordsEN[:perLang]...)
	return entity + " (" + strings.Join(kws, " OR ") + ")"
}

// FilterRisk keeps only results that mention at least one negative
// keyword in their title, content or snippet, annotating each with the
// matched keywords and a risk score. Duplicate URLs are dropped,
// first occurrence wins. Ordering: trusted-domain tier, then risk
// score, then raw relevance, all descending.
func FilterRisk(results []models.WebResult, extraKeywords []string) []models.RiskItem {
	kws := riskKeywordSet(extraKeywords)
	seen := make(map[string]struct{})

	var out []models.RiskItem
	for _, r := range results {
		u := CanonicalURL(r.URL)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}

		text := strings.ToLower(r.Title + " " + r.Content + " " + r.Snippet)
		var matched []string
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Strings(matched)

		item := models.RiskItem{
			WebResult:       r,
			RiskScore:       float64(len(matched)) + r.Score,
			MatchedKeywords: matched,
		}
		item.URL = u
		seen[u] = struct{}{}
		out = append(out, item)
	}

	sort.SliceStable(out, func(a, b int) bool {
		pa := DomainPriority(out[a].Source+" "+out[a].URL, TrustedNewsDomains)
		pb := DomainPriority(out[b].Source+" "+out[b].URL, TrustedNewsDomains)
		if pa != pb {
			return pa > pb
		}
		if out[a].RiskScore != out[b].RiskScore {
			return out[a].RiskScore > out[b].RiskScore
		}
		return out[a].Score > out[b].Score
	})
	return out
}

// SearchRiskIssues collects negative news about an entity: an
// over-fetched advanced search, then the keyword filter and trust
// ordering.
func (c *Client) SearchRiskIssues(ctx context.Context, entity string, opts RiskOptions) ([]models.RiskItem, error) {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	fetch := opts.TopK * 2
	if fetch < 12 {
		fetch = 12
	}

	so := SearchOptions{
		TopK:      fetch,
		Depth:     "advanced",
		TimeRange: opts.TimeRange,
	}
	if so.TimeRange == "" {
		so.TimeRange = "y"
	}
	if opts.TrustOnly {
		so.IncludeDomains = TrustedNewsDomains
	}

	raw, err := c.Search(ctx, BuildRiskQuery(entity), so)
	if err != nil {
		return nil, err
	}
	items := FilterRisk(raw, opts.ExtraKeywords)
	if len(items) > opts.TopK {
		items = items[:opts.TopK]
	}
	return items, nil
}
