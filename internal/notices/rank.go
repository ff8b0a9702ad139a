package notices

import (
	"sort"
	"strings"
	"time"

	"github.com/contentscout/contentscout/internal/websearch"
	"github.com/contentscout/contentscout/pkg/models"
)

// AuthoritativeDomains rank notice hosts by trust, most trusted
// first. Government portals dominate agency sites, which dominate
// everything else.
var AuthoritativeDomains = []string{
	"g2b.go.kr", "pps.go.kr", "data.go.kr",
	"nipa.kr", "bizinfo.go.kr", "kocca.kr", "msit.go.kr", "mcst.go.kr",
	"smes.go.kr", "k-startup.go.kr",
}

const (
	urgencyWindow = 7 * 24 * time.Hour
	urgencyBonus  = 0.3
)

// Rank orders notices for display. Trust tier is the primary key and
// always dominates; the composite score (source relevance, keyword
// relevance and deadline urgency) breaks ties within a tier.
func Rank(items []models.Notice, query string, trusted []string) []models.Notice {
	if len(trusted) == 0 {
		trusted = AuthoritativeDomains
	}
	now := time.Now()

	type scored struct {
		notice    models.Notice
		tier      int
		composite float64
	}
	ranked := make([]scored, len(items))
	for i, it := range items {
		ranked[i] = scored{
			notice:    it,
			tier:      websearch.DomainPriority(it.URL, trusted),
			composite: it.Score + keywordRelevance(it, query) + urgency(it.CloseDate, now),
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].tier != ranked[b].tier {
			return ranked[a].tier > ranked[b].tier
		}
		return ranked[a].composite > ranked[b].composite
	})

	out := make([]models.Notice, len(ranked))
	for i, r := range ranked {
		out[i] = r.notice
		out[i].Score = r.composite
	}
	return out
}

// keywordRelevance counts query words appearing in the title and
// snippet, scaled down so source relevance stays comparable.
func keywordRelevance(it models.Notice, query string) float64 {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(words) == 0 {
		return 0
	}
	haystack := strings.ToLower(it.Title + " " + it.Snippet)
	hits := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			hits++
		}
	}
	return 0.1 * float64(hits)
}

// urgency rewards notices whose deadline closes soon but has not
// passed.
func urgency(closeDate string, now time.Time) float64 {
	closeDate = strings.TrimSpace(closeDate)
	if closeDate == "" || closeDate == "-" {
		return 0
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, closeDate); err == nil {
			d := t.Sub(now)
			if d > 0 && d <= urgencyWindow {
				return urgencyBonus
			}
			return 0
		}
	}
	return 0
}
