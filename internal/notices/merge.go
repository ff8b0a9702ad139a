package notices

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/pkg/models"
)

// DefaultSourcePriority orders sources for merging: the structured
// procurement feed wins over scoped web sources, which win over the
// open web.
var DefaultSourcePriority = []string{ProcurementSource, SourceNIPA, SourceBizInfo, SourceWeb}

// normalizeWebResults converts raw web hits into canonical notices.
// Records missing both a title and a URL are malformed and dropped;
// the drop count is logged. Missing display fields hold "-".
func normalizeWebResults(results []models.WebResult, source string) []models.Notice {
	out := make([]models.Notice, 0, len(results))
	dropped := 0
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		u := strings.TrimSpace(r.URL)
		if title == "" && u == "" {
			dropped++
			continue
		}
		snippet := r.Snippet
		if snippet == "" {
			snippet = r.Content
		}
		out = append(out, models.Notice{
			Title:        orDash(title),
			URL:          u,
			Source:       source,
			Agency:       "-",
			AnnounceDate: orDash(strings.TrimSpace(r.Published)),
			CloseDate:    "-",
			Budget:       "-",
			Snippet:      orDash(strings.TrimSpace(snippet)),
			Score:        r.Score,
		})
	}
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Str("source", source).Msg("dropped malformed notice records")
	}
	return out
}

// sourceRank maps a source to its position in priority, unknown
// sources last.
func sourceRank(source string, priority []string) int {
	for i, s := range priority {
		if strings.EqualFold(s, source) {
			return i
		}
	}
	return len(priority)
}

// MergeFill deduplicates notices by (title, url). Records are visited
// in source-priority order; for duplicates, each empty or placeholder
// field is filled from the first record that has a real value, and
// already-filled fields are never overwritten.
func MergeFill(items []models.Notice, priority []string) []models.Notice {
	if len(priority) == 0 {
		priority = DefaultSourcePriority
	}
	ordered := make([]models.Notice, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(a, b int) bool {
		return sourceRank(ordered[a].Source, priority) < sourceRank(ordered[b].Source, priority)
	})

	type key struct{ title, url string }
	index := make(map[key]int)
	var out []models.Notice
	for _, it := range ordered {
		k := key{strings.TrimSpace(it.Title), strings.TrimSpace(it.URL)}
		pos, dup := index[k]
		if !dup {
			index[k] = len(out)
			out = append(out, it)
			continue
		}
		fillNotice(&out[pos], it)
	}
	return out
}

func isEmptyField(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "-"
}

// fillNotice copies later-record values into still-empty fields of the
// kept record.
func fillNotice(dst *models.Notice, src models.Notice) {
	if isEmptyField(dst.Agency) && !isEmptyField(src.Agency) {
		dst.Agency = src.Agency
	}
	if isEmptyField(dst.AnnounceDate) && !isEmptyField(src.AnnounceDate) {
		dst.AnnounceDate = src.AnnounceDate
	}
	if isEmptyField(dst.CloseDate) && !isEmptyField(src.CloseDate) {
		dst.CloseDate = src.CloseDate
	}
	if isEmptyField(dst.Budget) && !isEmptyField(src.Budget) {
		dst.Budget = src.Budget
	}
	if isEmptyField(dst.Snippet) && !isEmptyField(src.Snippet) {
		dst.Snippet = src.Snippet
	}
	if dst.Score == 0 && src.Score != 0 {
		dst.Score = src.Score
	}
}
