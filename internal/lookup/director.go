// Package lookup provides small structured lookups that short-circuit
// the generic retrieval pipeline when they match a query exactly.
package lookup

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// DirectorTable maps a director's name to how many times their films
// reached the top chart position.
type DirectorTable struct {
	counts map[string]int
}

// LoadDirectorCSV reads a ranking export. The first line is a header;
// each data row is (index, name, count). Rows with a non-numeric count
// are skipped with a warning rather than failing the load.
func LoadDirectorCSV(path string) (*DirectorTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("lookup: parsing %s: %w", path, err)
	}

	counts := make(map[string]int)
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		// Leading index column is optional in exports.
		fields := row
		if len(fields) > 2 && (strings.TrimSpace(fields[0]) == "" || isInt(fields[0])) {
			fields = fields[1:]
		}
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimSpace(fields[0])
		raw := strings.ReplaceAll(strings.TrimSpace(fields[1]), ",", "")
		if name == "" || raw == "" {
			continue
		}
		count, err := strconv.Atoi(raw)
		if err != nil {
			log.Warn().Str("name", name).Str("count", raw).Int("line", i+1).Msg("skipping unparseable ranking row")
			continue
		}
		counts[name] = count
	}
	return &DirectorTable{counts: counts}, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

// Len reports how many directors are loaded.
func (t *DirectorTable) Len() int { return len(t.counts) }

// Match finds a director referenced by the query. An exact match on
// the trimmed query wins; otherwise the longest director name that
// appears inside the query is used. Returns false when nothing
// matches.
func (t *DirectorTable) Match(query string) (name string, count int, ok bool) {
	q := strings.TrimSpace(query)
	if c, found := t.counts[q]; found {
		return q, c, true
	}

	// Longest contained name wins so "김한민" beats "한민" if both
	// exist. Iterate sorted for deterministic results on equal length.
	names := make([]string, 0, len(t.counts))
	for n := range t.counts {
		names = append(names, n)
	}
	sort.Strings(names)

	best := ""
	for _, n := range names {
		if strings.Contains(q, n) && len(n) > len(best) {
			best = n
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, t.counts[best], true
}
