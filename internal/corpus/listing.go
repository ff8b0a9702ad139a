package corpus

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/contentscout/contentscout/pkg/models"
)

// rankedLineRe matches a ranked-listing row: "<rank> <title> <number>"
// where the trailing number is usually a weeks-in-top counter.
var rankedLineRe = regexp.MustCompile(`^(\d{1,2})\s+(.+?)\s+(\d+)$`)

// sentinelHeader is a table-header artifact emitted by the listing
// scraper; it is discarded, not data.
const sentinelHeader = "RANKING"

// ListingRow is one raw scraped row of a ranked listing.
type ListingRow struct {
	Path string
	Text string
}

// ParsedRow is the result of parsing a listing line. Rows that do not
// match the ranked pattern keep the full line as Title with nil Rank.
type ParsedRow struct {
	Rank       *int
	Title      string
	WeeksInTop *int
}

// ParseListingLine parses a single listing row. The second return is
// false for the sentinel header row, which callers must drop.
func ParseListingLine(raw string) (ParsedRow, bool) {
	oneLine := anyWSRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if strings.EqualFold(oneLine, sentinelHeader) {
		return ParsedRow{}, false
	}
	m := rankedLineRe.FindStringSubmatch(oneLine)
	if m == nil {
		return ParsedRow{Title: oneLine}, true
	}
	rank, _ := strconv.Atoi(m[1])
	weeks, _ := strconv.Atoi(m[3])
	return ParsedRow{Rank: &rank, Title: strings.TrimSpace(m[2]), WeeksInTop: &weeks}, true
}

// ListingRowsFromFile reads one scraped listing file, one row per
// line. Every row gets its own synthetic source path
// ("listing://<country>/<category>/item_NN") so rows sharing a file
// still produce distinct chunk IDs.
func ListingRowsFromFile(path, country, category string) ([]ListingRow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []ListingRow
	for _, line := range strings.Split(string(b), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, ListingRow{
			Path: fmt.Sprintf("listing://%s/%s/item_%02d", country, category, len(rows)),
			Text: line,
		})
	}
	return rows, nil
}

// BuildListing turns scraped listing rows into a corpus for one
// (country, category) partition. Only the parsed title text is chunked
// and embedded; rank and weeks-in-top live in metadata only.
func BuildListing(rows []ListingRow, country, category string) ([]models.Chunk, error) {
	var out []models.Chunk
	for _, row := range rows {
		parsed, ok := ParseListingLine(row.Text)
		if !ok {
			continue
		}
		for i, text := range ChunkText(CleanText(parsed.Title), DefaultChunkSize, DefaultChunkOverlap) {
			out = append(out, models.Chunk{
				ID:   ChunkID(row.Path, i),
				Text: text,
				Meta: models.Meta{
					SourcePath: row.Path,
					ChunkIndex: i,
					Country:    country,
					Category:   category,
					Rank:       parsed.Rank,
					WeeksInTop: parsed.WeeksInTop,
				},
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyCorpus
	}
	return out, nil
}
