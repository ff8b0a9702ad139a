package lookup

import (
	"sort"
	"strings"

	"github.com/contentscout/contentscout/pkg/models"
)

// ListingItem is one rank-ordered entry extracted from listing
// metadata.
type ListingItem struct {
	Rank       int    `json:"rank"`
	Title      string `json:"title"`
	WeeksInTop int    `json:"weeks_in_top,omitempty"`
}

// ExtractListing pulls the ranked items for one (country, category)
// partition out of indexed chunks, ordered by rank ascending. Chunks
// without a rank are excluded; limit <= 0 means no limit.
func ExtractListing(chunks []models.Chunk, country, category string, limit int) []ListingItem {
	var items []ListingItem
	for _, c := range chunks {
		m := c.Meta
		if m.Rank == nil {
			continue
		}
		if !strings.EqualFold(m.Country, country) || !strings.EqualFold(m.Category, category) {
			continue
		}
		item := ListingItem{Rank: *m.Rank, Title: c.Text}
		if m.WeeksInTop != nil {
			item.WeeksInTop = *m.WeeksInTop
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].Rank < items[b].Rank })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
