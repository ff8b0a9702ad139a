package models

// Meta carries per-chunk metadata. SourcePath and ChunkIndex are always
// set; Country, Category, Rank and WeeksInTop are populated only by the
// ranked-listing ingestion path.
type Meta struct {
	SourcePath string `json:"path"`
	ChunkIndex int    `json:"chunk"`
	Country    string `json:"country,omitempty"`
	Category   string `json:"category,omitempty"`
	Rank       *int   `json:"rank,omitempty"`
	WeeksInTop *int   `json:"weeks_in_top,omitempty"`
}

// Chunk is the unit of embedding and retrieval: a bounded span of
// cleaned source text plus its metadata.
type Chunk struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Meta Meta   `json:"meta"`
}

// SearchResult pairs a retrieved chunk with its similarity score for a
// specific query. Higher is more similar.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Gating status values.
const (
	GatingSufficient   = "sufficient"
	GatingInsufficient = "insufficient"
)

// Gating is the per-query confidence decision derived from the top-K
// retrieval scores. It is computed fresh per query and never stored.
type Gating struct {
	Status   string  `json:"status"`
	TopScore float64 `json:"top_score"`
	MeanTopK float64 `json:"mean_topk"`
}

// WebResult is one item returned by the external web-search collaborator.
type WebResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Source    string  `json:"source,omitempty"`
	Content   string  `json:"content,omitempty"`
	Snippet   string  `json:"snippet,omitempty"`
	Published string  `json:"published_date,omitempty"`
	Score     float64 `json:"score"`
}

// Notice is the canonical normalized form of a procurement or grant
// announcement. Missing display fields hold "-" rather than being
// absent so renderers never branch on presence.
type Notice struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Source       string  `json:"source"`
	Agency       string  `json:"agency"`
	AnnounceDate string  `json:"announce_date"`
	CloseDate    string  `json:"close_date"`
	Budget       string  `json:"budget"`
	Snippet      string  `json:"snippet"`
	Score        float64 `json:"score"`
}

// RiskItem is a web result that matched at least one negative keyword,
// annotated with the match list for transparency.
type RiskItem struct {
	WebResult
	RiskScore       float64  `json:"risk_score"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// Quote is a single symbol's price lookup. A failed lookup carries its
// error in Err and never fails the batch.
type Quote struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Err      string  `json:"error,omitempty"`
}
