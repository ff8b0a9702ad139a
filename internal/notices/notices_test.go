package notices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentscout/contentscout/pkg/models"
)

func TestMergeFillDedup(t *testing.T) {
	items := []models.Notice{
		{Title: "AI 영상 제작 지원사업", URL: "https://example.go.kr/1", Source: SourceNIPA, Budget: "-", Agency: "-", Snippet: "모집 공고", Score: 0.7},
		{Title: "AI 영상 제작 지원사업", URL: "https://example.go.kr/1", Source: ProcurementSource, Budget: "1,000,000원", Agency: "정보통신산업진흥원", CloseDate: "2026-09-15"},
		{Title: "다른 사업", URL: "https://example.go.kr/2", Source: SourceWeb, Budget: "-"},
	}

	got := MergeFill(items, nil)
	if len(got) != 2 {
		t.Fatalf("got %d items, want 2 after dedup", len(got))
	}

	var merged models.Notice
	for _, it := range got {
		if it.URL == "https://example.go.kr/1" {
			merged = it
		}
	}
	// Procurement has priority, so its record is the base; the web
	// record's snippet and score fill the gaps.
	if merged.Source != ProcurementSource {
		t.Errorf("source: got %s, want %s", merged.Source, ProcurementSource)
	}
	if merged.Budget != "1,000,000원" {
		t.Errorf("budget: got %q, want filled value", merged.Budget)
	}
	if merged.Agency != "정보통신산업진흥원" {
		t.Errorf("agency: got %q", merged.Agency)
	}
	if merged.Snippet != "모집 공고" {
		t.Errorf("snippet not filled from duplicate: got %q", merged.Snippet)
	}
	if merged.Score != 0.7 {
		t.Errorf("score not filled from duplicate: got %f", merged.Score)
	}
}

func TestMergeFillNeverOverwrites(t *testing.T) {
	items := []models.Notice{
		{Title: "사업", URL: "https://x.go.kr", Source: ProcurementSource, Budget: "500원"},
		{Title: "사업", URL: "https://x.go.kr", Source: SourceWeb, Budget: "999,999원"},
	}
	got := MergeFill(items, nil)
	if len(got) != 1 || got[0].Budget != "500원" {
		t.Errorf("filled field was overwritten: got %+v", got)
	}
}

func TestMergeFillCustomPriority(t *testing.T) {
	items := []models.Notice{
		{Title: "사업", URL: "https://x.go.kr", Source: ProcurementSource, Agency: "기관A"},
		{Title: "사업", URL: "https://x.go.kr", Source: SourceWeb, Agency: "기관B"},
	}
	got := MergeFill(items, []string{SourceWeb, ProcurementSource})
	if len(got) != 1 || got[0].Agency != "기관B" {
		t.Errorf("custom priority ignored: got %+v", got)
	}
}

func TestRankTrustTierDominates(t *testing.T) {
	items := []models.Notice{
		{Title: "개인 블로그 요약", URL: "https://someblog.example.com/post", Source: SourceWeb, Score: 5.0},
		{Title: "나라장터 공고", URL: "https://www.g2b.go.kr/notice/1", Source: ProcurementSource, Score: 0.1},
		{Title: "NIPA 공고", URL: "https://www.nipa.kr/notice/2", Source: SourceNIPA, Score: 0.1},
	}
	got := Rank(items, "", nil)
	if got[0].URL != "https://www.g2b.go.kr/notice/1" {
		t.Errorf("highest trust tier must come first regardless of score: got %s", got[0].URL)
	}
	if got[2].URL != "https://someblog.example.com/post" {
		t.Errorf("untrusted domain must come last: got %s", got[2].URL)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2025-11-04 15:00:00", "2025-11-04 15:00"},
		{"202511041500", "2025-11-04 15:00"},
		{"20251104150000", "2025-11-04 15:00"},
		{"soon", "soon"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := normalizeDate(tc.in); got != tc.want {
			t.Errorf("normalizeDate(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct{ in, want string }{
		{"1000000", "1,000,000원"},
		{"1234567.0", "1,234,567원"},
		{"1,000", "1,000원"},
		{"500", "500원"},
		{"", ""},
		{"협의", "협의"},
	}
	for _, tc := range tests {
		if got := formatMoney(tc.in); got != tc.want {
			t.Errorf("formatMoney(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeWebResultsPlaceholders(t *testing.T) {
	results := []models.WebResult{
		{Title: "공고 A", URL: "https://nipa.kr/a", Snippet: "지원 사업", Score: 0.8},
		{Title: "", URL: ""},
	}
	got := normalizeWebResults(results, SourceNIPA)
	if len(got) != 1 {
		t.Fatalf("malformed record kept: got %d items", len(got))
	}
	n := got[0]
	if n.Agency != "-" || n.CloseDate != "-" || n.Budget != "-" || n.AnnounceDate != "-" {
		t.Errorf("missing fields must hold placeholders: %+v", n)
	}
	if n.Source != SourceNIPA || n.Snippet != "지원 사업" {
		t.Errorf("normalization: %+v", n)
	}
}

func TestProcurementFetchBids(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("serviceKey") != "key" {
			t.Errorf("serviceKey missing from request")
		}
		if r.URL.Query().Get("pageNo") != "1" {
			// Single page of data; further pages are empty.
			json.NewEncoder(w).Encode(map[string]any{
				"response": map[string]any{
					"header": map[string]any{"resultCode": "00"},
					"body":   map[string]any{"items": ""},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{
				"header": map[string]any{"resultCode": "00"},
				"body": map[string]any{
					"items": []map[string]any{
						{
							"bidNtceNm":   "VFX 영상 용역",
							"dminsttNm":   "한국콘텐츠진흥원",
							"bidNtceDt":   "2026-08-20 10:00:00",
							"bidClseDt":   "202609101700",
							"presmptPrce": "150000000",
							"bidNtceNo":   "20260820001",
							"bidNtceOrd":  "01",
						},
						{
							"bidNtceNm": "도로 보수 공사",
							"dminsttNm": "지방자치단체",
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewProcurementClient(ProcurementConfig{
		BaseURL:    srv.URL,
		ServiceKey: "key",
		DateFrom:   "202608170000",
		DateTo:     "202608312359",
	})
	got, err := c.FetchBids(context.Background(), "VFX 용역")
	if err != nil {
		t.Fatalf("FetchBids: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("keyword filter: got %d notices, want 1", len(got))
	}

	n := got[0]
	if n.Title != "VFX 영상 용역" || n.Agency != "한국콘텐츠진흥원" {
		t.Errorf("mapping: %+v", n)
	}
	if n.Budget != "150,000,000원" {
		t.Errorf("budget: got %q", n.Budget)
	}
	if n.AnnounceDate != "2026-08-20 10:00" || n.CloseDate != "2026-09-10 17:00" {
		t.Errorf("dates: got %q / %q", n.AnnounceDate, n.CloseDate)
	}
	if n.URL != "http://www.g2b.go.kr:8101/ep/invitation/publish/bidInfoDtl.do?bidno=20260820001&bidseq=01" {
		t.Errorf("synthesized URL: got %q", n.URL)
	}
}

func TestProcurementAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{
				"header": map[string]any{"resultCode": "30", "resultMsg": "SERVICE_KEY_IS_NOT_REGISTERED_ERROR"},
			},
		})
	}))
	defer srv.Close()

	c := NewProcurementClient(ProcurementConfig{BaseURL: srv.URL, ServiceKey: "bad"})
	if _, err := c.FetchBids(context.Background(), "q"); err == nil {
		t.Error("expected error from API error response")
	}
}
