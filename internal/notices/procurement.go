package notices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contentscout/contentscout/pkg/models"
)

const (
	defaultProcurementBase = "https://apis.data.go.kr/1230000/BidPublicInfoService"
	defaultOperation       = "getBidPblancListInfoServcPPSSrch"
	defaultPageMax         = 3
	defaultPageRows        = 50

	// ProcurementSource labels records from the national procurement
	// OpenAPI.
	ProcurementSource = "g2b"
)

// ProcurementConfig configures the bid-notice OpenAPI client. The
// operation name is fixed configuration; there is no fallback cascade
// across candidate operations.
type ProcurementConfig struct {
	BaseURL    string
	Operation  string
	ServiceKey string
	DateFrom   string // yyyymmddHHMM, empty = 14 days ago
	DateTo     string // yyyymmddHHMM, empty = today 23:59
	PageMax    int
	Rows       int
}

// ProcurementClient fetches bid notices from the government
// procurement OpenAPI.
type ProcurementClient struct {
	cfg  ProcurementConfig
	http *http.Client
}

// NewProcurementClient applies defaults and builds a client.
func NewProcurementClient(cfg ProcurementConfig) *ProcurementClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultProcurementBase
	}
	if cfg.Operation == "" {
		cfg.Operation = defaultOperation
	}
	if cfg.PageMax <= 0 {
		cfg.PageMax = defaultPageMax
	}
	if cfg.Rows <= 0 {
		cfg.Rows = defaultPageRows
	}
	return &ProcurementClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 20 * time.Second},
	}
}

// bidRecord keeps raw API fields loosely typed; different datasets
// use different key names for the same concept.
type bidRecord map[string]any

func (r bidRecord) pick(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s != "" && s != "<nil>" {
				return s
			}
		}
	}
	return ""
}

func (r bidRecord) title() string  { return r.pick("bidNtceNm", "bidNm", "ntceNm") }
func (r bidRecord) agency() string { return r.pick("dminsttNm", "ntceInsttNm", "orgNm") }

// detailURL prefers the API-provided link, falling back to the portal
// detail page synthesized from notice number and round.
func (r bidRecord) detailURL() string {
	if u := r.pick("bidNtceUrl"); u != "" {
		return u
	}
	bidNo := r.pick("bidNtceNo", "bidno")
	if bidNo == "" {
		return ""
	}
	bidSeq := r.pick("bidNtceOrd", "bidseq")
	if bidSeq == "" {
		bidSeq = "0"
	}
	return fmt.Sprintf("http://www.g2b.go.kr:8101/ep/invitation/publish/bidInfoDtl.do?bidno=%s&bidseq=%s", bidNo, bidSeq)
}

// FetchBids pages through the configured operation and returns notices
// matching the keyword. The date window is applied server-side; the
// keyword filter runs client-side over title and agency because the
// list operation has no reliable text-search parameter.
func (c *ProcurementClient) FetchBids(ctx context.Context, keyword string) ([]models.Notice, error) {
	if c.cfg.ServiceKey == "" {
		return nil, errors.New("notices: procurement service key unset")
	}

	from, to := c.dateWindow()
	var all []bidRecord
	for page := 1; page <= c.cfg.PageMax; page++ {
		items, err := c.fetchPage(ctx, from, to, page)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
	}

	all = filterByKeyword(all, keyword)
	return toNotices(all), nil
}

func (c *ProcurementClient) dateWindow() (string, string) {
	if c.cfg.DateFrom != "" && c.cfg.DateTo != "" {
		return c.cfg.DateFrom, c.cfg.DateTo
	}
	kst := time.FixedZone("KST", 9*60*60)
	now := time.Now().In(kst)
	from := now.AddDate(0, 0, -14)
	return from.Format("200601020000"), now.Format("20060102") + "2359"
}

func (c *ProcurementClient) fetchPage(ctx context.Context, from, to string, page int) ([]bidRecord, error) {
	q := url.Values{}
	q.Set("type", "json")
	q.Set("inqryDiv", "1")
	q.Set("inqryBgnDt", from)
	q.Set("inqryEndDt", to)
	q.Set("pageNo", strconv.Itoa(page))
	q.Set("numOfRows", strconv.Itoa(c.cfg.Rows))
	q.Set("serviceKey", c.cfg.ServiceKey)

	u := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Operation, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notices: procurement API returned %s", resp.Status)
	}

	var out struct {
		Response struct {
			Header struct {
				ResultCode string `json:"resultCode"`
				ResultMsg  string `json:"resultMsg"`
			} `json:"header"`
			Body struct {
				Items json.RawMessage `json:"items"`
			} `json:"body"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("notices: decoding procurement response: %w", err)
	}
	if code := out.Response.Header.ResultCode; code != "" && code != "00" && code != "0" {
		return nil, fmt.Errorf("notices: procurement API error %s: %s", code, out.Response.Header.ResultMsg)
	}

	// The API serves an empty string instead of an empty array when a
	// page has no rows.
	var items []bidRecord
	if len(out.Response.Body.Items) > 0 && out.Response.Body.Items[0] == '[' {
		if err := json.Unmarshal(out.Response.Body.Items, &items); err != nil {
			return nil, fmt.Errorf("notices: decoding procurement items: %w", err)
		}
	}
	return items, nil
}

// filterByKeyword keeps records whose title or agency mentions the
// whole keyword or any of its words.
func filterByKeyword(items []bidRecord, keyword string) []bidRecord {
	key := strings.ToLower(strings.TrimSpace(keyword))
	if key == "" {
		return items
	}
	words := strings.Fields(key)

	var out []bidRecord
	for _, it := range items {
		haystack := strings.ToLower(it.title() + " " + it.agency())
		if strings.Contains(haystack, key) {
			out = append(out, it)
			continue
		}
		for _, w := range words {
			if strings.Contains(haystack, w) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func toNotices(items []bidRecord) []models.Notice {
	out := make([]models.Notice, 0, len(items))
	for _, it := range items {
		out = append(out, models.Notice{
			Title:        orDash(it.title()),
			URL:          it.detailURL(),
			Source:       ProcurementSource,
			Agency:       orDash(it.agency()),
			AnnounceDate: orDash(normalizeDate(it.pick("bidNtceDt", "ntceDt", "bidBeginDt"))),
			CloseDate:    orDash(normalizeDate(it.pick("bidClseDt", "opengDt", "bidEndDt"))),
			Budget:       orDash(formatMoney(it.pick("presmptPrce", "asignBdgtAmt", "totPrdprc"))),
			Snippet:      "-",
		})
	}
	return out
}

// normalizeDate renders known timestamp layouts as "2006-01-02 15:04";
// unknown formats pass through untouched.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "200601021504", "20060102150405"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	return s
}

// formatMoney renders a numeric amount as a grouped won string, e.g.
// "1,000,000원". Non-numeric input passes through.
func formatMoney(v string) string {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return ""
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	return groupDigits(int64(f)) + "원"
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
