// Package render turns typed answers into Markdown reports.
// Presentation only; no business logic lives here.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/contentscout/contentscout/internal/router"
	"github.com/contentscout/contentscout/pkg/models"
)

// Render produces the Markdown body for any answer kind.
func Render(a router.Answer) string {
	switch ans := a.(type) {
	case router.DirectorAnswer:
		return renderDirector(ans)
	case router.ListingAnswer:
		return renderListing(ans)
	case router.RAGAnswer:
		return renderRAG(ans)
	case router.NoticesAnswer:
		return renderNotices(ans)
	case router.ResearchAnswer:
		return renderResearch(ans)
	default:
		return fmt.Sprintf("### Result\n\n(unknown answer kind: %s)\n", a.Kind())
	}
}

// Enveloped wraps a body with a front-matter header and a footer
// noting where the report was saved.
func Enveloped(a router.Answer, query, savedPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\noutput_schema: v1\ntype: markdown\nroute: %s\nsaved: %s\nquery: %q\n---\n\n", a.Kind(), savedPath, query)
	b.WriteString(strings.TrimSpace(Render(a)))
	fmt.Fprintf(&b, "\n\n---\n> saved to: `%s`\n", savedPath)
	return b.String()
}

func renderDirector(a router.DirectorAnswer) string {
	var b strings.Builder
	b.WriteString("# Director Lookup\n")
	fmt.Fprintf(&b, "- query: %s\n\n", a.Query)
	fmt.Fprintf(&b, "**%s** reached the top chart position **%d** times.\n", a.Name, a.Count)
	return b.String()
}

func renderListing(a router.ListingAnswer) string {
	var b strings.Builder
	b.WriteString("# Ranked Listing\n")
	fmt.Fprintf(&b, "- query: %s\n- partition: %s / %s\n\n", a.Query, a.Country, a.Category)
	b.WriteString("| rank | title | weeks in top |\n|---:|---|---:|\n")
	for _, it := range a.Items {
		fmt.Fprintf(&b, "| %d | %s | %d |\n", it.Rank, it.Title, it.WeeksInTop)
	}
	return b.String()
}

func renderRAG(a router.RAGAnswer) string {
	var b strings.Builder
	b.WriteString("# Research Summary\n\n")
	fmt.Fprintf(&b, "**query:** %s\n\n", a.Query)

	if a.Error != "" {
		fmt.Fprintf(&b, "_lookup failed: %s_\n", a.Error)
		return b.String()
	}

	p := a.Payload
	if p.Answer != "" {
		b.WriteString("## Draft Answer\n\n" + p.Answer + "\n\n")
	}
	if len(p.Contexts) > 0 {
		b.WriteString("## Evidence (Top-K)\n\n")
		b.WriteString("| rank | score | path | chunk | excerpt |\n|---:|---:|---|---|---|\n")
		for i, c := range p.Contexts {
			fmt.Fprintf(&b, "| %d | %.3f | %s | %s | %s |\n",
				i+1, c.Score, c.Chunk.Meta.SourcePath, c.Chunk.ID, excerpt(c.Chunk.Text, 200))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "_gating: %s (top=%.3f, mean=%.3f)_\n\n", p.Gating.Status, p.Gating.TopScore, p.Gating.MeanTopK)

	if p.WebFallback.Used && len(p.WebFallback.Results) > 0 {
		b.WriteString("## Web Augmentation\n\n")
		fmt.Fprintf(&b, "_local evidence was insufficient (%s); web results follow._\n\n", p.WebFallback.Reason)
		b.WriteString("| # | title | url | summary |\n|---:|---|---|---|\n")
		for i, r := range p.WebFallback.Results {
			summary := r.Snippet
			if summary == "" {
				summary = r.Content
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, excerpt(r.Title, 100), excerpt(r.URL, 80), excerpt(summary, 150))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderNotices(a router.NoticesAnswer) string {
	var b strings.Builder
	b.WriteString("# Funding & Procurement Notices\n")
	fmt.Fprintf(&b, "- query: %s\n\n", a.Payload.Query)

	if len(a.Payload.Items) == 0 {
		b.WriteString("No matching notices were found.\n")
	} else {
		b.WriteString("| source | title | agency | closes | budget | url |\n|---|---|---|---:|---:|---|\n")
		for _, it := range limitNotices(a.Payload.Items, 10) {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				it.Source, it.Title, it.Agency, it.CloseDate, it.Budget, it.URL)
		}
	}
	renderErrors(&b, a.Payload.Errors)
	return b.String()
}

func renderResearch(a router.ResearchAnswer) string {
	p := a.Payload
	var b strings.Builder
	b.WriteString("# Web Research Report\n")
	fmt.Fprintf(&b, "- query: %s\n\n", p.Query)

	if len(p.Prices) > 0 {
		b.WriteString("## Price Snapshot\n")
		for _, q := range p.Prices {
			if q.Err != "" {
				fmt.Fprintf(&b, "- **%s**: lookup failed (%s)\n", q.Symbol, q.Err)
				continue
			}
			fmt.Fprintf(&b, "- **%s**: %.2f %s\n", q.Symbol, q.Price, q.Currency)
		}
		b.WriteString("\n")
	}

	if p.CompanyProfile != "" {
		b.WriteString("## Company Profile\n" + excerpt(p.CompanyProfile, 500) + "\n")
		if len(p.ProfileSources) > 0 {
			b.WriteString("\n**profile sources:**\n")
			for _, u := range limitStrings(p.ProfileSources, 3) {
				fmt.Fprintf(&b, "- %s\n", u)
			}
		}
		b.WriteString("\n")
	}

	if len(p.RiskTop) > 0 {
		b.WriteString("## Risk Monitoring\n")
		for _, r := range p.RiskTop {
			fmt.Fprintf(&b, "- [%s](%s) [risk_score: %.2f]\n", titleOf(r.WebResult), r.URL, r.RiskScore)
			if len(r.MatchedKeywords) > 0 {
				fmt.Fprintf(&b, "  - matched keywords: %s\n", strings.Join(limitStrings(r.MatchedKeywords, 10), ", "))
			}
			if q := quoteOf(r.WebResult); q != "" {
				fmt.Fprintf(&b, "  > %s\n", q)
			}
		}
		b.WriteString("\n")
	}

	if len(p.WebTop) > 0 {
		b.WriteString("## Related Links & Excerpts\n")
		for _, r := range p.WebTop {
			fmt.Fprintf(&b, "- [%s](%s)\n", titleOf(r), r.URL)
			if q := quoteOf(r); q != "" {
				fmt.Fprintf(&b, "  > %s\n", q)
			}
		}
		b.WriteString("\n")
	}
	renderErrors(&b, p.Errors)
	return b.String()
}

func renderErrors(b *strings.Builder, errs []string) {
	if len(errs) == 0 {
		return
	}
	b.WriteString("\n## Partial Failures\n")
	for _, e := range errs {
		fmt.Fprintf(b, "- %s\n", e)
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9가-힣]+`)

// Slug reduces a query to a filesystem-safe fragment.
func Slug(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if r := []rune(s); len(r) > 60 {
		s = strings.Trim(string(r[:60]), "-")
	}
	if s == "" {
		s = "report"
	}
	return s
}

func limitNotices(items []models.Notice, n int) []models.Notice {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func limitStrings(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// SaveMarkdown writes a timestamped report under dir and returns its
// path.
func SaveMarkdown(dir, slug, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.md", time.Now().Format("20060102-150405"), Slug(slug))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func excerpt(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}

func titleOf(r models.WebResult) string {
	if r.Title != "" {
		return r.Title
	}
	if r.URL != "" {
		return r.URL
	}
	return "link"
}

func quoteOf(r models.WebResult) string {
	raw := r.Content
	if raw == "" {
		raw = r.Snippet
	}
	return excerpt(raw, 280)
}
