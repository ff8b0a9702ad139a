package notices

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/contentscout/contentscout/pkg/models"
)

// Payload is the merged, ranked notice search result. Errors carries
// per-source failures; a failed source leaves a gap rather than
// failing the query.
type Payload struct {
	Query  string          `json:"query"`
	Items  []models.Notice `json:"items"`
	Errors []string        `json:"errors"`
}

// Options tune one Find call.
type Options struct {
	NIPATopK       int
	BizInfoTopK    int
	WebTopK        int
	UseProcurement bool
	SourcePriority []string
	TrustedDomains []string
}

// Service runs the full fetch, normalize, merge, rank pipeline.
// Either collaborator may be nil; its sources are then skipped.
type Service struct {
	fetcher *Fetcher
	proc    *ProcurementClient
}

// NewService builds a service over the given collaborators.
func NewService(fetcher *Fetcher, proc *ProcurementClient) *Service {
	return &Service{fetcher: fetcher, proc: proc}
}

// Find collects notices from every configured source, merges
// duplicates with fill-not-overwrite semantics, and ranks the result.
func (s *Service) Find(ctx context.Context, query string, opts Options) Payload {
	out := Payload{Query: query, Items: []models.Notice{}, Errors: []string{}}

	var collected []models.Notice
	collect := func(source string, items []models.Notice, err error) {
		if err != nil {
			log.Warn().Str("source", source).Err(err).Msg("notice source failed")
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", source, err))
			return
		}
		collected = append(collected, items...)
	}

	if s.proc != nil && opts.UseProcurement {
		items, err := s.proc.FetchBids(ctx, query)
		collect(ProcurementSource, trimDates(items), err)
	}
	if s.fetcher != nil {
		items, err := s.fetcher.FetchNIPA(ctx, query, opts.NIPATopK)
		collect(SourceNIPA, items, err)

		items, err = s.fetcher.FetchBizInfo(ctx, query, opts.BizInfoTopK)
		collect(SourceBizInfo, items, err)

		items, err = s.fetcher.FetchWeb(ctx, query, opts.WebTopK)
		collect(SourceWeb, items, err)
	}

	merged := MergeFill(collected, opts.SourcePriority)
	out.Items = Rank(merged, query, opts.TrustedDomains)
	return out
}

// trimDates reduces timestamps to date-only display form for merged
// output.
func trimDates(items []models.Notice) []models.Notice {
	for i := range items {
		items[i].AnnounceDate = dateOnly(items[i].AnnounceDate)
		items[i].CloseDate = dateOnly(items[i].CloseDate)
	}
	return items
}

func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}
