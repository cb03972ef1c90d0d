package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

// Collect fetches every configured industry code, concatenates the pages and
// collapses the result to one record per SIREN. A failure on one code aborts
// the whole collection: a partial registry snapshot would silently skew the
// output. An empty collection is an error too, so a misconfigured code list
// aborts the run instead of exporting an empty file.
func (c *Client) Collect(ctx context.Context, nafCodes, trancheCodes []string) ([]domain.BusinessRecord, error) {
	var all []domain.BusinessRecord
	for _, code := range nafCodes {
		records, err := c.FetchByNAF(ctx, code, trancheCodes)
		if err != nil {
			return nil, fmt.Errorf("could not collect naf %q: %w", code, err)
		}
		all = append(all, records...)
	}

	deduped := Dedupe(all)
	if len(deduped) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest,
			"registry returned no records for naf codes %s: check codes and workforce filters",
			strings.Join(nafCodes, ","))
	}

	return deduped, nil
}

// Feed is a cursor over a collected record set. It satisfies the record
// source contract of the enrichment pipeline.
type Feed struct {
	records []domain.BusinessRecord
	pos     int
}

// NewFeed wraps an already collected record slice.
func NewFeed(records []domain.BusinessRecord) *Feed {
	return &Feed{records: records}
}

// Next returns the next record. ok is false once the feed is drained.
func (f *Feed) Next(ctx context.Context) (domain.BusinessRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BusinessRecord{}, false, err
	}
	if f.pos >= len(f.records) {
		return domain.BusinessRecord{}, false, nil
	}

	rec := f.records[f.pos]
	f.pos++

	return rec, true, nil
}

// Len reports the number of records the feed started with.
func (f *Feed) Len() int { return len(f.records) }
