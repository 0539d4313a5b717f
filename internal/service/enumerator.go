package service

import (
	"context"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/constants"

	"github.com/cockroachdb/errors"
)

type MatchLister interface {
	GetMatchIDs(ctx context.Context, region, puuid string, filter api.MatchIDFilter) ([]string, error)
}

// Enumerator lists every match id of a player inside one calendar year (UTC).
type Enumerator struct {
	lister   MatchLister
	pageSize int
}

func NewEnumerator(lister RiotAPI) *Enumerator {
	return &Enumerator{lister: lister, pageSize: constants.MatchPageSize}
}

// YearBounds returns [Jan 1 of year, Jan 1 of year+1) in epoch seconds.
func YearBounds(year int) (start, end int64) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	return start, end
}

// ListYear returns ids newest first, pages concatenated as received.
func (e *Enumerator) ListYear(ctx context.Context, region, puuid string, year, queue int) ([]string, error) {
	start, end := YearBounds(year)

	var ids []string
	for offset := 0; ; offset += e.pageSize {
		page, err := e.lister.GetMatchIDs(ctx, region, puuid, api.MatchIDFilter{
			StartTime: start,
			// endTime is inclusive on the provider side
			EndTime: end - 1,
			Queue:   queue,
			Start:   offset,
			Count:   e.pageSize,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list matches at offset %d", offset)
		}
		ids = append(ids, page...)
		if len(page) < e.pageSize {
			return ids, nil
		}
	}
}
