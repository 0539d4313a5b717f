package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// Outcome summarizes one Advance or Drain step.
type Outcome struct {
	Seeded          bool `json:"seeded,omitempty"`
	Counted         int  `json:"counted"`
	Skipped         int  `json:"skipped"`
	Remaining       int  `json:"remaining"`
	BudgetExhausted bool `json:"budgetExhausted,omitempty"`
}

type Aggregator struct {
	details  MatchDetails
	catalogs Catalogs
	locale   string
	poolSize int
	now      func() time.Time
	logger   zerolog.Logger
}

func NewAggregator(details MatchDetails, catalogs Catalogs, cfg *config.Config, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		details:  details,
		catalogs: catalogs,
		locale:   cfg.CatalogLocale,
		poolSize: cfg.WorkerPoolSize,
		now:      time.Now,
		logger:   logger,
	}
}

type matchVerdict int

const (
	verdictCounted matchVerdict = iota
	verdictRemake
	verdictAbsent
)

// classify counts d into agg when it is a real game the player took part in.
func classify(agg *domain.YearAggregate, puuid string, d *domain.MatchDetail) matchVerdict {
	if d.IsRemake(constants.RemakeThreshold) {
		return verdictRemake
	}
	p, ok := d.Participant(puuid)
	if !ok {
		return verdictAbsent
	}
	agg.Count(p.ChampionKey)
	return verdictCounted
}

func (o *Outcome) tally(v matchVerdict) {
	if v == verdictCounted {
		o.Counted++
		return
	}
	o.Skipped++
}

// Advance folds the matches newer than the aggregate's cursor into its counts.
// The input aggregate is not modified.
func (a *Aggregator) Advance(ctx context.Context, ref domain.Ref, agg *domain.YearAggregate, listing []string) (*domain.YearAggregate, Outcome, error) {
	if agg == nil {
		return nil, Outcome{}, errors.Wrap(domain.ErrInvalidInput, "aggregate is nil")
	}
	out := agg.Clone()
	if len(listing) == 0 {
		return out, Outcome{Remaining: len(out.Backlog)}, nil
	}

	if out.CursorMatchID == "" {
		out.CursorMatchID = listing[0]
		out.SetBacklog(prependBacklog(listing, out.Backlog))
		out.ComputedAt = a.now().UTC()

		a.logger.Info().
			Str("puuid", ref.Puuid).
			Int("year", out.Year).
			Int("backlog", len(out.Backlog)).
			Msg("aggregate seeded, history queued for catch-up")
		return out, Outcome{Seeded: true, Remaining: len(out.Backlog)}, nil
	}

	delta := deltaSince(listing, out.CursorMatchID, out.Backlog)
	out.CursorMatchID = listing[0]

	var outcome Outcome
	var walkErr error
	for i, id := range delta {
		d, err := a.details.Get(ctx, ref.Region, id)
		if err != nil {
			out.SetBacklog(prependBacklog(delta[i:], out.Backlog))
			if errors.Is(err, domain.ErrFetchBudgetExceeded) {
				outcome.BudgetExhausted = true
			} else {
				walkErr = errors.Wrapf(err, "failed to advance aggregate at %s", id)
			}
			break
		}
		outcome.tally(classify(out, ref.Puuid, d))
	}

	out.Rebuild(a.entityLookup(ctx))
	out.ComputedAt = a.now().UTC()
	outcome.Remaining = len(out.Backlog)

	a.logger.Debug().
		Str("puuid", ref.Puuid).
		Int("delta", len(delta)).
		Int("counted", outcome.Counted).
		Int("skipped", outcome.Skipped).
		Int("backlog", outcome.Remaining).
		Bool("budget_exhausted", outcome.BudgetExhausted).
		Msg("aggregate advanced")
	return out, outcome, walkErr
}

type drainResult struct {
	detail *domain.MatchDetail
	err    error
	done   bool
}

// Drain works the backlog through a bounded worker pool and counts what it can fetch.
// Once the budget runs out, only details already cached are resolved.
// Unfetched ids stay in the backlog in their original order.
func (a *Aggregator) Drain(ctx context.Context, ref domain.Ref, agg *domain.YearAggregate) (*domain.YearAggregate, Outcome, error) {
	if agg == nil {
		return nil, Outcome{}, errors.Wrap(domain.ErrInvalidInput, "aggregate is nil")
	}
	out := agg.Clone()
	if len(out.Backlog) == 0 {
		out.SetBacklog(nil)
		return out, Outcome{}, nil
	}

	pool, err := ants.NewPool(a.poolSize)
	if err != nil {
		return out, Outcome{Remaining: len(out.Backlog)}, errors.Wrap(err, "failed to create worker pool")
	}
	defer pool.Release()

	backlog := out.Backlog
	results := make([]drainResult, len(backlog))
	var exhausted atomic.Bool
	var wg sync.WaitGroup

	for i, id := range backlog {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if d, ok := a.details.Cached(ctx, ref.Region, id); ok {
				results[i] = drainResult{detail: d, done: true}
				return
			}
			if exhausted.Load() {
				return
			}
			d, err := a.details.Get(ctx, ref.Region, id)
			if errors.Is(err, domain.ErrFetchBudgetExceeded) {
				exhausted.Store(true)
			}
			results[i] = drainResult{detail: d, err: err, done: true}
		})
		if err != nil {
			wg.Done()
			a.logger.Warn().Err(err).Msg("failed to submit backlog fetch")
			break
		}
	}
	wg.Wait()

	outcome := Outcome{BudgetExhausted: exhausted.Load()}
	var firstErr error
	remaining := make([]string, 0, len(backlog))
	for i, id := range backlog {
		res := results[i]
		switch {
		case !res.done:
			remaining = append(remaining, id)
		case res.err != nil:
			remaining = append(remaining, id)
			if errors.Is(res.err, domain.ErrFetchBudgetExceeded) {
				outcome.BudgetExhausted = true
			} else if firstErr == nil {
				firstErr = errors.Wrapf(res.err, "failed to drain backlog at %s", id)
			}
		default:
			outcome.tally(classify(out, ref.Puuid, res.detail))
		}
	}

	out.SetBacklog(remaining)
	out.Rebuild(a.entityLookup(ctx))
	out.ComputedAt = a.now().UTC()
	outcome.Remaining = len(remaining)

	a.logger.Info().
		Str("puuid", ref.Puuid).
		Int("year", out.Year).
		Int("counted", outcome.Counted).
		Int("skipped", outcome.Skipped).
		Int("backlog", outcome.Remaining).
		Bool("budget_exhausted", outcome.BudgetExhausted).
		Msg("backlog drained")
	return out, outcome, firstErr
}

func (a *Aggregator) entityLookup(ctx context.Context) func(int) (string, string, bool) {
	if a.catalogs == nil {
		return nil
	}
	cat, err := a.catalogs.Get(ctx, a.locale)
	if err != nil {
		a.logger.Warn().Err(err).Str("locale", a.locale).Msg("catalog unavailable, using numeric names")
		return nil
	}
	return func(key int) (string, string, bool) {
		e, ok := cat.Lookup(key)
		return e.Name, e.IconURL, ok
	}
}

// deltaSince returns the ids ahead of cursor, or the whole listing when the cursor is not in it.
// Ids already waiting in the backlog are left to the drain.
func deltaSince(listing []string, cursor string, backlog []string) []string {
	queued := make(map[string]bool, len(backlog))
	for _, id := range backlog {
		queued[id] = true
	}

	delta := make([]string, 0)
	for _, id := range listing {
		if id == cursor {
			break
		}
		if !queued[id] {
			delta = append(delta, id)
		}
	}
	return delta
}

// prependBacklog puts front ahead of the existing backlog, dropping duplicates.
func prependBacklog(front, existing []string) []string {
	seen := make(map[string]bool, len(front)+len(existing))
	merged := make([]string, 0, len(front)+len(existing))
	for _, list := range [][]string{front, existing} {
		for _, id := range list {
			if seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}
