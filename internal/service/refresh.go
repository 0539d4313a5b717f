package service

import (
	"context"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusRefreshed Status = "refreshed"
	StatusUnchanged Status = "unchanged"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

type PlayerResult struct {
	PlayerID  string  `json:"playerId"`
	Status    Status  `json:"status"`
	Promotion bool    `json:"promotion,omitempty"`
	Error     string  `json:"error,omitempty"`
	Outcome   Outcome `json:"outcome"`
}

type CycleReport struct {
	ID              string         `json:"id"`
	StartedAt       time.Time      `json:"startedAt"`
	FinishedAt      time.Time      `json:"finishedAt"`
	Players         []PlayerResult `json:"players"`
	BudgetRemaining int            `json:"budgetRemaining"`
	PersistError    string         `json:"persistError,omitempty"`
}

type refreshSettings struct {
	year            int
	queue           int
	rankedQueueType string
	recentGames     int
	masteryCount    int
}

// RefreshService runs refresh cycles over the roster. Only one cycle runs at a time.
type RefreshService struct {
	riot       RiotAPI
	store      StateStore
	history    RankRecorder
	details    MatchDetails
	enumerator *Enumerator
	aggregator *Aggregator
	recent     *RecentService
	settings   refreshSettings
	now        func() time.Time
	logger     zerolog.Logger

	running sync.Mutex

	lastMu sync.RWMutex
	last   *CycleReport
}

func NewRefreshService(
	riot RiotAPI,
	store StateStore,
	history RankRecorder,
	details MatchDetails,
	enumerator *Enumerator,
	aggregator *Aggregator,
	recent *RecentService,
	cfg *config.Config,
	logger zerolog.Logger,
) *RefreshService {
	return &RefreshService{
		riot:       riot,
		store:      store,
		history:    history,
		details:    details,
		enumerator: enumerator,
		aggregator: aggregator,
		recent:     recent,
		settings: refreshSettings{
			year:            cfg.TrackedYear,
			queue:           cfg.TrackedQueue,
			rankedQueueType: cfg.RankedQueueType,
			recentGames:     cfg.RecentGames,
			masteryCount:    cfg.MasteryCount,
		},
		now:    time.Now,
		logger: logger,
	}
}

func (s *RefreshService) LastReport() *CycleReport {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// playerRun is the working copy of one player for the current cycle.
type playerRun struct {
	player   *domain.Player
	result   PlayerResult
	detected *domain.PendingPromotion
}

// Run performs one refresh cycle and persists the result with a single merged write.
func (s *RefreshService) Run(ctx context.Context) (*CycleReport, error) {
	if !s.running.TryLock() {
		return nil, errors.WithStack(domain.ErrRefreshInProgress)
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.RefreshTimeout)
	defer cancel()

	report := &CycleReport{ID: uuid.NewString(), StartedAt: s.now().UTC()}
	log := s.logger.With().Str("cycle_id", report.ID).Logger()
	log.Info().Msg("refresh cycle started")

	s.details.ResetBudget()

	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load state")
	}

	runs := make([]*playerRun, 0, len(state.Players))
	for _, p := range state.Players {
		run := &playerRun{player: p.Clone(), result: PlayerResult{PlayerID: p.ID}}
		s.refreshPlayer(ctx, run, log)
		runs = append(runs, run)
	}

	for _, run := range runs {
		if run.result.Status == StatusFailed {
			continue
		}
		s.catchUp(ctx, run, log)
	}

	_, err = s.store.Update(ctx, func(latest *domain.State) error {
		for _, run := range runs {
			run.result.Promotion = mergeRefreshed(latest, run)
		}
		return nil
	})
	if err != nil {
		report.PersistError = err.Error()
		log.Error().Err(err).Msg("failed to persist refresh cycle")
	}

	for _, run := range runs {
		report.Players = append(report.Players, run.result)
	}
	report.BudgetRemaining = s.details.BudgetRemaining()
	report.FinishedAt = s.now().UTC()

	s.lastMu.Lock()
	s.last = report
	s.lastMu.Unlock()

	log.Info().
		Int("players", len(report.Players)).
		Int("budget_remaining", report.BudgetRemaining).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("refresh cycle finished")
	return report, nil
}

func (s *RefreshService) refreshPlayer(ctx context.Context, run *playerRun, log zerolog.Logger) {
	p := run.player
	now := s.now().UTC()
	log = log.With().Str("player_id", p.ID).Logger()

	fail := func(err error) {
		run.result.Status = StatusFailed
		run.result.Error = err.Error()
		p.LastError = err.Error()
		p.LastErrorAt = &now
		log.Error().Err(err).Msg("player refresh failed")
	}

	changed := false
	if p.Puuid == "" {
		acc, err := s.riot.GetAccountByRiotID(ctx, domain.RegionForPlatform(p.Platform), p.GameName, p.TagLine)
		if err != nil {
			fail(errors.Wrapf(err, "failed to resolve account %s", p.RiotID()))
			return
		}
		p.Puuid = acc.Puuid
		changed = true
		log.Info().Str("puuid", p.Puuid).Msg("account resolved")
	}
	ref := p.Ref()

	entries, err := s.riot.GetLeagueEntries(ctx, ref.Platform, ref.Puuid)
	if err != nil {
		fail(errors.Wrap(err, "failed to fetch rank"))
		return
	}
	snap := s.snapshotFrom(entries)

	if p.Rank == nil || !p.Rank.Equal(snap) {
		if p.Rank != nil && domain.IsPromotion(*p.Rank, snap) {
			// Whether it becomes the pending promotion is decided against the stored document at merge time.
			run.detected = &domain.PendingPromotion{DetectedAt: now, From: *p.Rank, To: snap}
			log.Info().Str("from", p.Rank.String()).Str("to", snap.String()).Msg("promotion detected")
		}
		p.PreviousRank = p.Rank
		p.Rank = &snap
		changed = true

		if s.history != nil {
			if err := s.history.Record(ctx, p.ID, p.Puuid, snap, now); err != nil {
				log.Warn().Err(err).Msg("failed to record rank history")
			}
		}
	}

	var stepErr error
	partial := false
	keep := func(err error) {
		if stepErr == nil {
			stepErr = err
		}
	}

	totals := snap.Totals()
	agg := p.Aggregates[s.settings.year]
	if agg == nil || totals != p.Totals {
		changed = true

		outcome, err := s.advance(ctx, p, agg)
		run.result.Outcome = outcome
		if outcome.BudgetExhausted {
			partial = true
		}
		if err != nil {
			keep(err)
		} else {
			p.Totals = totals
		}

		if err := s.refreshRecent(ctx, p); err != nil {
			keep(err)
		}
		if p.RecentStale {
			partial = true
		}

		masteries, err := s.recent.Masteries(ctx, ref, s.settings.masteryCount)
		if err != nil {
			keep(err)
		} else {
			p.TopMastery = masteries
		}
	} else if p.RecentStale {
		changed = true
		if err := s.refreshRecent(ctx, p); err != nil {
			keep(err)
		}
		if p.RecentStale {
			partial = true
		}
	}

	p.LastRefresh = &now
	switch {
	case stepErr != nil:
		run.result.Status = StatusPartial
		run.result.Error = stepErr.Error()
		p.LastError = stepErr.Error()
		p.LastErrorAt = &now
		log.Warn().Err(stepErr).Msg("player refreshed with errors")
	case partial:
		run.result.Status = StatusPartial
		p.LastError = ""
		p.LastErrorAt = nil
		log.Info().Msg("player refreshed partially, fetch budget spent")
	case changed:
		run.result.Status = StatusRefreshed
		p.LastError = ""
		p.LastErrorAt = nil
		log.Info().Msg("player refreshed")
	default:
		run.result.Status = StatusUnchanged
		p.LastError = ""
		p.LastErrorAt = nil
		log.Debug().Msg("player unchanged")
	}
}

func (s *RefreshService) advance(ctx context.Context, p *domain.Player, agg *domain.YearAggregate) (Outcome, error) {
	ref := p.Ref()
	listing, err := s.enumerator.ListYear(ctx, ref.Region, ref.Puuid, s.settings.year, s.settings.queue)
	if err != nil {
		return Outcome{}, err
	}
	if agg == nil {
		agg = domain.NewYearAggregate(s.settings.year, s.settings.queue)
	}

	updated, outcome, err := s.aggregator.Advance(ctx, ref, agg, listing)
	if updated != nil {
		if p.Aggregates == nil {
			p.Aggregates = make(map[int]*domain.YearAggregate)
		}
		p.Aggregates[s.settings.year] = updated
	}
	return outcome, err
}

func (s *RefreshService) refreshRecent(ctx context.Context, p *domain.Player) error {
	games, partial, err := s.recent.Recent(ctx, p.Ref(), s.settings.queue, s.settings.recentGames)
	if err != nil {
		p.RecentStale = true
		return err
	}
	p.RecentGames = games
	p.RecentStale = partial
	return nil
}

// catchUp drains every aggregate backlog with whatever fetch budget is left.
func (s *RefreshService) catchUp(ctx context.Context, run *playerRun, log zerolog.Logger) {
	p := run.player
	for year, agg := range p.Aggregates {
		if !agg.NeedsCatchup {
			continue
		}

		updated, outcome, err := s.aggregator.Drain(ctx, p.Ref(), agg)
		if updated != nil {
			p.Aggregates[year] = updated
		}
		run.result.Outcome.Counted += outcome.Counted
		run.result.Outcome.Skipped += outcome.Skipped
		run.result.Outcome.BudgetExhausted = run.result.Outcome.BudgetExhausted || outcome.BudgetExhausted
		if year == s.settings.year {
			run.result.Outcome.Remaining = outcome.Remaining
		}

		switch {
		case err != nil:
			now := s.now().UTC()
			run.result.Status = StatusPartial
			run.result.Error = err.Error()
			p.LastError = err.Error()
			p.LastErrorAt = &now
			log.Warn().Err(err).Str("player_id", p.ID).Int("year", year).Msg("catch-up failed")
		case outcome.Remaining > 0:
			run.result.Status = StatusPartial
		case outcome.Counted+outcome.Skipped > 0 && run.result.Status == StatusUnchanged:
			run.result.Status = StatusRefreshed
		}
	}
}

func (s *RefreshService) snapshotFrom(entries []api.LeagueEntry) domain.RankSnapshot {
	for _, e := range entries {
		if e.QueueType == s.settings.rankedQueueType {
			return domain.NewRankSnapshot(e.Tier, e.Rank, e.LeaguePoints, e.Wins, e.Losses)
		}
	}
	return domain.Unranked()
}

// mergeRefreshed applies refresh-owned fields onto the latest stored player and reports
// whether a promotion detected this cycle became pending.
// Bans and history belong to the ban action and are never overwritten here.
func mergeRefreshed(latest *domain.State, run *playerRun) bool {
	cur := latest.Player(run.player.ID)
	if cur == nil {
		return false
	}
	p := run.player

	cur.Puuid = p.Puuid
	cur.Rank = p.Rank
	cur.PreviousRank = p.PreviousRank
	cur.Totals = p.Totals
	cur.Aggregates = p.Aggregates
	cur.RecentGames = p.RecentGames
	cur.RecentStale = p.RecentStale
	cur.TopMastery = p.TopMastery
	cur.LastError = p.LastError
	cur.LastErrorAt = p.LastErrorAt
	cur.LastRefresh = p.LastRefresh

	if run.detected == nil {
		return false
	}
	if cur.PendingBan != nil {
		return false
	}
	pending := run.detected.Clone()
	cur.PendingBan = &pending
	return true
}
