package service

import (
	"context"
	"sync/atomic"

	"lol-tracker/internal/api"
	"lol-tracker/internal/catalog"
	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const recentFetchLimit = 3

type RecentService struct {
	riot     RiotAPI
	details  MatchDetails
	catalogs Catalogs
	locale   string
	logger   zerolog.Logger
}

func NewRecentService(riot RiotAPI, details MatchDetails, catalogs Catalogs, cfg *config.Config, logger zerolog.Logger) *RecentService {
	return &RecentService{
		riot:     riot,
		details:  details,
		catalogs: catalogs,
		locale:   cfg.CatalogLocale,
		logger:   logger,
	}
}

// Recent returns summaries of the player's n newest games, remakes dropped.
// partial is set when the fetch budget ran out before every detail was loaded.
func (s *RecentService) Recent(ctx context.Context, ref domain.Ref, queue, n int) ([]domain.RecentGame, bool, error) {
	ids, err := s.riot.GetMatchIDs(ctx, ref.Region, ref.Puuid, api.MatchIDFilter{Queue: queue, Count: n})
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to list recent matches")
	}

	details := make([]*domain.MatchDetail, len(ids))
	var partial atomic.Bool

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(recentFetchLimit)
	for i, id := range ids {
		g.Go(func() error {
			d, err := s.details.Get(gCtx, ref.Region, id)
			if errors.Is(err, domain.ErrFetchBudgetExceeded) {
				partial.Store(true)
				return nil
			}
			if err != nil {
				return err
			}
			details[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, errors.Wrap(err, "failed to fetch recent match details")
	}

	lookup := s.lookup(ctx)
	games := make([]domain.RecentGame, 0, len(details))
	for _, d := range details {
		if d == nil || d.IsRemake(constants.RemakeThreshold) {
			continue
		}
		p, ok := d.Participant(ref.Puuid)
		if !ok {
			continue
		}
		game := domain.RecentGame{
			MatchID:         d.MatchID,
			ChampionKey:     p.ChampionKey,
			ChampionName:    p.ChampionName,
			Win:             p.Win,
			Kills:           p.Kills,
			Deaths:          p.Deaths,
			Assists:         p.Assists,
			DurationSeconds: d.DurationSeconds,
			PlayedAt:        d.StartedAt,
			Queue:           d.Queue,
		}
		if e, ok := lookup(p.ChampionKey); ok {
			game.ChampionName = e.Name
			game.IconURL = e.IconURL
		}
		games = append(games, game)
	}
	return games, partial.Load(), nil
}

func (s *RecentService) Masteries(ctx context.Context, ref domain.Ref, count int) ([]domain.MasteryEntry, error) {
	masteries, err := s.riot.GetTopMasteries(ctx, ref.Platform, ref.Puuid, count)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch champion masteries")
	}

	lookup := s.lookup(ctx)
	entries := make([]domain.MasteryEntry, 0, len(masteries))
	for _, m := range masteries {
		entry := domain.MasteryEntry{
			ChampionKey: m.ChampionID,
			Level:       m.ChampionLevel,
			Points:      m.ChampionPoints,
		}
		if e, ok := lookup(m.ChampionID); ok {
			entry.ChampionName = e.Name
			entry.IconURL = e.IconURL
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RecentService) lookup(ctx context.Context) func(int) (catalog.Entity, bool) {
	none := func(int) (catalog.Entity, bool) { return catalog.Entity{}, false }
	if s.catalogs == nil {
		return none
	}
	cat, err := s.catalogs.Get(ctx, s.locale)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog unavailable for recent games")
		return none
	}
	return cat.Lookup
}
