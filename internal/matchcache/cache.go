package matchcache

import (
	"context"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/config"
	"lol-tracker/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads a match record from the provider.
type Fetcher interface {
	GetMatch(ctx context.Context, region, matchID string) (*api.MatchResponse, error)
}

// Store is the durable tier. Get reports a miss with domain.ErrEntityNotFound.
type Store interface {
	Get(ctx context.Context, matchID string) (*domain.MatchDetail, error)
	Put(ctx context.Context, detail *domain.MatchDetail) error
}

type Stats struct {
	Entries    int `json:"entries"`
	MemoryHits int `json:"memoryHits"`
	StoreHits  int `json:"storeHits"`
	Fetches    int `json:"fetches"`
}

// Cache memoizes immutable match details: memory, then the store, then the provider.
type Cache struct {
	fetcher Fetcher
	store   Store
	budget  *Budget
	group   singleflight.Group
	logger  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*domain.MatchDetail
	stats   Stats
}

func New(fetcher Fetcher, store Store, cfg *config.Config, logger zerolog.Logger) *Cache {
	return NewWithBudget(fetcher, store, NewBudget(cfg.FetchBudget), logger)
}

// NewWithBudget builds a cache; store may be nil.
func NewWithBudget(fetcher Fetcher, store Store, budget *Budget, logger zerolog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		store:   store,
		budget:  budget,
		logger:  logger,
		entries: make(map[string]*domain.MatchDetail),
	}
}

func (c *Cache) Budget() *Budget {
	return c.budget
}

func (c *Cache) ResetBudget() {
	c.budget.Reset()
}

func (c *Cache) BudgetRemaining() int {
	return c.budget.Remaining()
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

func cacheKey(region, matchID string) string {
	return region + "/" + matchID
}

func (c *Cache) lookup(key string) (*domain.MatchDetail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[key]
	return d, ok
}

func (c *Cache) remember(key string, d *domain.MatchDetail, tally func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = d
	tally(&c.stats)
}

func (c *Cache) memoryHit(key string) (*domain.MatchDetail, bool) {
	d, ok := c.lookup(key)
	if ok {
		c.mu.Lock()
		c.stats.MemoryHits++
		c.mu.Unlock()
	}
	return d, ok
}

// Cached returns a detail already held in memory or in the store. It never touches the provider
// or the budget.
func (c *Cache) Cached(ctx context.Context, region, matchID string) (*domain.MatchDetail, bool) {
	key := cacheKey(region, matchID)
	if d, ok := c.memoryHit(key); ok {
		return d, true
	}
	if c.store == nil {
		return nil, false
	}

	d, err := c.store.Get(ctx, matchID)
	if err != nil {
		if !errors.Is(err, domain.ErrEntityNotFound) {
			c.logger.Warn().Err(err).Str("match_id", matchID).Msg("match store read failed")
		}
		return nil, false
	}
	c.remember(key, d, func(s *Stats) { s.StoreHits++ })
	return d, true
}

func (c *Cache) Get(ctx context.Context, region, matchID string) (*domain.MatchDetail, error) {
	key := cacheKey(region, matchID)
	if d, ok := c.memoryHit(key); ok {
		return d, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if d, ok := c.lookup(key); ok {
			return d, nil
		}
		return c.load(ctx, key, region, matchID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.MatchDetail), nil
}

func (c *Cache) load(ctx context.Context, key, region, matchID string) (*domain.MatchDetail, error) {
	if c.store != nil {
		d, err := c.store.Get(ctx, matchID)
		switch {
		case err == nil:
			c.remember(key, d, func(s *Stats) { s.StoreHits++ })
			return d, nil
		case !errors.Is(err, domain.ErrEntityNotFound):
			c.logger.Warn().Err(err).Str("match_id", matchID).Msg("match store read failed, falling back to provider")
		}
	}

	if err := c.budget.Take(); err != nil {
		return nil, err
	}

	resp, err := c.fetcher.GetMatch(ctx, region, matchID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch match %s", matchID)
	}
	d := ToDetail(region, resp)
	if d.MatchID == "" {
		d.MatchID = matchID
	}

	if c.store != nil {
		if err := c.store.Put(ctx, d); err != nil {
			c.logger.Warn().Err(err).Str("match_id", matchID).Msg("failed to persist match detail")
		}
	}
	c.remember(key, d, func(s *Stats) { s.Fetches++ })

	c.logger.Debug().
		Str("match_id", matchID).
		Int("budget_remaining", c.budget.Remaining()).
		Msg("match detail fetched")
	return d, nil
}

// ToDetail projects a provider match record onto the cached shape.
func ToDetail(region string, resp *api.MatchResponse) *domain.MatchDetail {
	startMillis := resp.Info.GameStartTimestamp
	if startMillis == 0 {
		startMillis = resp.Info.GameCreation
	}

	d := &domain.MatchDetail{
		MatchID:         resp.Metadata.MatchID,
		Region:          region,
		Queue:           resp.Info.QueueID,
		DurationSeconds: resp.DurationSeconds(),
		StartedAt:       time.UnixMilli(startMillis).UTC(),
		Participants:    make([]domain.MatchParticipant, 0, len(resp.Info.Participants)),
	}
	for _, p := range resp.Info.Participants {
		d.Participants = append(d.Participants, domain.MatchParticipant{
			Puuid:        p.Puuid,
			ChampionKey:  p.ChampionID,
			ChampionName: p.ChampionName,
			Win:          p.Win,
			Kills:        p.Kills,
			Deaths:       p.Deaths,
			Assists:      p.Assists,
		})
	}
	return d
}
