package service

import (
	"context"
	"sync"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/catalog"
	"lol-tracker/internal/config"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/matchcache"

	"github.com/rs/zerolog"
)

type fakeRiot struct {
	mu         sync.Mutex
	accounts   map[string]string
	accountErr map[string]error
	league     map[string][]api.LeagueEntry
	leagueErr  map[string]error
	listings   map[string][]string
	masteries  map[string][]api.ChampionMastery
	listCalls  int
	filters    []api.MatchIDFilter
	onLeague   func(puuid string)
}

func newFakeRiot() *fakeRiot {
	return &fakeRiot{
		accounts:   map[string]string{},
		accountErr: map[string]error{},
		league:     map[string][]api.LeagueEntry{},
		leagueErr:  map[string]error{},
		listings:   map[string][]string{},
		masteries:  map[string][]api.ChampionMastery{},
	}
}

func (f *fakeRiot) GetAccountByRiotID(ctx context.Context, region, gameName, tagLine string) (*api.AccountResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := gameName + "#" + tagLine
	if err := f.accountErr[id]; err != nil {
		return nil, err
	}
	puuid, ok := f.accounts[id]
	if !ok {
		return nil, &domain.RemoteRequestFailedError{Status: 404, Body: "not found"}
	}
	return &api.AccountResponse{Puuid: puuid, GameName: gameName, TagLine: tagLine}, nil
}

func (f *fakeRiot) GetLeagueEntries(ctx context.Context, platform, puuid string) ([]api.LeagueEntry, error) {
	f.mu.Lock()
	hook := f.onLeague
	entries, err := f.league[puuid], f.leagueErr[puuid]
	f.mu.Unlock()

	if hook != nil {
		hook(puuid)
	}
	return entries, err
}

func (f *fakeRiot) GetMatchIDs(ctx context.Context, region, puuid string, filter api.MatchIDFilter) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.filters = append(f.filters, filter)

	all := f.listings[puuid]
	if filter.Start >= len(all) {
		return []string{}, nil
	}
	end := min(filter.Start+filter.Count, len(all))
	return append([]string(nil), all[filter.Start:end]...), nil
}

func (f *fakeRiot) GetTopMasteries(ctx context.Context, platform, puuid string, count int) ([]api.ChampionMastery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.masteries[puuid]
	if len(m) > count {
		m = m[:count]
	}
	return m, nil
}

func (f *fakeRiot) setRank(puuid, tier, division string, lp, wins, losses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.league[puuid] = []api.LeagueEntry{{
		QueueType:    "RANKED_SOLO_5x5",
		Tier:         tier,
		Rank:         division,
		LeaguePoints: lp,
		Wins:         wins,
		Losses:       losses,
	}}
}

type fakeFetcher struct {
	mu      sync.Mutex
	matches map[string]*api.MatchResponse
	calls   int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{matches: map[string]*api.MatchResponse{}}
}

func (f *fakeFetcher) GetMatch(ctx context.Context, region, matchID string) (*api.MatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	m, ok := f.matches[matchID]
	if !ok {
		return nil, &domain.RemoteRequestFailedError{Status: 404, Body: "match not found"}
	}
	return m, nil
}

func (f *fakeFetcher) add(id, puuid string, champion int, durationSeconds int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &api.MatchResponse{}
	m.Metadata.MatchID = id
	m.Info = api.MatchInfo{
		GameStartTimestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		GameEndTimestamp:   time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC).UnixMilli(),
		GameDuration:       durationSeconds,
		QueueID:            420,
		Participants: []api.MatchParticipant{
			{Puuid: puuid, ChampionID: champion, ChampionName: "raw", Win: true, Kills: 5, Deaths: 2, Assists: 7},
			{Puuid: "someone-else", ChampionID: 1},
		},
	}
	f.matches[id] = m
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memStore struct {
	mu    sync.Mutex
	state *domain.State
	saves int
}

func newMemStore(players ...*domain.Player) *memStore {
	return &memStore{state: &domain.State{Players: players}}
}

func copyState(s *domain.State) *domain.State {
	c := &domain.State{UpdatedAt: s.UpdatedAt}
	for _, p := range s.Players {
		c.Players = append(c.Players, p.Clone())
	}
	return c
}

func (m *memStore) Load(ctx context.Context) (*domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state), nil
}

func (m *memStore) Update(ctx context.Context, fn func(*domain.State) error) (*domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := copyState(m.state)
	if err := fn(next); err != nil {
		return nil, err
	}
	m.state = next
	m.saves++
	return copyState(next), nil
}

func (m *memStore) player(id string) *domain.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Player(id).Clone()
}

type recordedRank struct {
	playerID string
	snap     domain.RankSnapshot
}

type fakeHistory struct {
	mu      sync.Mutex
	records []recordedRank
}

func (h *fakeHistory) Record(ctx context.Context, playerID, puuid string, snap domain.RankSnapshot, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, recordedRank{playerID: playerID, snap: snap})
	return nil
}

type stubCatalogSource struct{}

func (stubCatalogSource) LatestVersion(ctx context.Context) (string, error) {
	return "14.1.1", nil
}

func (stubCatalogSource) Champions(ctx context.Context, version, locale string) ([]api.ChampionSummary, error) {
	return []api.ChampionSummary{
		{ID: "Ahri", Key: "103", Name: "Ahri", IconURL: "ahri.png"},
		{ID: "MonkeyKing", Key: "62", Name: "Wukong", IconURL: "wukong.png"},
	}, nil
}

func testConfig(budget int) *config.Config {
	return &config.Config{
		TrackedYear:     2024,
		TrackedQueue:    420,
		RankedQueueType: "RANKED_SOLO_5x5",
		FetchBudget:     budget,
		APIMaxRetries:   5,
		CatalogLocale:   "en_US",
		CatalogTTL:      24 * time.Hour,
		RecentGames:     5,
		MasteryCount:    3,
		WorkerPoolSize:  3,
	}
}

type harness struct {
	cfg        *config.Config
	riot       *fakeRiot
	fetcher    *fakeFetcher
	details    *matchcache.Cache
	catalogs   *catalog.Cache
	store      *memStore
	history    *fakeHistory
	aggregator *Aggregator
	recent     *RecentService
	refresh    *RefreshService
	bans       *BanService
}

func newHarness(budget int, players ...*domain.Player) *harness {
	h := &harness{
		cfg:     testConfig(budget),
		riot:    newFakeRiot(),
		fetcher: newFakeFetcher(),
		store:   newMemStore(players...),
		history: &fakeHistory{},
	}
	log := zerolog.Nop()
	h.details = matchcache.NewWithBudget(h.fetcher, nil, matchcache.NewBudget(budget), log)
	h.catalogs = catalog.NewCache(stubCatalogSource{}, h.cfg, log)
	h.aggregator = NewAggregator(h.details, h.catalogs, h.cfg, log)
	h.recent = NewRecentService(h.riot, h.details, h.catalogs, h.cfg, log)
	h.refresh = NewRefreshService(h.riot, h.store, h.history, h.details, NewEnumerator(h.riot), h.aggregator, h.recent, h.cfg, log)
	h.bans = NewBanService(h.store, log)
	return h
}

func rankPtr(s domain.RankSnapshot) *domain.RankSnapshot {
	return &s
}
