package service

import (
	"context"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/catalog"
	"lol-tracker/internal/domain"
)

type RiotAPI interface {
	GetAccountByRiotID(ctx context.Context, region, gameName, tagLine string) (*api.AccountResponse, error)
	GetLeagueEntries(ctx context.Context, platform, puuid string) ([]api.LeagueEntry, error)
	GetMatchIDs(ctx context.Context, region, puuid string, filter api.MatchIDFilter) ([]string, error)
	GetTopMasteries(ctx context.Context, platform, puuid string, count int) ([]api.ChampionMastery, error)
}

type MatchDetails interface {
	Get(ctx context.Context, region, matchID string) (*domain.MatchDetail, error)
	Cached(ctx context.Context, region, matchID string) (*domain.MatchDetail, bool)
	ResetBudget()
	BudgetRemaining() int
}

type Catalogs interface {
	Get(ctx context.Context, locale string) (*catalog.Catalog, error)
}

type StateStore interface {
	Load(ctx context.Context) (*domain.State, error)
	Update(ctx context.Context, fn func(*domain.State) error) (*domain.State, error)
}

type RankRecorder interface {
	Record(ctx context.Context, playerID, puuid string, snap domain.RankSnapshot, at time.Time) error
}
