package fx

import (
	"lol-tracker/internal/api"
	"lol-tracker/internal/catalog"
	"lol-tracker/internal/config"
	"lol-tracker/internal/database"
	"lol-tracker/internal/logger"
	"lol-tracker/internal/matchcache"
	"lol-tracker/internal/repository"
	"lol-tracker/internal/scheduler"
	"lol-tracker/internal/server"
	"lol-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideMatchCache(riot *api.RiotClient, store *repository.MatchRepository, cfg *config.Config, logger zerolog.Logger) *matchcache.Cache {
	return matchcache.New(riot, store, cfg, logger)
}

func ProvideServerDeps(
	state *repository.StateRepository,
	history *repository.RankHistoryRepository,
	refresh *service.RefreshService,
	bans *service.BanService,
	catalogs *catalog.Cache,
	riot *api.RiotClient,
	matches *matchcache.Cache,
) server.Deps {
	return server.Deps{
		State:     state,
		History:   history,
		Refresher: refresh,
		Bans:      bans,
		Catalogs:  catalogs,
		Limits:    riot,
		Cache:     matches,
	}
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	database.Module,
	// repos
	fx.Provide(repository.NewStateRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewRankHistoryRepository),
	// api clients
	fx.Provide(api.NewRiotClient),
	fx.Provide(api.NewDDragonClient),
	fx.Provide(func(c *api.RiotClient) service.RiotAPI { return c }),
	fx.Provide(func(c *api.DDragonClient) catalog.Source { return c }),
	// caches
	fx.Provide(catalog.NewCache),
	fx.Provide(ProvideMatchCache),
	fx.Provide(func(c *matchcache.Cache) service.MatchDetails { return c }),
	fx.Provide(func(c *catalog.Cache) service.Catalogs { return c }),
	fx.Provide(func(r *repository.StateRepository) service.StateStore { return r }),
	fx.Provide(func(r *repository.RankHistoryRepository) service.RankRecorder { return r }),
	// svc
	fx.Provide(service.NewEnumerator),
	fx.Provide(service.NewAggregator),
	fx.Provide(service.NewRecentService),
	fx.Provide(service.NewRefreshService),
	fx.Provide(service.NewBanService),
	fx.Provide(func(s *service.RefreshService) scheduler.Refresher { return s }),
	fx.Provide(scheduler.New),
	// server
	fx.Provide(ProvideServerDeps),
	fx.Provide(server.NewTrackerServer),
)
