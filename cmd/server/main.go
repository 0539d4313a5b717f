package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	fxmodules "lol-tracker/internal/fx"
	"lol-tracker/internal/middleware"
	"lol-tracker/internal/repository"
	"lol-tracker/internal/scheduler"
	"lol-tracker/internal/server"

	"github.com/jmoiron/sqlx"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(closeDatabase),
		fx.Invoke(seedRoster),
		fx.Invoke(runScheduler),
		fx.Invoke(runServer),
	).Run()
}

func seedRoster(lc fx.Lifecycle, cfg *config.Config, state *repository.StateRepository, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := os.Stat(cfg.RosterPath); os.IsNotExist(err) {
				logger.Warn().Str("path", cfg.RosterPath).Msg("roster file not found, tracking stored players only")
				return nil
			}
			roster, err := repository.LoadRoster(cfg.RosterPath)
			if err != nil {
				return err
			}
			_, err = state.SeedRoster(ctx, roster)
			return err
		},
	})
}

// closeDatabase is registered first so the database outlives every other stop hook.
func closeDatabase(lc fx.Lifecycle, db *sqlx.DB, logger zerolog.Logger) {
	lc.Append(fx.StopHook(func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing database connection")
		}
	}))
}

func runScheduler(lc fx.Lifecycle, sched *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	trackerServer *server.TrackerServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: middleware.RequestID(logger)(c.Handler(trackerServer.Routes())),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
