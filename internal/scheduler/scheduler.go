package scheduler

import (
	"context"
	"sync"
	"time"

	"lol-tracker/internal/config"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/service"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Refresher interface {
	Run(ctx context.Context) (*service.CycleReport, error)
}

// Scheduler triggers refresh cycles on a cron schedule. A tick that fires while a cycle is
// still running is skipped.
type Scheduler struct {
	cron       *cron.Cron
	refresher  Refresher
	spec       string
	runOnStart bool
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(refresher Refresher, cfg *config.Config, logger zerolog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
		return nil, errors.Wrapf(err, "failed to parse REFRESH_SCHEDULE %q", cfg.RefreshSchedule)
	}

	printf := logger.With().Str("component", "cron").Logger()
	cronLogger := cron.PrintfLogger(&printf)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		refresher:  refresher,
		spec:       cfg.RefreshSchedule,
		runOnStart: cfg.RefreshOnStart,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runCycle); err != nil {
		return errors.Wrap(err, "failed to schedule refresh")
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Bool("run_on_start", s.runOnStart).Msg("scheduler started")

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runCycle()
		}()
	}
	return nil
}

// Stop cancels any running cycle and waits for it to return, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info().Msg("stopping scheduler")
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "scheduler did not stop in time")
	}
}

func (s *Scheduler) runCycle() {
	report, err := s.refresher.Run(s.ctx)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		s.logger.Info().Msg("refresh already running, skipping tick")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled refresh failed")
		return
	}

	counts := map[service.Status]int{}
	for _, p := range report.Players {
		counts[p.Status]++
	}
	s.logger.Info().
		Str("cycle_id", report.ID).
		Int("refreshed", counts[service.StatusRefreshed]).
		Int("unchanged", counts[service.StatusUnchanged]).
		Int("partial", counts[service.StatusPartial]).
		Int("failed", counts[service.StatusFailed]).
		Str("persist_error", report.PersistError).
		Msg("scheduled refresh completed")
}
