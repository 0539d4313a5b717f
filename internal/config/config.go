package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"lol-tracker/internal/constants"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	RiotAPIKey      string
	DBPath          string
	ServerPort      string
	LogLevel        string
	RosterPath      string
	RefreshSchedule string
	RefreshOnStart  bool
	TrackedYear     int
	TrackedQueue    int
	RankedQueueType string
	FetchBudget     int
	APIMaxRetries   int
	APICallDeadline time.Duration
	CatalogLocale   string
	CatalogTTL      time.Duration
	RecentGames     int
	MasteryCount    int
	WorkerPoolSize  int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		RiotAPIKey:      getEnv("RIOT_API_KEY", ""),
		DBPath:          getEnv("DB_PATH", "tracker.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RosterPath:      getEnv("ROSTER_PATH", "roster.json"),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 10m"),
		RankedQueueType: getEnv("RANKED_QUEUE_TYPE", constants.RankedSoloQueue),
		CatalogLocale:   getEnv("CATALOG_LOCALE", "en_US"),
	}

	if cfg.RiotAPIKey == "" {
		return nil, errors.New("RIOT_API_KEY is required")
	}

	var err error
	if cfg.RefreshOnStart, err = getEnvBool("REFRESH_ON_START", true); err != nil {
		return nil, err
	}
	if cfg.TrackedYear, err = getEnvInt("TRACKED_YEAR", time.Now().UTC().Year()); err != nil {
		return nil, err
	}
	if cfg.TrackedQueue, err = getEnvInt("TRACKED_QUEUE", constants.RankedSoloID); err != nil {
		return nil, err
	}
	if cfg.FetchBudget, err = getEnvInt("FETCH_BUDGET", constants.FetchBudget); err != nil {
		return nil, err
	}
	if cfg.APIMaxRetries, err = getEnvInt("API_MAX_RETRIES", constants.APIMaxRetries); err != nil {
		return nil, err
	}
	if cfg.RecentGames, err = getEnvInt("RECENT_GAMES", constants.RecentGamesCount); err != nil {
		return nil, err
	}
	if cfg.MasteryCount, err = getEnvInt("MASTERY_COUNT", constants.MasteryCount); err != nil {
		return nil, err
	}
	if cfg.WorkerPoolSize, err = getEnvInt("WORKER_POOL_SIZE", constants.WorkerPoolSize); err != nil {
		return nil, err
	}
	if cfg.APICallDeadline, err = getEnvDuration("API_CALL_DEADLINE", constants.APICallDeadline); err != nil {
		return nil, err
	}
	if cfg.CatalogTTL, err = getEnvDuration("CATALOG_TTL", constants.CatalogTTL); err != nil {
		return nil, err
	}

	if cfg.FetchBudget < 0 {
		return nil, errors.Newf("FETCH_BUDGET must not be negative, got %d", cfg.FetchBudget)
	}
	if cfg.APIMaxRetries < 1 {
		return nil, errors.Newf("API_MAX_RETRIES must be at least 1, got %d", cfg.APIMaxRetries)
	}
	if cfg.WorkerPoolSize < 1 {
		cfg.WorkerPoolSize = constants.WorkerPoolSize
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("refresh_schedule", cfg.RefreshSchedule).
		Int("tracked_year", cfg.TrackedYear).
		Int("tracked_queue", cfg.TrackedQueue).
		Int("fetch_budget", cfg.FetchBudget).
		Dur("catalog_ttl", cfg.CatalogTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse %s", key)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "failed to parse %s", key)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse %s", key)
	}
	return d, nil
}

var Module = fx.Provide(Load)
