package constants

import "time"

const (
	CatalogTTL      = 24 * time.Hour
	RemakeThreshold = 300 * time.Second
	RankedSoloQueue = "RANKED_SOLO_5x5"
	RankedSoloID    = 420
)

const (
	MatchPageSize    = 100
	RecentGamesCount = 5
	MasteryCount     = 3
	FetchBudget      = 20
	WorkerPoolSize   = 3
)

const (
	APIMaxRetries       = 5
	APICallDeadline     = 60 * time.Second
	RateLimitJitterMin  = 500 * time.Millisecond
	RateLimitJitterSpan = 500 * time.Millisecond
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	RefreshTimeout     = 15 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	StateDocument      = "state"
	RankHistoryLimit   = 100
	ResponseBodyLogMax = 512
)
