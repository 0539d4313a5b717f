package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"lol-tracker/internal/api"
	"lol-tracker/internal/catalog"
	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/matchcache"
	"lol-tracker/internal/middleware"
	"lol-tracker/internal/service"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type StateReader interface {
	Load(ctx context.Context) (*domain.State, error)
}

type RankHistoryReader interface {
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RankHistory, error)
}

type Refresher interface {
	Run(ctx context.Context) (*service.CycleReport, error)
	LastReport() *service.CycleReport
}

type BanRecorder interface {
	RecordBan(ctx context.Context, playerID, entityName, note string) (*domain.BanRecord, error)
}

type Catalogs interface {
	Get(ctx context.Context, locale string) (*catalog.Catalog, error)
}

type RateLimits interface {
	GetRateLimitInfo() api.RateLimitInfo
}

type CacheStats interface {
	Stats() matchcache.Stats
	BudgetRemaining() int
}

type Deps struct {
	State     StateReader
	History   RankHistoryReader
	Refresher Refresher
	Bans      BanRecorder
	Catalogs  Catalogs
	Limits    RateLimits
	Cache     CacheStats
}

// TrackerServer is the JSON surface over the tracker state.
type TrackerServer struct {
	deps      Deps
	locale    string
	startedAt time.Time
	logger    zerolog.Logger
}

func NewTrackerServer(deps Deps, cfg *config.Config, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{
		deps:      deps,
		locale:    cfg.CatalogLocale,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

func (s *TrackerServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/players", s.listPlayers)
	mux.HandleFunc("GET /api/players/{id}", s.getPlayer)
	mux.HandleFunc("GET /api/players/{id}/rank-history", s.rankHistory)
	mux.HandleFunc("POST /api/players/{id}/bans", s.recordBan)
	mux.HandleFunc("POST /api/refresh", s.refresh)
	mux.HandleFunc("GET /api/catalog", s.getCatalog)
	mux.HandleFunc("GET /api/status", s.status)
	return mux
}

func (s *TrackerServer) listPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	state, err := s.deps.State.Load(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, state)
}

func (s *TrackerServer) getPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	state, err := s.deps.State.Load(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	p := state.Player(id)
	if p == nil {
		s.writeError(w, r, errors.Wrapf(domain.ErrEntityNotFound, "player %s", id))
		return
	}
	s.writeJSON(w, r, http.StatusOK, p)
}

func (s *TrackerServer) rankHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	limit := constants.RankHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, errors.Wrapf(domain.ErrInvalidInput, "invalid limit %q", v))
			return
		}
		limit = min(n, constants.RankHistoryLimit)
	}

	records, err := s.deps.History.ListByPlayer(ctx, r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, records)
}

type banRequest struct {
	Entity string `json:"entity"`
	Note   string `json:"note"`
}

func (s *TrackerServer) recordBan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "unreadable body"))
		return
	}
	var req banRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "malformed json"))
		return
	}

	record, err := s.deps.Bans.RecordBan(ctx, r.PathValue("id"), req.Entity, req.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, record)
}

// refresh runs a cycle to completion even if the client goes away; Run bounds it with its own timeout.
func (s *TrackerServer) refresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Refresher.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, report)
}

func (s *TrackerServer) getCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.locale
	}
	cat, err := s.deps.Catalogs.Get(ctx, locale)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, cat)
}

type statusResponse struct {
	StartedAt       time.Time            `json:"startedAt"`
	LastCycle       *service.CycleReport `json:"lastCycle,omitempty"`
	RateLimit       api.RateLimitInfo    `json:"rateLimit"`
	MatchCache      matchcache.Stats     `json:"matchCache"`
	BudgetRemaining int                  `json:"budgetRemaining"`
}

func (s *TrackerServer) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		StartedAt:       s.startedAt,
		LastCycle:       s.deps.Refresher.LastReport(),
		RateLimit:       s.deps.Limits.GetRateLimitInfo(),
		MatchCache:      s.deps.Cache.Stats(),
		BudgetRemaining: s.deps.Cache.BudgetRemaining(),
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvariantViolation), errors.Is(err, domain.ErrRefreshInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *TrackerServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	log := middleware.Logger(r.Context(), s.logger)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", code).Msg("request rejected")
	}

	s.writeJSON(w, r, code, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

func (s *TrackerServer) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		middleware.Logger(r.Context(), s.logger).Error().Err(err).Msg("failed to encode response")
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
