package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lol-tracker/internal/api"
	"lol-tracker/internal/catalog"
	"lol-tracker/internal/config"
	"lol-tracker/internal/domain"
	"lol-tracker/internal/matchcache"
	"lol-tracker/internal/service"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubState struct{ state *domain.State }

func (s stubState) Load(ctx context.Context) (*domain.State, error) { return s.state, nil }

type stubHistory struct {
	limit int
}

func (s *stubHistory) ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RankHistory, error) {
	s.limit = limit
	return []domain.RankHistory{{ID: "h1", PlayerID: playerID, Tier: "GOLD"}}, nil
}

type stubRefresher struct{ err error }

func (s stubRefresher) Run(ctx context.Context) (*service.CycleReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.CycleReport{ID: "cycle-1"}, nil
}

func (s stubRefresher) LastReport() *service.CycleReport { return &service.CycleReport{ID: "cycle-0"} }

type ctxRefresher struct {
	stubRefresher
	ctxErr error
}

func (s *ctxRefresher) Run(ctx context.Context) (*service.CycleReport, error) {
	s.ctxErr = ctx.Err()
	return s.stubRefresher.Run(ctx)
}

type stubBans struct{ err error }

func (s stubBans) RecordBan(ctx context.Context, playerID, entity, note string) (*domain.BanRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.BanRecord{ID: "b1", EntityName: entity, Note: note}, nil
}

type stubCatalogs struct{}

func (stubCatalogs) Get(ctx context.Context, locale string) (*catalog.Catalog, error) {
	return &catalog.Catalog{Version: "14.1.1", Locale: locale}, nil
}

type stubLimits struct{}

func (stubLimits) GetRateLimitInfo() api.RateLimitInfo { return api.RateLimitInfo{AppLimit: "20:1"} }

type stubCache struct{}

func (stubCache) Stats() matchcache.Stats { return matchcache.Stats{Entries: 4} }
func (stubCache) BudgetRemaining() int { return 7 }

func newTestServer(deps Deps) http.Handler {
	defaults := Deps{
		State:     stubState{state: &domain.State{Players: []*domain.Player{{ID: "p1", DisplayName: "Mid"}}}},
		History:   &stubHistory{},
		Refresher: stubRefresher{},
		Bans:      stubBans{},
		Catalogs:  stubCatalogs{},
		Limits:    stubLimits{},
		Cache:     stubCache{},
	}
	if deps.Refresher != nil {
		defaults.Refresher = deps.Refresher
	}
	if deps.Bans != nil {
		defaults.Bans = deps.Bans
	}
	if deps.History != nil {
		defaults.History = deps.History
	}
	return NewTrackerServer(defaults, &config.Config{CatalogLocale: "en_US"}, zerolog.Nop()).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestServer_Players(t *testing.T) {
	h := newTestServer(Deps{})

	rec, body := do(t, h, http.MethodGet, "/api/players", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["players"], 1)

	rec, body = do(t, h, http.MethodGet, "/api/players/p1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mid", body["displayName"])

	rec, _ = do(t, h, http.MethodGet, "/api/players/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RankHistoryLimit(t *testing.T) {
	history := &stubHistory{}
	h := newTestServer(Deps{History: history})

	rec, _ := do(t, h, http.MethodGet, "/api/players/p1/rank-history?limit=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, history.limit)

	rec, _ = do(t, h, http.MethodGet, "/api/players/p1/rank-history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RecordBan(t *testing.T) {
	rec, body := do(t, newTestServer(Deps{}), http.MethodPost, "/api/players/p1/bans", `{"entity":"Zed","note":"gg"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Zed", body["entityName"])

	rec, _ = do(t, newTestServer(Deps{}), http.MethodPost, "/api/players/p1/bans", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	conflict := newTestServer(Deps{Bans: stubBans{err: errors.Wrap(domain.ErrInvariantViolation, "no pending promotion")}})
	rec, body = do(t, conflict, http.MethodPost, "/api/players/p1/bans", `{"entity":"Zed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "no pending promotion")

	missing := newTestServer(Deps{Bans: stubBans{err: domain.ErrEntityNotFound}})
	rec, _ = do(t, missing, http.MethodPost, "/api/players/x/bans", `{"entity":"Zed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Refresh(t *testing.T) {
	rec, body := do(t, newTestServer(Deps{}), http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cycle-1", body["id"])

	busy := newTestServer(Deps{Refresher: stubRefresher{err: errors.WithStack(domain.ErrRefreshInProgress)}})
	rec, _ = do(t, busy, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	broken := newTestServer(Deps{Refresher: stubRefresher{err: errors.New("disk full")}})
	rec, _ = do(t, broken, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, newTestServer(Deps{}), http.MethodGet, "/api/refresh", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_CatalogAndStatus(t *testing.T) {
	h := newTestServer(Deps{})

	_, body := do(t, h, http.MethodGet, "/api/catalog", "")
	assert.Equal(t, "en_US", body["locale"])

	_, body = do(t, h, http.MethodGet, "/api/catalog?locale=ko_KR", "")
	assert.Equal(t, "ko_KR", body["locale"])

	rec, body := do(t, h, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), body["budgetRemaining"])
	assert.NotNil(t, body["lastCycle"])
}

func TestServer_RefreshSurvivesClientDisconnect(t *testing.T) {
	refresher := &ctxRefresher{}
	h := newTestServer(Deps{Refresher: refresher})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, refresher.ctxErr)
}
