package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheapflightsfrom/backend/cache"
	"github.com/cheapflightsfrom/backend/config"
	"github.com/cheapflightsfrom/backend/database"
	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/services"
	"github.com/cheapflightsfrom/backend/utils"
)

type stubStore struct {
	hub   []models.RouteInsight
	route *models.RouteInsight
	stats models.SiteStats
	err   error
	calls int
}

func (s *stubStore) HubDestinations(context.Context, []string, int) ([]models.RouteInsight, error) {
	s.calls++
	return s.hub, s.err
}
func (s *stubStore) AllHubDestinations(context.Context, []string) ([]models.RegionDestination, error) {
	return nil, s.err
}
func (s *stubStore) DestinationCount(context.Context, []string) (int, error) { return len(s.hub), s.err }
func (s *stubStore) RouteInsight(context.Context, []string, string) (*models.RouteInsight, error) {
	return s.route, s.err
}
func (s *stubStore) DestinationsForOrigins(context.Context, []string) ([]string, error) { return nil, s.err }
func (s *stubStore) AllQualifyingRoutes(context.Context) ([]models.QualifyingRoute, error) {
	return []models.QualifyingRoute{{Origin: "ATL", Destination: "CUN"}}, s.err
}
func (s *stubStore) SiteStats(context.Context) (models.SiteStats, error) { return s.stats, s.err }
func (s *stubStore) CheapestFlightsNow(context.Context, []string, int) ([]models.CheapestNow, error) {
	return nil, s.err
}
func (s *stubStore) RoutePriceTrend(context.Context, string, string, bool) ([]models.PriceTrendPoint, error) {
	return nil, s.err
}
func (s *stubStore) TableExists(context.Context, string) (bool, error) { return false, nil }
func (s *stubStore) AuxiliaryTable() string                             { return "" }
func (s *stubStore) RecentDeals(context.Context, []string, int) ([]models.SentDeal, error) {
	return nil, s.err
}
func (s *stubStore) RecentDealsAll(context.Context, int) ([]models.SentDeal, error) { return nil, s.err }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func ptr(v float64) *float64 { return &v }

func newTestRouter(t *testing.T, store *stubStore, ping pingFunc, secret string) http.Handler {
	t.Helper()
	metros, err := utils.DefaultMetros()
	require.NoError(t, err)
	regions := utils.NewRegionClassifier(metros.IsDomestic, models.RegionEurope)
	ttl := config.TTLConfig{Hub: time.Hour, Route: time.Hour, CheapestNow: time.Hour, Deals: time.Hour, Stats: time.Hour, SchemaProbe: time.Hour}
	insights := services.NewInsightService(store, cache.New(cache.NewMemoryStore()), metros, regions, ttl)
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}
	return NewRouter(NewHandler(insights, services.NewWarmer(insights), ping, secret, []string{"atlanta"}))
}

func do(t *testing.T, h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestRouter(t, &stubStore{}, nil, ""), http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	down := func(context.Context) error { return errors.New("connection refused") }
	rr = do(t, newTestRouter(t, &stubStore{}, down, ""), http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database connection error")
}

type statePinger struct{}

func (statePinger) Ping(context.Context) error { return nil }
func (statePinger) State() database.State      { return database.StateConnected }

func TestHealthReportsPoolState(t *testing.T) {
	metros, err := utils.DefaultMetros()
	require.NoError(t, err)
	insights := services.NewInsightService(&stubStore{}, cache.New(cache.NewMemoryStore()), metros, utils.NewRegionClassifier(metros.IsDomestic, models.RegionEurope), config.TTLConfig{})
	router := NewRouter(NewHandler(insights, services.NewWarmer(insights), statePinger{}, "", nil))

	rr := do(t, router, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","pool":"connected"}`, rr.Body.String())
}

func TestHubHandler(t *testing.T) {
	store := &stubStore{hub: []models.RouteInsight{
		{Origin: "ATL", Destination: "CUN", TypicalPrice: ptr(150)},
		{Origin: "ATL", Destination: "LHR", TypicalPrice: ptr(600)},
	}}
	router := newTestRouter(t, store, nil, "")

	rr := do(t, router, http.MethodGet, "/api/hubs/atlanta", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got models.HubSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "atlanta", got.Metro.Slug)
	require.Len(t, got.Destinations, 2)
	assert.Equal(t, "CUN", got.Destinations[0].Destination)

	do(t, router, http.MethodGet, "/api/hubs/atlanta", "", "")
	assert.Equal(t, 1, store.calls, "second request is served from cache")
}

func TestHubHandlerErrors(t *testing.T) {
	rr := do(t, newTestRouter(t, &stubStore{}, nil, ""), http.MethodGet, "/api/hubs/atlantis", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "metro not found")

	rr = do(t, newTestRouter(t, &stubStore{err: errors.New("boom")}, nil, ""), http.MethodGet, "/api/hubs/atlanta", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRouteHandler(t *testing.T) {
	rr := do(t, newTestRouter(t, &stubStore{}, nil, ""), http.MethodGet, "/api/hubs/atlanta/routes/CUN", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	store := &stubStore{route: &models.RouteInsight{Origin: "ATL", Destination: "CUN", TypicalPrice: ptr(180)}}
	rr = do(t, newTestRouter(t, store, nil, ""), http.MethodGet, "/api/hubs/atlanta/routes/cun", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.RouteSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "CUN", got.Insight.Destination)
	assert.NotEmpty(t, got.Narrative)
}

func TestSitemapAndHome(t *testing.T) {
	router := newTestRouter(t, &stubStore{stats: models.SiteStats{TotalRoutes: 42}}, nil, "")

	rr := do(t, router, http.MethodGet, "/api/sitemap-routes", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"destination":"CUN"`)

	rr = do(t, router, http.MethodGet, "/api/home", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total_routes":42`)

	rr = do(t, router, http.MethodGet, "/api/metros", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"slug":"atlanta"`)
}

func TestAdminRequiresSecret(t *testing.T) {
	router := newTestRouter(t, &stubStore{}, nil, "s3cret")

	rr := do(t, router, http.MethodPost, "/api/admin/warm-cache", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/admin/warm-cache", "Bearer wrong", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/admin/warm-cache", "Bearer s3cret", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWarmCacheHandler(t *testing.T) {
	router := newTestRouter(t, &stubStore{}, nil, "")

	rr := do(t, router, http.MethodPost, "/api/admin/warm-cache", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got warmResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Warmed)
	assert.Equal(t, "atlanta", got.Results[0].Slug)

	rr = do(t, router, http.MethodPost, "/api/admin/warm-cache", "", `{"metros":["boston","atlantis"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	got = warmResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Warmed)
	assert.Equal(t, 1, got.Failed)

	rr = do(t, router, http.MethodPost, "/api/admin/warm-cache", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvalidateHandler(t *testing.T) {
	store := &stubStore{hub: []models.RouteInsight{{Origin: "ATL", Destination: "CUN", TypicalPrice: ptr(150)}}}
	router := newTestRouter(t, store, nil, "")

	do(t, router, http.MethodGet, "/api/hubs/atlanta", "", "")
	require.Equal(t, 1, store.calls)

	rr := do(t, router, http.MethodPost, "/api/admin/invalidate/route_insights", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"tag":"route_insights"`)

	do(t, router, http.MethodGet, "/api/hubs/atlanta", "", "")
	assert.Equal(t, 2, store.calls)

	rr = do(t, router, http.MethodPost, "/api/admin/invalidate/everything", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
