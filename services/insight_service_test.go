package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheapflightsfrom/backend/cache"
	"github.com/cheapflightsfrom/backend/config"
	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/utils"
)

type fakeStore struct {
	mu    sync.Mutex
	calls map[string]int

	hub       []models.RouteInsight
	all       []models.RegionDestination
	count     int
	route     *models.RouteInsight
	related   []string
	qualify   []models.QualifyingRoute
	stats     models.SiteStats
	cheapest  []models.CheapestNow
	trend     []models.PriceTrendPoint
	deals     []models.SentDeal
	aux       string
	auxExists bool
	probeErr  error
	hubErr    error

	trendWithAux []bool
	lastCodes    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: map[string]int{}}
}

func (f *fakeStore) hit(name string, codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if codes != nil {
		f.lastCodes = codes
	}
}

func (f *fakeStore) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) HubDestinations(_ context.Context, codes []string, _ int) ([]models.RouteInsight, error) {
	f.hit("hub", codes)
	return f.hub, f.hubErr
}

func (f *fakeStore) AllHubDestinations(_ context.Context, codes []string) ([]models.RegionDestination, error) {
	f.hit("all", codes)
	out := make([]models.RegionDestination, len(f.all))
	copy(out, f.all)
	return out, nil
}

func (f *fakeStore) DestinationCount(_ context.Context, codes []string) (int, error) {
	f.hit("count", codes)
	return f.count, nil
}

func (f *fakeStore) RouteInsight(_ context.Context, codes []string, _ string) (*models.RouteInsight, error) {
	f.hit("route", codes)
	return f.route, nil
}

func (f *fakeStore) DestinationsForOrigins(_ context.Context, codes []string) ([]string, error) {
	f.hit("related", codes)
	return f.related, nil
}

func (f *fakeStore) AllQualifyingRoutes(context.Context) ([]models.QualifyingRoute, error) {
	f.hit("qualify", nil)
	return f.qualify, nil
}

func (f *fakeStore) SiteStats(context.Context) (models.SiteStats, error) {
	f.hit("stats", nil)
	return f.stats, nil
}

func (f *fakeStore) CheapestFlightsNow(_ context.Context, codes []string, _ int) ([]models.CheapestNow, error) {
	f.hit("cheapest", codes)
	return f.cheapest, nil
}

func (f *fakeStore) RoutePriceTrend(_ context.Context, _, _ string, includeAux bool) ([]models.PriceTrendPoint, error) {
	f.hit("trend", nil)
	f.mu.Lock()
	f.trendWithAux = append(f.trendWithAux, includeAux)
	f.mu.Unlock()
	return f.trend, nil
}

func (f *fakeStore) TableExists(context.Context, string) (bool, error) {
	f.hit("probe", nil)
	return f.auxExists, f.probeErr
}

func (f *fakeStore) AuxiliaryTable() string { return f.aux }

func (f *fakeStore) RecentDeals(_ context.Context, codes []string, _ int) ([]models.SentDeal, error) {
	f.hit("deals", codes)
	return f.deals, nil
}

func (f *fakeStore) RecentDealsAll(context.Context, int) ([]models.SentDeal, error) {
	f.hit("deals_all", nil)
	return f.deals, nil
}

func testTTL() config.TTLConfig {
	return config.TTLConfig{
		Hub: 4 * time.Hour, Route: 4 * time.Hour, CheapestNow: time.Hour,
		Deals: time.Hour, Stats: 4 * time.Hour, SchemaProbe: 24 * time.Hour,
	}
}

func newTestService(t *testing.T, store *fakeStore) *InsightService {
	t.Helper()
	metros, err := utils.DefaultMetros()
	require.NoError(t, err)
	regions := utils.NewRegionClassifier(metros.IsDomestic, models.RegionEurope)
	return NewInsightService(store, cache.New(cache.NewMemoryStore()), metros, regions, testTTL())
}

func TestHubDestinationsCachedAcrossCodeOrder(t *testing.T) {
	store := newFakeStore()
	store.hub = []models.RouteInsight{insight("JFK", "CUN", fp(150), nil)}
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.HubDestinations(ctx, []string{"LGA", "jfk", "EWR"})
	require.NoError(t, err)
	_, err = svc.HubDestinations(ctx, []string{"EWR", "LGA", "JFK"})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Calls("hub"))
	assert.Equal(t, []string{"EWR", "JFK", "LGA"}, store.lastCodes)

	_, err = svc.Cache().Invalidate(ctx, TagRouteInsights)
	require.NoError(t, err)
	_, err = svc.HubDestinations(ctx, []string{"JFK", "LGA", "EWR"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls("hub"))
}

func TestAllHubDestinationsAttachesRegions(t *testing.T) {
	store := newFakeStore()
	store.all = []models.RegionDestination{
		{Origin: "ATL", Destination: "MIA"},
		{Origin: "ATL", Destination: "YYZ"},
		{Origin: "ATL", Destination: "QQQ"},
	}
	metros, err := utils.DefaultMetros()
	require.NoError(t, err)
	svc := NewInsightService(store, cache.New(cache.NewMemoryStore()), metros,
		utils.NewRegionClassifier(metros.IsDomestic, models.RegionAsiaPacific), testTTL())

	got, err := svc.AllHubDestinations(context.Background(), []string{"ATL"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.RegionDomestic, got[0].Region)
	assert.Equal(t, models.RegionCanada, got[1].Region)
	assert.Equal(t, models.RegionAsiaPacific, got[2].Region)
}

func TestRouteInsightKeyKeepsDestinationSeparate(t *testing.T) {
	store := newFakeStore()
	store.route = &models.RouteInsight{Origin: "ATL", Destination: "CUN"}
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.RouteInsight(ctx, []string{"ATL"}, "CUN")
	require.NoError(t, err)
	_, err = svc.RouteInsight(ctx, []string{"CUN"}, "ATL")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls("route"))
}

func TestRoutePriceTrendUsesProbe(t *testing.T) {
	store := newFakeStore()
	store.aux = "matrix_prices_archive"
	store.auxExists = true
	svc := newTestService(t, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.RoutePriceTrend(ctx, "ATL", "CUN")
		require.NoError(t, err)
		_, err = svc.RoutePriceTrend(ctx, "ATL", "LHR")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.Calls("probe"))
	assert.Equal(t, []bool{true, true}, store.trendWithAux)
}

func TestRoutePriceTrendProbeFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	store.aux = "matrix_prices_archive"
	store.probeErr = errors.New("permission denied for information_schema")
	svc := newTestService(t, store)

	_, err := svc.RoutePriceTrend(context.Background(), "ATL", "CUN")
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, store.trendWithAux)
}

func TestRoutePriceTrendWithoutAuxTable(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	_, err := svc.RoutePriceTrend(context.Background(), "ATL", "CUN")
	require.NoError(t, err)
	assert.Zero(t, store.Calls("probe"))
	assert.Equal(t, []bool{false}, store.trendWithAux)
}
