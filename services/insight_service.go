// services/insight_service.go
package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cheapflightsfrom/backend/cache"
	"github.com/cheapflightsfrom/backend/config"
	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/utils"
)

var (
	ErrMetroNotFound = errors.New("metro not found")
	ErrRouteNotFound = errors.New("route not found")
)

// Invalidation tags, one per upstream table family.
const (
	TagRouteInsights = "route_insights"
	TagMatrixPrices  = "matrix_prices"
	TagSentDeals     = "sent_deals"
	TagSchema        = "schema"
)

// Tags lists every tag the accessors attach.
var Tags = []string{TagRouteInsights, TagMatrixPrices, TagSentDeals, TagSchema}

// Result sizes.
const (
	HubDestinationLimit = 80
	CheapestNowLimit    = 20
	CheapestNowMixed    = 12
	RecentDealsLimit    = 10
	RecentDealsAllLimit = 20
	RelatedLimit        = 12
	CheapestMonthCount  = 3
)

// InsightStore is the uncached query surface; *database.Store implements it.
type InsightStore interface {
	HubDestinations(ctx context.Context, codes []string, limit int) ([]models.RouteInsight, error)
	AllHubDestinations(ctx context.Context, codes []string) ([]models.RegionDestination, error)
	DestinationCount(ctx context.Context, codes []string) (int, error)
	RouteInsight(ctx context.Context, codes []string, dest string) (*models.RouteInsight, error)
	DestinationsForOrigins(ctx context.Context, codes []string) ([]string, error)
	AllQualifyingRoutes(ctx context.Context) ([]models.QualifyingRoute, error)
	SiteStats(ctx context.Context) (models.SiteStats, error)
	CheapestFlightsNow(ctx context.Context, codes []string, limit int) ([]models.CheapestNow, error)
	RoutePriceTrend(ctx context.Context, origin, dest string, includeAux bool) ([]models.PriceTrendPoint, error)
	TableExists(ctx context.Context, table string) (bool, error)
	AuxiliaryTable() string
	RecentDeals(ctx context.Context, codes []string, limit int) ([]models.SentDeal, error)
	RecentDealsAll(ctx context.Context, limit int) ([]models.SentDeal, error)
}

// InsightService exposes one cached accessor per page data shape, plus the composed
// hub and route summaries.
type InsightService struct {
	store   InsightStore
	cache   *cache.Cache
	metros  *utils.MetroTable
	regions *utils.RegionClassifier

	hub, route, cheapest, deals, stats, schema cache.Policy

	log zerolog.Logger
}

func NewInsightService(store InsightStore, c *cache.Cache, metros *utils.MetroTable, regions *utils.RegionClassifier, ttl config.TTLConfig) *InsightService {
	return &InsightService{
		store:    store,
		cache:    c,
		metros:   metros,
		regions:  regions,
		hub:      cache.Policy{TTL: ttl.Hub, Tags: []string{TagRouteInsights}},
		route:    cache.Policy{TTL: ttl.Route, Tags: []string{TagRouteInsights}},
		cheapest: cache.Policy{TTL: ttl.CheapestNow, Tags: []string{TagMatrixPrices}},
		deals:    cache.Policy{TTL: ttl.Deals, Tags: []string{TagSentDeals}},
		stats:    cache.Policy{TTL: ttl.Stats, Tags: []string{TagRouteInsights}},
		schema:   cache.Policy{TTL: ttl.SchemaProbe, Tags: []string{TagSchema}},
		log:      logging.With("insights"),
	}
}

// Metros returns the metro table the service resolves slugs against.
func (s *InsightService) Metros() *utils.MetroTable {
	return s.metros
}

// Cache returns the cache the accessors share.
func (s *InsightService) Cache() *cache.Cache {
	return s.cache
}

func itoa(n int) []string { return []string{strconv.Itoa(n)} }

// HubDestinations returns the cheapest qualifying routes from codes.
func (s *InsightService) HubDestinations(ctx context.Context, codes []string) ([]models.RouteInsight, error) {
	codes = utils.NormalizeAirportCodes(codes)
	return cache.Cached(ctx, s.cache, "hub_destinations", [][]string{codes}, s.hub,
		func(ctx context.Context) ([]models.RouteInsight, error) {
			return s.store.HubDestinations(ctx, codes, HubDestinationLimit)
		})
}

// AllHubDestinations returns every qualifying route from codes with its region.
func (s *InsightService) AllHubDestinations(ctx context.Context, codes []string) ([]models.RegionDestination, error) {
	codes = utils.NormalizeAirportCodes(codes)
	return cache.Cached(ctx, s.cache, "all_hub_destinations", [][]string{codes}, s.hub,
		func(ctx context.Context) ([]models.RegionDestination, error) {
			rows, err := s.store.AllHubDestinations(ctx, codes)
			if err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].Region = s.regions.Classify(rows[i].Destination)
			}
			return rows, nil
		})
}

// DestinationCount counts distinct destinations tracked from codes.
func (s *InsightService) DestinationCount(ctx context.Context, codes []string) (int, error) {
	codes = utils.NormalizeAirportCodes(codes)
	return cache.Cached(ctx, s.cache, "destination_count", [][]string{codes}, s.hub,
		func(ctx context.Context) (int, error) {
			return s.store.DestinationCount(ctx, codes)
		})
}

// CheapestFlightsNow returns recent minimum fares from codes.
func (s *InsightService) CheapestFlightsNow(ctx context.Context, codes []string, limit int) ([]models.CheapestNow, error) {
	codes = utils.NormalizeAirportCodes(codes)
	return cache.Cached(ctx, s.cache, "cheapest_flights_now", [][]string{codes, itoa(limit)}, s.cheapest,
		func(ctx context.Context) ([]models.CheapestNow, error) {
			return s.store.CheapestFlightsNow(ctx, codes, limit)
		})
}

// RouteInsight returns the best origin's insight for dest, nil when none exists.
func (s *InsightService) RouteInsight(ctx context.Context, codes []string, dest string) (*models.RouteInsight, error) {
	codes = utils.NormalizeAirportCodes(codes)
	dest = utils.NormalizeAirportCode(dest)
	return cache.Cached(ctx, s.cache, "route_insight", [][]string{codes, {dest}}, s.route,
		func(ctx context.Context) (*models.RouteInsight, error) {
			return s.store.RouteInsight(ctx, codes, dest)
		})
}

// AuxiliaryTableExists reports whether the auxiliary price table is present.
func (s *InsightService) AuxiliaryTableExists(ctx context.Context) (bool, error) {
	table := s.store.AuxiliaryTable()
	if table == "" {
		return false, nil
	}
	return cache.Cached(ctx, s.cache, "auxiliary_table_exists", [][]string{{table}}, s.schema,
		func(ctx context.Context) (bool, error) {
			return s.store.TableExists(ctx, table)
		})
}

// RoutePriceTrend returns the daily minimum fare for one origin and destination.
// A failed schema probe falls back to the primary table alone.
func (s *InsightService) RoutePriceTrend(ctx context.Context, origin, dest string) ([]models.PriceTrendPoint, error) {
	origin = utils.NormalizeAirportCode(origin)
	dest = utils.NormalizeAirportCode(dest)

	withAux, err := s.AuxiliaryTableExists(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Warn().Err(err).Msg("auxiliary table probe failed; using primary price table only")
		withAux = false
	}
	aux := "primary"
	if withAux {
		aux = "with_aux"
	}
	return cache.Cached(ctx, s.cache, "route_price_trend", [][]string{{origin}, {dest}, {aux}}, s.cheapest,
		func(ctx context.Context) ([]models.PriceTrendPoint, error) {
			return s.store.RoutePriceTrend(ctx, origin, dest, withAux)
		})
}

// DestinationsForOrigins lists destinations that have route pages from codes.
func (s *InsightService) DestinationsForOrigins(ctx context.Context, codes []string) ([]string, error) {
	codes = utils.NormalizeAirportCodes(codes)
	return cache.Cached(ctx, s.cache, "destinations_for_origins", [][]string{codes}, s.hub,
		func(ctx context.Context) ([]string, error) {
			return s.store.DestinationsForOrigins(ctx, codes)
		})
}

// AllQualifyingRoutes lists every route with enough data for its own page.
func (s *InsightService) AllQualifyingRoutes(ctx context.Context) ([]models.QualifyingRoute, error) {
	return cache.Cached(ctx, s.cache, "all_qualifying_routes", nil, s.hub,
		func(ctx context.Context) ([]models.QualifyingRoute, error) {
			return s.store.AllQualifyingRoutes(ctx)
		})
}

// RecentDeals returns deals recently sent for codes.
func (s *InsightService) RecentDeals(ctx context.Context, codes []string, limit int) ([]models.SentDeal, error) {
	codes = utils.NormalizeAirportCodes(codes)
	return cache.Cached(ctx, s.cache, "recent_deals", [][]string{codes, itoa(limit)}, s.deals,
		func(ctx context.Context) ([]models.SentDeal, error) {
			return s.store.RecentDeals(ctx, codes, limit)
		})
}

// RecentDealsAll returns deals recently sent from any origin.
func (s *InsightService) RecentDealsAll(ctx context.Context, limit int) ([]models.SentDeal, error) {
	return cache.Cached(ctx, s.cache, "recent_deals_all", [][]string{itoa(limit)}, s.deals,
		func(ctx context.Context) ([]models.SentDeal, error) {
			return s.store.RecentDealsAll(ctx, limit)
		})
}

// SiteStats returns the site-wide route and origin counts.
func (s *InsightService) SiteStats(ctx context.Context) (models.SiteStats, error) {
	return cache.Cached(ctx, s.cache, "site_stats", nil, s.stats,
		func(ctx context.Context) (models.SiteStats, error) {
			return s.store.SiteStats(ctx)
		})
}
