// services/summary_service.go
package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/utils"
)

// HubSummary assembles everything a metro hub page shows.
func (s *InsightService) HubSummary(ctx context.Context, slug string) (*models.HubSummary, error) {
	metro, ok := s.metros.BySlug(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetroNotFound, slug)
	}
	codes := metro.Airports

	var (
		dests    []models.RouteInsight
		all      []models.RegionDestination
		count    int
		deals    []models.SentDeal
		cheapest []models.CheapestNow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { dests, err = s.HubDestinations(gctx, codes); return })
	g.Go(func() (err error) { all, err = s.AllHubDestinations(gctx, codes); return })
	g.Go(func() (err error) { count, err = s.DestinationCount(gctx, codes); return })
	g.Go(func() (err error) { deals, err = s.RecentDeals(gctx, codes, RecentDealsLimit); return })
	g.Go(func() (err error) { cheapest, err = s.CheapestFlightsNow(gctx, codes, CheapestNowLimit); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build hub summary for %s: %w", slug, err)
	}

	deduped := SortByPrice(DeduplicateByDestination(dests))
	monthly := AggregateMonthlyPrices(deduped)

	return &models.HubSummary{
		Metro:            metro,
		Destinations:     deduped,
		DestinationCount: count,
		MonthlyAverage:   monthly,
		CheapestMonths:   CheapestMonths(monthly, CheapestMonthCount),
		CheapestNow:      MixDomesticInternational(DeduplicateByDestination(cheapest), s.metros.IsDomestic, CheapestNowMixed),
		RecentDeals:      deals,
		Regions:          GroupByRegion(DeduplicateByDestination(all)),
	}, nil
}

// GroupByRegion buckets rows in display order, cheapest first within each region.
// Regions without rows are omitted.
func GroupByRegion(rows []models.RegionDestination) []models.RegionGroup {
	byRegion := make(map[models.Region][]models.RegionDestination)
	for _, r := range rows {
		byRegion[r.Region] = append(byRegion[r.Region], r)
	}

	groups := make([]models.RegionGroup, 0, len(byRegion))
	for _, region := range models.RegionOrder {
		members := byRegion[region]
		if len(members) == 0 {
			continue
		}
		members = SortByPrice(members)
		g := models.RegionGroup{
			Region:       region,
			Label:        region.Label(),
			Count:        len(members),
			Destinations: members,
		}
		if v := rankValue(members[0]); v < MissingPrice {
			g.CheapestPrice = &v
		}
		groups = append(groups, g)
	}
	return groups
}

// RouteSummary assembles everything a route page shows. The best origin in the metro
// (lowest deal threshold) supplies the insight and the trend.
func (s *InsightService) RouteSummary(ctx context.Context, slug, dest string) (*models.RouteSummary, error) {
	metro, ok := s.metros.BySlug(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetroNotFound, slug)
	}
	dest = utils.NormalizeAirportCode(dest)

	insight, err := s.RouteInsight(ctx, metro.Airports, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to load route %s-%s: %w", slug, dest, err)
	}
	if insight == nil {
		return nil, fmt.Errorf("%w: %s to %s", ErrRouteNotFound, metro.Slug, dest)
	}

	var (
		trend []models.PriceTrendPoint
		other []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { trend, err = s.RoutePriceTrend(gctx, insight.Origin, dest); return })
	g.Go(func() (err error) { other, err = s.DestinationsForOrigins(gctx, metro.Airports); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build route summary for %s-%s: %w", slug, dest, err)
	}

	related := make([]string, 0, RelatedLimit)
	for _, d := range other {
		if d == dest {
			continue
		}
		if len(related) == RelatedLimit {
			break
		}
		related = append(related, d)
	}

	return &models.RouteSummary{
		Metro:          metro,
		Insight:        *insight,
		PriceTrend:     trend,
		CheapestMonths: CheapestMonths(insight.MonthlyTypical, CheapestMonthCount),
		Narrative:      GenerateNarrative(metro.DisplayName, dest, insight.MonthlyTypical),
		Related:        related,
	}, nil
}

// SitemapRoutes maps every qualifying route onto its metro. Routes from origins outside
// the metro table are skipped and each metro/destination pair appears once.
func (s *InsightService) SitemapRoutes(ctx context.Context) ([]models.SitemapRoute, error) {
	routes, err := s.AllQualifyingRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load qualifying routes: %w", err)
	}

	seen := make(map[string]struct{}, len(routes))
	out := make([]models.SitemapRoute, 0, len(routes))
	for _, r := range routes {
		metro, ok := s.metros.ByAirport(r.Origin)
		if !ok {
			continue
		}
		dest := utils.NormalizeAirportCode(r.Destination)
		key := metro.Slug + "|" + dest
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.SitemapRoute{MetroSlug: metro.Slug, Destination: dest})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MetroSlug != out[j].MetroSlug {
			return out[i].MetroSlug < out[j].MetroSlug
		}
		return out[i].Destination < out[j].Destination
	})
	return out, nil
}

// HomeSummary returns site-wide stats and the latest deals.
func (s *InsightService) HomeSummary(ctx context.Context) (*models.HomeSummary, error) {
	stats, err := s.SiteStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load site stats: %w", err)
	}
	deals, err := s.RecentDealsAll(ctx, RecentDealsAllLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent deals: %w", err)
	}
	return &models.HomeSummary{Stats: stats, RecentDeals: deals}, nil
}
