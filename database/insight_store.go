// database/insight_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/utils"
)

const insightColumns = `TRIM(origin), TRIM(destination), typical_price, low_price_threshold,
		       high_price_threshold, min_price_ever, max_price_ever, avg_price,
		       monthly_typical, sample_size, data_quality, days_tracked, last_scraped`

const qualityFilter = `data_quality IN ('high', 'medium')`

// HubDestinations returns the cheapest qualifying routes from any of codes, ordered by
// low_price_threshold with missing thresholds last.
func (s *Store) HubDestinations(ctx context.Context, codes []string, limit int) ([]models.RouteInsight, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	stmt := `
		SELECT ` + insightColumns + `
		FROM route_insights
		WHERE origin IN (` + InList(len(codes)) + `)
		  AND ` + qualityFilter + `
		  AND sample_size >= ?
		  AND typical_price IS NOT NULL
		ORDER BY low_price_threshold IS NULL, low_price_threshold ASC
		LIMIT ?`
	args := append(StringArgs(codes), MinHubSampleSize, limit)

	rows, err := Query(ctx, s.exec, "hub_destinations", stmt, args, s.scanRouteInsight)
	if err != nil {
		return nil, fmt.Errorf("failed to query hub destinations for %v: %w", codes, err)
	}
	return rows, nil
}

// AllHubDestinations is HubDestinations without a limit, reduced for the region browser.
// Region is left for the caller to fill.
func (s *Store) AllHubDestinations(ctx context.Context, codes []string) ([]models.RegionDestination, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	stmt := `
		SELECT TRIM(origin), TRIM(destination), typical_price, low_price_threshold, sample_size
		FROM route_insights
		WHERE origin IN (` + InList(len(codes)) + `)
		  AND ` + qualityFilter + `
		  AND sample_size >= ?
		  AND typical_price IS NOT NULL
		ORDER BY low_price_threshold IS NULL, low_price_threshold ASC`
	args := append(StringArgs(codes), MinHubSampleSize)

	rows, err := Query(ctx, s.exec, "all_hub_destinations", stmt, args, func(rows *sql.Rows) (models.RegionDestination, error) {
		var d models.RegionDestination
		var typical, low sql.NullFloat64
		if err := rows.Scan(&d.Origin, &d.Destination, &typical, &low, &d.SampleSize); err != nil {
			return d, err
		}
		d.TypicalPrice = floatPtr(typical)
		d.LowPriceThreshold = floatPtr(low)
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query all hub destinations for %v: %w", codes, err)
	}
	return rows, nil
}

// DestinationCount counts distinct destinations tracked from codes.
func (s *Store) DestinationCount(ctx context.Context, codes []string) (int, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	stmt := `
		SELECT COUNT(DISTINCT TRIM(destination))
		FROM route_insights
		WHERE origin IN (` + InList(len(codes)) + `) AND ` + qualityFilter

	n, _, err := QueryOne(ctx, s.exec, "destination_count", stmt, StringArgs(codes), scanInt)
	if err != nil {
		return 0, fmt.Errorf("failed to count destinations for %v: %w", codes, err)
	}
	return n, nil
}

// RouteInsight returns the best origin's insight for dest, or nil when no origin in
// codes serves it.
func (s *Store) RouteInsight(ctx context.Context, codes []string, dest string) (*models.RouteInsight, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	stmt := `
		SELECT ` + insightColumns + `
		FROM route_insights
		WHERE origin IN (` + InList(len(codes)) + `) AND TRIM(destination) = ?
		ORDER BY low_price_threshold IS NULL, low_price_threshold ASC
		LIMIT 1`
	args := append(StringArgs(codes), dest)

	ri, ok, err := QueryOne(ctx, s.exec, "route_insight", stmt, args, s.scanRouteInsight)
	if err != nil {
		return nil, fmt.Errorf("failed to query route insight %v-%s: %w", codes, dest, err)
	}
	if !ok {
		return nil, nil
	}
	return &ri, nil
}

// DestinationsForOrigins lists destinations with enough samples for a route page.
func (s *Store) DestinationsForOrigins(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	stmt := `
		SELECT DISTINCT TRIM(destination)
		FROM route_insights
		WHERE origin IN (` + InList(len(codes)) + `)
		  AND ` + qualityFilter + `
		  AND sample_size >= ?
		  AND typical_price IS NOT NULL
		ORDER BY TRIM(destination)`
	args := append(StringArgs(codes), MinRouteSampleSize)

	rows, err := Query(ctx, s.exec, "destinations_for_origins", stmt, args, scanString)
	if err != nil {
		return nil, fmt.Errorf("failed to query destinations for %v: %w", codes, err)
	}
	return rows, nil
}

// AllQualifyingRoutes lists every route that deserves its own page.
func (s *Store) AllQualifyingRoutes(ctx context.Context) ([]models.QualifyingRoute, error) {
	stmt := `
		SELECT TRIM(origin), TRIM(destination)
		FROM route_insights
		WHERE ` + qualityFilter + `
		  AND sample_size >= ?
		  AND typical_price IS NOT NULL`

	rows, err := Query(ctx, s.exec, "all_qualifying_routes", stmt, []any{MinRouteSampleSize}, func(rows *sql.Rows) (models.QualifyingRoute, error) {
		var r models.QualifyingRoute
		err := rows.Scan(&r.Origin, &r.Destination)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qualifying routes: %w", err)
	}
	return rows, nil
}

// SiteStats returns route and origin counts plus the lowest positive deal threshold.
func (s *Store) SiteStats(ctx context.Context) (models.SiteStats, error) {
	var stats models.SiteStats

	type counts struct{ routes, origins int }
	c, _, err := QueryOne(ctx, s.exec, "site_stats_counts", `
		SELECT COUNT(*), COUNT(DISTINCT origin)
		FROM route_insights
		WHERE `+qualityFilter, nil, func(rows *sql.Rows) (counts, error) {
		var c counts
		err := rows.Scan(&c.routes, &c.origins)
		return c, err
	})
	if err != nil {
		return stats, fmt.Errorf("failed to query site stats: %w", err)
	}
	stats.TotalRoutes = c.routes
	stats.TotalOrigins = c.origins

	cheapest, _, err := QueryOne(ctx, s.exec, "site_stats_cheapest", `
		SELECT MIN(low_price_threshold)
		FROM route_insights
		WHERE `+qualityFilter+` AND low_price_threshold > 0`, nil, func(rows *sql.Rows) (sql.NullFloat64, error) {
		var v sql.NullFloat64
		err := rows.Scan(&v)
		return v, err
	})
	if err != nil {
		return stats, fmt.Errorf("failed to query cheapest threshold: %w", err)
	}
	stats.CheapestPrice = floatPtr(cheapest)
	return stats, nil
}

func (s *Store) scanRouteInsight(rows *sql.Rows) (models.RouteInsight, error) {
	var ri models.RouteInsight
	var typical, low, high, minEver, maxEver, avg sql.NullFloat64
	var monthly []byte
	var daysTracked sql.NullInt64
	var lastScraped sql.NullTime
	var quality sql.NullString

	err := rows.Scan(
		&ri.Origin, &ri.Destination, &typical, &low,
		&high, &minEver, &maxEver, &avg,
		&monthly, &ri.SampleSize, &quality, &daysTracked, &lastScraped,
	)
	if err != nil {
		return ri, err
	}
	ri.TypicalPrice = floatPtr(typical)
	ri.LowPriceThreshold = floatPtr(low)
	ri.HighPriceThreshold = floatPtr(high)
	ri.MinPriceEver = floatPtr(minEver)
	ri.MaxPriceEver = floatPtr(maxEver)
	ri.AvgPrice = floatPtr(avg)
	if quality.Valid {
		ri.DataQuality = quality.String
	}
	if daysTracked.Valid {
		d := int(daysTracked.Int64)
		ri.DaysTracked = &d
	}
	if lastScraped.Valid {
		ri.LastScraped = &lastScraped.Time
	}
	if len(monthly) > 0 {
		m, err := decodeMonthly(monthly)
		if err != nil {
			// A bad monthly blob should not hide the rest of the route.
			s.log.Warn().Err(err).Str("origin", ri.Origin).Str("destination", ri.Destination).Msg("failed to decode monthly_typical")
		}
		ri.MonthlyTypical = m
	}
	return ri, nil
}

// decodeMonthly parses a monthly_typical JSON object, keeping canonical month keys with
// non-null values.
func decodeMonthly(raw []byte) (map[string]float64, error) {
	var parsed map[string]*float64
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(parsed))
	for k, v := range parsed {
		if v == nil || !utils.IsMonthKey(k) {
			continue
		}
		out[k] = *v
	}
	return out, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func scanInt(rows *sql.Rows) (int, error) {
	var n sql.NullInt64
	err := rows.Scan(&n)
	return int(n.Int64), err
}

func scanString(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}
