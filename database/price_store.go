// database/price_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cheapflightsfrom/backend/models"
)

// CheapestFlightsNow returns the lowest fare per route from codes seen in the last
// three days, cheapest first.
func (s *Store) CheapestFlightsNow(ctx context.Context, codes []string, limit int) ([]models.CheapestNow, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	stmt := `
		SELECT TRIM(origin), TRIM(destination), MIN(price), MAX(scraped_date)
		FROM matrix_prices
		WHERE origin IN (` + InList(len(codes)) + `)
		  AND scraped_date > ?
		GROUP BY TRIM(origin), TRIM(destination)
		ORDER BY MIN(price) ASC
		LIMIT ?`
	args := append(StringArgs(codes), s.cutoff(CheapestNowWindow), limit)

	rows, err := Query(ctx, s.exec, "cheapest_flights_now", stmt, args, func(rows *sql.Rows) (models.CheapestNow, error) {
		var c models.CheapestNow
		err := rows.Scan(&c.Origin, &c.Destination, &c.Price, &c.ScrapedDate)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query cheapest flights for %v: %w", codes, err)
	}
	return rows, nil
}

// RoutePriceTrend returns the daily minimum fare for origin-dest over the last 30
// days. With includeAux the auxiliary price table is unioned in.
func (s *Store) RoutePriceTrend(ctx context.Context, origin, dest string, includeAux bool) ([]models.PriceTrendPoint, error) {
	since := s.cutoff(TrendWindow)

	source := `SELECT price, scraped_date FROM matrix_prices
			WHERE origin = ? AND destination = ? AND scraped_date > ?`
	args := []any{origin, dest, since}
	if includeAux && s.auxTable != "" {
		source += `
			UNION ALL
			SELECT price, scraped_date FROM ` + s.auxTable + `
			WHERE origin = ? AND destination = ? AND scraped_date > ?`
		args = append(args, origin, dest, since)
	}
	stmt := `
		SELECT MIN(p.price), p.scraped_date
		FROM (` + source + `) p
		GROUP BY p.scraped_date
		ORDER BY p.scraped_date ASC`

	rows, err := Query(ctx, s.exec, "route_price_trend", stmt, args, func(rows *sql.Rows) (models.PriceTrendPoint, error) {
		var p models.PriceTrendPoint
		err := rows.Scan(&p.MinPrice, &p.ScrapedDate)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query price trend %s-%s: %w", origin, dest, err)
	}
	return rows, nil
}

// TableExists probes information_schema for table in the current schema.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	if table == "" {
		return false, nil
	}
	n, _, err := QueryOne(ctx, s.exec, "table_exists", s.exec.Dialect().TableExistsQuery(), []any{table}, scanInt)
	if err != nil {
		return false, fmt.Errorf("failed to probe table %s: %w", table, err)
	}
	return n > 0, nil
}
