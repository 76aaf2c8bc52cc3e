// database/deal_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cheapflightsfrom/backend/models"
)

const dealColumns = `TRIM(origin), TRIM(destination), price, outbound_date, return_date, sent_at`

// RecentDeals returns deals emailed for codes in the last 30 days, newest first.
func (s *Store) RecentDeals(ctx context.Context, codes []string, limit int) ([]models.SentDeal, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	stmt := `
		SELECT ` + dealColumns + `
		FROM sent_deals
		WHERE origin IN (` + InList(len(codes)) + `)
		  AND sent_at > ?
		ORDER BY sent_at DESC
		LIMIT ?`
	args := append(StringArgs(codes), s.cutoff(DealsWindow), limit)

	deals, err := Query(ctx, s.exec, "recent_deals", stmt, args, scanSentDeal)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent deals for %v: %w", codes, err)
	}
	return deals, nil
}

// RecentDealsAll returns deals across every origin from the last 7 days.
func (s *Store) RecentDealsAll(ctx context.Context, limit int) ([]models.SentDeal, error) {
	stmt := `
		SELECT ` + dealColumns + `
		FROM sent_deals
		WHERE sent_at > ?
		ORDER BY sent_at DESC
		LIMIT ?`

	deals, err := Query(ctx, s.exec, "recent_deals_all", stmt, []any{s.cutoff(RecentDealsWindow), limit}, scanSentDeal)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent deals: %w", err)
	}
	return deals, nil
}

func scanSentDeal(rows *sql.Rows) (models.SentDeal, error) {
	var d models.SentDeal
	var outbound, ret sql.NullTime
	if err := rows.Scan(&d.Origin, &d.Destination, &d.Price, &outbound, &ret, &d.SentAt); err != nil {
		return d, err
	}
	if outbound.Valid {
		d.OutboundDate = outbound.Time
	}
	if ret.Valid {
		d.ReturnDate = ret.Time
	}
	return d, nil
}
