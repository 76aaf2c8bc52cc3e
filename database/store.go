// database/store.go
package database

import (
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/cheapflightsfrom/backend/logging"
)

// Trailing windows applied to the raw observation tables.
const (
	CheapestNowWindow = 3 * 24 * time.Hour
	TrendWindow       = 30 * 24 * time.Hour
	DealsWindow       = 30 * 24 * time.Hour
	RecentDealsWindow = 7 * 24 * time.Hour
)

// Sample size floors for a route to be shown.
const (
	MinHubSampleSize   = 5
	MinRouteSampleSize = 10
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store holds the read queries over route_insights, matrix_prices and sent_deals.
// It performs no caching; services wrap each call in the cache layer.
type Store struct {
	exec     *Executor
	auxTable string
	now      func() time.Time
	log      zerolog.Logger
}

// NewStore returns a Store running through exec. auxTable names an optional second
// raw-price table unioned into trends when it exists; an empty or invalid name
// disables it.
func NewStore(exec *Executor, auxTable string) *Store {
	s := &Store{
		exec: exec,
		now:  time.Now,
		log:  logging.With("store"),
	}
	if identRe.MatchString(auxTable) {
		s.auxTable = auxTable
	} else if auxTable != "" {
		s.log.Warn().Str("table", auxTable).Msg("ignoring invalid auxiliary price table name")
	}
	return s
}

// AuxiliaryTable is the configured auxiliary price table, or "".
func (s *Store) AuxiliaryTable() string {
	return s.auxTable
}

func (s *Store) cutoff(window time.Duration) time.Time {
	return s.now().UTC().Add(-window)
}
