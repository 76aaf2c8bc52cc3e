// database/query.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cheapflightsfrom/backend/config"
	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/metrics"
)

// Attempt outcomes recorded in metrics.QueryAttempts.
const (
	OutcomeOK        = "ok"
	OutcomeRetryable = "retryable"
	OutcomeFatal     = "fatal"
	OutcomeCanceled  = "canceled"
)

// Executor runs named, parametrized statements against the Manager's pool with
// bounded retry. Attempts for one logical query are strictly sequential.
type Executor struct {
	mgr         *Manager
	maxAttempts int
	backoffStep time.Duration
	slowQuery   time.Duration
	breaker     *gobreaker.CircuitBreaker[any]
	log         zerolog.Logger
}

// NewExecutor builds an Executor from the database and breaker configuration.
func NewExecutor(mgr *Manager, cfg config.DatabaseConfig, bcfg config.BreakerConfig) *Executor {
	e := &Executor{
		mgr:         mgr,
		maxAttempts: cfg.MaxAttempts,
		backoffStep: cfg.BackoffStep,
		slowQuery:   cfg.SlowQueryThreshold,
		log:         logging.With("query"),
	}
	if e.maxAttempts < 1 {
		e.maxAttempts = 1
	}

	threshold := bcfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	e.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "database",
		MaxRequests: 1,
		Timeout:     bcfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Fatal statement errors do not count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			e.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	metrics.BreakerState.WithLabelValues("database").Set(0)
	return e
}

// Manager returns the pool owner the Executor runs against.
func (e *Executor) Manager() *Manager {
	return e.mgr
}

// Dialect is shorthand for e.Manager().Dialect().
func (e *Executor) Dialect() Dialect {
	return e.mgr.Dialect()
}

// BreakerState exposes the circuit breaker state for health reporting.
func (e *Executor) BreakerState() gobreaker.State {
	return e.breaker.State()
}

// ScanFunc reads the current row.
type ScanFunc[T any] func(rows *sql.Rows) (T, error)

// Query executes stmt under name, scanning every row with scan. Retryable failures
// reset the pool and are retried with linear backoff; fatal failures return at once.
// When every attempt fails the error wraps ErrRetriesExhausted and the last failure.
// An open circuit breaker fails immediately with gobreaker.ErrOpenState.
func Query[T any](ctx context.Context, e *Executor, name, stmt string, args []any, scan ScanFunc[T]) ([]T, error) {
	res, err := e.breaker.Execute(func() (any, error) {
		return queryWithRetry(ctx, e, name, stmt, args, scan)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		return nil, err
	}
	out, _ := res.([]T)
	return out, nil
}

// QueryOne returns the first row, or ok=false when the statement produced none.
func QueryOne[T any](ctx context.Context, e *Executor, name, stmt string, args []any, scan ScanFunc[T]) (T, bool, error) {
	var zero T
	rows, err := Query(ctx, e, name, stmt, args, scan)
	if err != nil || len(rows) == 0 {
		return zero, false, err
	}
	return rows[0], true, nil
}

func queryWithRetry[T any](ctx context.Context, e *Executor, name, stmt string, args []any, scan ScanFunc[T]) ([]T, error) {
	query := e.mgr.Dialect().Rebind(stmt)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lease, err := e.mgr.Acquire(ctx)
		var out []T
		if err == nil {
			out, err = runAttempt(ctx, e, lease.DB, name, query, args, attempt, scan)
		}
		if err == nil {
			lease.Release()
			return out, nil
		}

		if ctx.Err() != nil {
			releaseLease(lease)
			metrics.QueryAttempts.WithLabelValues(name, OutcomeCanceled).Inc()
			return nil, ctx.Err()
		}
		if !IsRetryable(err) {
			releaseLease(lease)
			metrics.QueryAttempts.WithLabelValues(name, OutcomeFatal).Inc()
			e.log.Error().Err(err).Str("stmt", name).Int("attempt", attempt).Msg("query failed")
			return nil, fmt.Errorf("query %s: %w", name, err)
		}

		metrics.QueryAttempts.WithLabelValues(name, OutcomeRetryable).Inc()
		lastErr = err
		if lease != nil {
			lease.Discard(err)
		}

		if attempt < e.maxAttempts {
			backoff := time.Duration(attempt) * e.backoffStep
			e.log.Warn().Err(err).Str("stmt", name).Int("attempt", attempt).Dur("backoff", backoff).Msg("retryable query error")
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	e.log.Error().Err(lastErr).Str("stmt", name).Int("attempts", e.maxAttempts).Msg("query retries exhausted")
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, name, e.maxAttempts, lastErr)
}

// runAttempt executes the statement once, timing it and logging it when slow.
func runAttempt[T any](ctx context.Context, e *Executor, db *sql.DB, name, query string, args []any, attempt int, scan ScanFunc[T]) ([]T, error) {
	start := time.Now()
	out, err := scanAll(ctx, db, query, args, scan)
	elapsed := time.Since(start)

	metrics.QueryDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err == nil {
		metrics.QueryAttempts.WithLabelValues(name, OutcomeOK).Inc()
	}
	if e.slowQuery > 0 && elapsed >= e.slowQuery {
		metrics.SlowQueries.WithLabelValues(name).Inc()
		ev := e.log.Warn().
			Str("stmt", name).
			Dur("duration", elapsed).
			Int("rows", len(out)).
			Int("attempt", attempt)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("slow query")
	}
	return out, err
}

func scanAll[T any](ctx context.Context, db *sql.DB, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func releaseLease(l *Lease) {
	if l != nil {
		l.Release()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
