// database/connection.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cheapflightsfrom/backend/config"
	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/metrics"
)

// State is the lifecycle position of the Manager's pool.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateError
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Opener creates a *sql.DB. sql.Open satisfies it; tests substitute sqlmock.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Option configures a Manager.
type Option func(*Manager)

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(m *Manager) { m.open = open }
}

// pool is one *sql.DB generation. A retired pool is closed once its last lease is
// released so callers queued on it are never cut off mid-wait.
type pool struct {
	db      *sql.DB
	users   int
	retired bool
}

// Manager owns the process's single pooled connection. The pool is created lazily on
// first use, detached by Reset when a query reports a connection failure, and rebuilt
// on the next Acquire call.
type Manager struct {
	mu      sync.Mutex
	cur     *pool
	state   State
	lastErr error

	dialect        Dialect
	dsn            string
	maxOpenConns   int
	idleTimeout    time.Duration
	connectTimeout time.Duration
	open           Opener
	log            zerolog.Logger
}

// Lease is a caller's hold on one pool generation. Release it when the query and its
// rows are done.
type Lease struct {
	DB *sql.DB

	m    *Manager
	p    *pool
	once sync.Once
}

// Release returns the lease. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() { l.m.release(l.p) })
}

// Discard reports a connection failure seen on this lease and releases it. The pool
// is detached only if it is still the current one; a failure on an already replaced
// pool leaves the new pool alone.
func (l *Lease) Discard(cause error) {
	l.m.mu.Lock()
	if l.m.cur == l.p {
		l.m.detachLocked(cause)
	}
	l.m.mu.Unlock()
	l.Release()
}

// NewManager validates the driver and returns a disconnected Manager. No connection is
// made until Acquire is called.
func NewManager(cfg config.DatabaseConfig, opts ...Option) (*Manager, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		dialect:        dialect,
		dsn:            cfg.DSN(),
		maxOpenConns:   cfg.MaxOpenConns,
		idleTimeout:    cfg.IdleTimeout,
		connectTimeout: cfg.ConnectTimeout,
		open:           sql.Open,
		log:            logging.With("database"),
	}
	if m.maxOpenConns < 1 {
		m.maxOpenConns = 1
	}
	for _, opt := range opts {
		opt(m)
	}
	m.setState(StateDisconnected)
	return m, nil
}

// Dialect returns the SQL dialect of the configured driver.
func (m *Manager) Dialect() Dialect {
	return m.dialect
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError is the failure that moved the Manager into StateError, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Acquire leases the pooled *sql.DB, opening and pinging it if needed.
// Concurrent callers share one pool and at most one is ever built at a time.
func (m *Manager) Acquire(ctx context.Context) (*Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateClosed:
		return nil, ErrManagerClosed
	case StateConnected:
		if m.cur != nil {
			return m.leaseLocked(), nil
		}
	case StateError:
		m.setState(StateReconnecting)
	}

	db, err := m.open(m.dialect.DriverName(), m.dsn)
	if err != nil {
		m.fail(err)
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(m.maxOpenConns)
	db.SetMaxIdleConns(m.maxOpenConns)
	if m.idleTimeout > 0 {
		db.SetConnMaxIdleTime(m.idleTimeout)
	}

	pingCtx := ctx
	if m.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, m.connectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() // Close the pool if ping fails
		m.fail(err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m.cur = &pool{db: db}
	m.lastErr = nil
	m.setState(StateConnected)
	m.log.Info().Str("driver", m.dialect.DriverName()).Int("max_open_conns", m.maxOpenConns).Msg("database pool opened")
	return m.leaseLocked(), nil
}

func (m *Manager) leaseLocked() *Lease {
	m.cur.users++
	return &Lease{DB: m.cur.db, m: m, p: m.cur}
}

func (m *Manager) release(p *pool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.users--
	if p.retired && p.users == 0 {
		m.closePool(p)
	}
}

// Reset detaches the current pool after a connection failure so the next Acquire
// rebuilds it. Leases still held on the old pool keep working until released.
// Safe to call when no pool exists.
func (m *Manager) Reset(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachLocked(cause)
}

func (m *Manager) detachLocked(cause error) {
	if m.state == StateClosed {
		return
	}
	if p := m.cur; p != nil {
		m.cur = nil
		p.retired = true
		if p.users == 0 {
			m.closePool(p)
		}
		metrics.PoolResets.Inc()
	}
	m.fail(cause)
	m.log.Warn().Err(cause).Msg("database pool reset")
}

func (m *Manager) closePool(p *pool) {
	if err := p.db.Close(); err != nil {
		m.log.Debug().Err(err).Msg("error closing discarded pool")
	}
}

// Ping checks the store through the current pool, opening it if needed.
func (m *Manager) Ping(ctx context.Context) error {
	lease, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	if err := lease.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the pool. The Manager cannot be reopened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil
	}
	var err error
	if m.cur != nil {
		err = m.cur.db.Close()
		m.cur = nil
	}
	m.setState(StateClosed)
	m.log.Info().Msg("database connection closed")
	return err
}

// fail and setState must be called with mu held.
func (m *Manager) fail(err error) {
	m.lastErr = err
	m.setState(StateError)
}

func (m *Manager) setState(s State) {
	m.state = s
	metrics.PoolState.Set(float64(s))
}

// Stats reports pool statistics without opening a pool.
func (m *Manager) Stats() (sql.DBStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return sql.DBStats{}, ErrNotConnected
	}
	return m.cur.db.Stats(), nil
}
