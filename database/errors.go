// database/errors.go
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	// ErrRetriesExhausted is returned when every attempt of a query failed with a
	// retryable error. It wraps the last failure.
	ErrRetriesExhausted = errors.New("query retries exhausted")
	// ErrNotConnected is returned by Ping when no pool has been opened yet.
	ErrNotConnected = errors.New("database is not connected")
	// ErrManagerClosed is returned once Close has been called.
	ErrManagerClosed = errors.New("database manager is closed")
)

// Postgres SQLSTATE codes that mean the connection, not the statement, failed.
var retryablePgCodes = map[pq.ErrorCode]struct{}{
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
}

// MySQL server error numbers with the same meaning.
var retryableMySQLNumbers = map[uint16]struct{}{
	1040: {}, // ER_CON_COUNT_ERROR
	1053: {}, // ER_SERVER_SHUTDOWN
}

var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"terminated",
	"too many clients",
	"too many connections",
	"broken pipe",
	"database is closed", // pool swapped under a queued caller
}

// IsRetryable reports whether err is a transient connection failure worth another
// attempt on a fresh pool. Statement errors (syntax, constraints, missing relations)
// and caller cancellation are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrManagerClosed) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if _, ok := retryablePgCodes[pqErr.Code]; ok {
			return true
		}
		// class 08: connection exception
		return pqErr.Code.Class() == "08"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		_, ok := retryableMySQLNumbers[myErr.Number]
		return ok
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
