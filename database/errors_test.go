package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg too many connections", &pq.Error{Code: "53300"}, true},
		{"pg admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"pg connection exception class", &pq.Error{Code: "08006"}, true},
		{"pg syntax error", &pq.Error{Code: "42601", Message: "syntax error at or near"}, false},
		{"pg undefined table", &pq.Error{Code: "42P01", Message: "relation does not exist"}, false},
		{"pg unique violation", &pq.Error{Code: "23505"}, false},
		{"mysql too many connections", &mysql.MySQLError{Number: 1040}, true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064, Message: "timeout in syntax"}, false},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, false},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"bad conn", driver.ErrBadConn, true},
		{"conn done", sql.ErrConnDone, true},
		{"pool closed under caller", errors.New("sql: database is closed"), true},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"wrapped reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"message timeout", errors.New("query timeout expired"), true},
		{"message terminated", errors.New("terminating connection due to administrator command: terminated"), true},
		{"message too many clients", errors.New("sorry, too many clients already"), true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), false},
		{"closed", ErrManagerClosed, false},
		{"plain", errors.New("column does not exist"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
