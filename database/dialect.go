// database/dialect.go
package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cheapflightsfrom/backend/config"
)

// Dialect captures the few places where Postgres and MySQL disagree. Statements in
// this package are written with '?' placeholders and rebound per dialect.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	name, ok := config.NormalizeDriver(driver)
	if !ok {
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
	return Dialect(name), nil
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == MySQL {
		return "mysql"
	}
	return "postgres"
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax. Quoted literals are
// left untouched.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// TableExistsQuery checks information_schema for a table in the current schema.
// Takes one parameter, the table name.
func (d Dialect) TableExistsQuery() string {
	schema := "current_schema()"
	if d == MySQL {
		schema = "DATABASE()"
	}
	return `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = ` + schema + ` AND table_name = ?`
}

// InList returns "?, ?, ?" for n placeholders.
func InList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// StringArgs converts values for use as variadic query arguments.
func StringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
