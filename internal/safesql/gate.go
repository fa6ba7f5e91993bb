// Package safesql validates and executes model-generated SQL against the
// mirrored database. The gate accepts or rejects statements verbatim; it
// never rewrites them. The textual blocklist is defense in depth on top of a
// read-only connection, not a sound parser.
package safesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/saleslens/sales_insights/internal/mirror"
)

// ErrRejected marks statements vetoed before any database round trip.
var ErrRejected = errors.New("query rejected")

var destructivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(drop|delete|insert|alter|create|truncate)\s+`),
	regexp.MustCompile(`(?i);\s*(drop|delete|insert|alter|create|truncate)`),
	regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`),
}

// Gate executes validated read-only SQL with a bounded statement timeout.
type Gate struct {
	db      *sql.DB
	timeout time.Duration
}

// NewGate wraps a mirror connection. A non-positive timeout defaults to 15s.
func NewGate(db *sql.DB, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gate{db: db, timeout: timeout}
}

// Validate checks the statement shape without touching the database.
func Validate(sqlText string) error {
	cleaned := strings.ToLower(strings.TrimSpace(sqlText))
	if cleaned == "" {
		return fmt.Errorf("%w: empty statement", ErrRejected)
	}
	// WITH is tolerated for forward compatibility; the generation prompt
	// forbids producing it.
	if !strings.HasPrefix(cleaned, "select") && !strings.HasPrefix(cleaned, "with") {
		return fmt.Errorf("%w: only SELECT queries are allowed", ErrRejected)
	}
	for _, pattern := range destructivePatterns {
		if pattern.MatchString(sqlText) {
			return fmt.Errorf("%w: statement contains prohibited SQL commands", ErrRejected)
		}
	}
	return nil
}

// Execute validates and runs the statement, returning ordered column-keyed
// rows. An empty result set is a valid outcome, not an error.
func (g *Gate) Execute(ctx context.Context, sqlText string) (mirror.ResultSet, error) {
	if err := Validate(sqlText); err != nil {
		return mirror.ResultSet{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	conn, err := g.db.Conn(ctx)
	if err != nil {
		return mirror.ResultSet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	// Second line of defense against pathological queries, independent of
	// the request-scoped context deadline.
	timeoutMS := g.timeout.Milliseconds()
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET statement_timeout = %d", timeoutMS)); err != nil {
		return mirror.ResultSet{}, fmt.Errorf("set statement timeout: %w", err)
	}

	result, err := mirror.QueryRows(ctx, conn, sqlText)
	if err != nil {
		return mirror.ResultSet{}, fmt.Errorf("execute query: %w", err)
	}
	return result, nil
}
