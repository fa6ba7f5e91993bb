// Package mirror opens and reads the mirrored Salesforce database.
// The mirror is written only by the external sync jobs; everything in this
// repository treats it as a read-only query target.
package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Row is one result row keyed by column name.
type Row map[string]any

// ResultSet preserves both the rows and the statement's column order, which
// the map representation alone would lose.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Empty reports whether the query matched no rows.
func (rs ResultSet) Empty() bool {
	return len(rs.Rows) == 0
}

// Open connects to the mirrored Postgres database.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mirror dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mirror db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mirror db: %w", err)
	}
	return db, nil
}

// Queryer is the query surface shared by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryRows runs a query and scans every row into a column-keyed map,
// preserving result order.
func QueryRows(ctx context.Context, q Queryer, query string, args ...any) (ResultSet, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return ResultSet{}, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows drains *sql.Rows into a ResultSet. Byte slices are converted to
// strings so callers and the JSON encoder see plain scalar values.
func scanRows(rows *sql.Rows) (ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("read columns: %w", err)
	}

	result := ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
