package mirror

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueryRowsColumnOrderAndValues(t *testing.T) {
	db := openTestDB(t)
	stmts := []string{
		`CREATE TABLE reps (sales_rep TEXT, total_revenue REAL, deal_count INTEGER)`,
		`INSERT INTO reps VALUES ('Sarah Chen', 120000.5, 7)`,
		`INSERT INTO reps VALUES ('Brent Walker', 90000, 4)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	result, err := QueryRows(context.Background(), db,
		`SELECT sales_rep, total_revenue, deal_count FROM reps ORDER BY 2 DESC`)
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}

	wantColumns := []string{"sales_rep", "total_revenue", "deal_count"}
	if len(result.Columns) != len(wantColumns) {
		t.Fatalf("columns = %v", result.Columns)
	}
	for i, want := range wantColumns {
		if result.Columns[i] != want {
			t.Errorf("column[%d] = %q, want %q", i, result.Columns[i], want)
		}
	}

	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0]["sales_rep"] != "Sarah Chen" {
		t.Errorf("first row = %v", result.Rows[0])
	}
	if result.Rows[0]["total_revenue"] != 120000.5 {
		t.Errorf("revenue = %v (%T)", result.Rows[0]["total_revenue"], result.Rows[0]["total_revenue"])
	}
	if result.Rows[1]["deal_count"] != int64(4) {
		t.Errorf("deal count = %v (%T)", result.Rows[1]["deal_count"], result.Rows[1]["deal_count"])
	}
}

func TestQueryRowsByteSlicesBecomeStrings(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`CREATE TABLE notes (body BLOB)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO notes VALUES (?)`, []byte("raw bytes")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	result, err := QueryRows(context.Background(), db, `SELECT body FROM notes`)
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if got, ok := result.Rows[0]["body"].(string); !ok || got != "raw bytes" {
		t.Errorf("body = %v (%T), want string", result.Rows[0]["body"], result.Rows[0]["body"])
	}
}

// Callers that pin a connection for per-session settings query through the
// same scanning path as plain *sql.DB callers.
func TestQueryRowsOnPinnedConnection(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`CREATE TABLE pinned (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO pinned VALUES (7)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer conn.Close()

	result, err := QueryRows(context.Background(), conn, `SELECT id FROM pinned`)
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["id"] != int64(7) {
		t.Errorf("rows = %+v", result.Rows)
	}
}

func TestEmptyResultSet(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`CREATE TABLE empty_table (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	result, err := QueryRows(context.Background(), db, `SELECT id FROM empty_table`)
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if !result.Empty() {
		t.Error("no-row result should be Empty")
	}
	if len(result.Columns) != 1 {
		t.Errorf("columns = %v, column metadata should survive empty results", result.Columns)
	}
}

func TestOpenRejectsBlankDSN(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank dsn")
	}
}
