// Package history persists prompt history and model-call audit events in a
// local SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createPromptHistoryTableSQL = `
CREATE TABLE IF NOT EXISTS prompt_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ip_address TEXT NOT NULL,
	app_type TEXT NOT NULL,
	prompt TEXT NOT NULL,
	created_at_utc TEXT NOT NULL,
	UNIQUE (ip_address, prompt)
)`

const createModelEventsTableSQL = `
CREATE TABLE IF NOT EXISTS model_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at_utc TEXT NOT NULL,
	session_id TEXT NOT NULL,
	app_type TEXT NOT NULL,
	stage TEXT NOT NULL,
	model TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	success INTEGER NOT NULL,
	error_message TEXT NOT NULL
)`

var createPromptHistoryIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_prompt_history_ip_app ON prompt_history(ip_address, app_type)`,
	`CREATE INDEX IF NOT EXISTS idx_prompt_history_created ON prompt_history(created_at_utc)`,
}

var createModelEventsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_model_events_session ON model_events(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_model_events_stage_success ON model_events(stage, success)`,
}

const dropPromptHistorySQL = `DROP TABLE IF EXISTS prompt_history`
const dropModelEventsSQL = `DROP TABLE IF EXISTS model_events`
const deletePromptHistorySQL = `DELETE FROM prompt_history`
const deleteModelEventsSQL = `DELETE FROM model_events`

// Re-asking a question should not duplicate history rows.
const insertPromptSQL = `
INSERT OR IGNORE INTO prompt_history (
	ip_address,
	app_type,
	prompt,
	created_at_utc
) VALUES (?, ?, ?, ?)`

const selectRecentPromptsSQL = `
SELECT prompt, created_at_utc
FROM prompt_history
WHERE ip_address = ? AND app_type = ?
ORDER BY created_at_utc DESC, id DESC
LIMIT ?`

const insertModelEventSQL = `
INSERT INTO model_events (
	created_at_utc,
	session_id,
	app_type,
	stage,
	model,
	duration_ms,
	success,
	error_message
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Stages recorded in model_events.
const (
	StageGeneration = "generation"
	StageSynthesis  = "synthesis"
	StageEmbedding  = "embedding"
)

// PromptRecord is one remembered question.
type PromptRecord struct {
	Prompt       string
	CreatedAtUTC string
}

// ModelEvent is one audited model call.
type ModelEvent struct {
	CreatedAtUTC string
	SessionID    string
	AppType      string
	Stage        string
	Model        string
	DurationMS   int64
	Success      bool
	ErrorMessage string
}

// Store wraps the local SQLite database holding prompt history and audit rows.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed and verifies the schema.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureStoreSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordPrompt remembers one asked question per client address. Duplicate
// (ip, prompt) pairs are silently ignored.
func (s *Store) RecordPrompt(ipAddress, appType, prompt string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is not initialized")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	ipAddress = strings.TrimSpace(ipAddress)
	appType = strings.TrimSpace(appType)

	if _, err := s.db.Exec(
		insertPromptSQL,
		ipAddress,
		appType,
		prompt,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

// RecentPrompts returns the latest remembered questions for one client
// address and app type, newest first.
func (s *Store) RecentPrompts(ipAddress, appType string, limit int) ([]PromptRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store is not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(selectRecentPromptsSQL, strings.TrimSpace(ipAddress), strings.TrimSpace(appType), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent prompts: %w", err)
	}
	defer rows.Close()

	var records []PromptRecord
	for rows.Next() {
		var record PromptRecord
		if err := rows.Scan(&record.Prompt, &record.CreatedAtUTC); err != nil {
			return nil, fmt.Errorf("scan prompt row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt rows: %w", err)
	}
	return records, nil
}

// RecordModelEvent appends one audit row. Best-effort callers may ignore the
// returned error; the pipeline never depends on audit writes.
func (s *Store) RecordModelEvent(event ModelEvent) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is not initialized")
	}
	if strings.TrimSpace(event.CreatedAtUTC) == "" {
		event.CreatedAtUTC = time.Now().UTC().Format(time.RFC3339)
	}
	event.SessionID = strings.TrimSpace(event.SessionID)
	event.Stage = strings.TrimSpace(event.Stage)
	event.Model = strings.TrimSpace(event.Model)
	event.ErrorMessage = strings.TrimSpace(event.ErrorMessage)

	if _, err := s.db.Exec(
		insertModelEventSQL,
		event.CreatedAtUTC,
		event.SessionID,
		event.AppType,
		event.Stage,
		event.Model,
		event.DurationMS,
		boolToInt(event.Success),
		event.ErrorMessage,
	); err != nil {
		return fmt.Errorf("insert model event: %w", err)
	}
	return nil
}

// Reset clears all remembered prompts and audit rows.
func (s *Store) Reset() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is not initialized")
	}
	if _, err := s.db.Exec(deletePromptHistorySQL); err != nil {
		return fmt.Errorf("clear prompt_history: %w", err)
	}
	if _, err := s.db.Exec(deleteModelEventsSQL); err != nil {
		return fmt.Errorf("clear model_events: %w", err)
	}
	return nil
}

// Setup drops and recreates all tables, for a fresh install.
func Setup(dbPath string) error {
	store, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.db.Exec(dropPromptHistorySQL); err != nil {
		return fmt.Errorf("drop prompt_history table: %w", err)
	}
	if _, err := store.db.Exec(dropModelEventsSQL); err != nil {
		return fmt.Errorf("drop model_events table: %w", err)
	}
	return ensureStoreSchema(store.db)
}

func ensureStoreSchema(db *sql.DB) error {
	if _, err := db.Exec(createPromptHistoryTableSQL); err != nil {
		return fmt.Errorf("create prompt_history table: %w", err)
	}
	if _, err := db.Exec(createModelEventsTableSQL); err != nil {
		return fmt.Errorf("create model_events table: %w", err)
	}

	missingPrompts, err := missingTableColumns(db, "prompt_history", requiredPromptHistoryColumns())
	if err != nil {
		return err
	}
	if len(missingPrompts) > 0 {
		sort.Strings(missingPrompts)
		return fmt.Errorf(
			"incompatible prompt_history schema, missing columns: %s",
			strings.Join(missingPrompts, ", "),
		)
	}

	missingEvents, err := missingTableColumns(db, "model_events", requiredModelEventColumns())
	if err != nil {
		return err
	}
	if len(missingEvents) > 0 {
		sort.Strings(missingEvents)
		return fmt.Errorf(
			"incompatible model_events schema, missing columns: %s",
			strings.Join(missingEvents, ", "),
		)
	}

	for _, stmt := range createPromptHistoryIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create prompt_history index: %w", err)
		}
	}
	for _, stmt := range createModelEventsIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create model_events index: %w", err)
		}
	}
	return nil
}

func requiredPromptHistoryColumns() []string {
	return []string{
		"id",
		"ip_address",
		"app_type",
		"prompt",
		"created_at_utc",
	}
}

func requiredModelEventColumns() []string {
	return []string{
		"id",
		"created_at_utc",
		"session_id",
		"app_type",
		"stage",
		"model",
		"duration_ms",
		"success",
		"error_message",
	}
}

func missingTableColumns(db *sql.DB, tableName string, required []string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, tableName))
	if err != nil {
		return nil, fmt.Errorf("inspect %s schema: %w", tableName, err)
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name string
		var colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan %s schema: %w", tableName, err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s schema: %w", tableName, err)
	}

	var missing []string
	for _, col := range required {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
