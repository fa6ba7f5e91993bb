package history

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordPromptDeduplicates(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.RecordPrompt("10.0.0.1", "legacy", "top reps by revenue"); err != nil {
			t.Fatalf("record prompt: %v", err)
		}
	}
	if err := store.RecordPrompt("10.0.0.2", "legacy", "top reps by revenue"); err != nil {
		t.Fatalf("record prompt: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM prompt_history`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	// Same prompt deduplicated per address, distinct addresses kept.
	if count != 2 {
		t.Fatalf("row count=%d want 2", count)
	}
}

func TestRecordPromptSkipsBlank(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordPrompt("10.0.0.1", "legacy", "   "); err != nil {
		t.Fatalf("record blank prompt: %v", err)
	}
	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM prompt_history`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("row count=%d want 0", count)
	}
}

func TestRecentPromptsScopedAndLimited(t *testing.T) {
	store := openTestStore(t)

	prompts := []string{"first question", "second question", "third question"}
	for _, p := range prompts {
		if err := store.RecordPrompt("10.0.0.1", "legacy", p); err != nil {
			t.Fatalf("record prompt: %v", err)
		}
	}
	if err := store.RecordPrompt("10.0.0.1", "pioneer", "other partition"); err != nil {
		t.Fatalf("record prompt: %v", err)
	}

	records, err := store.RecentPrompts("10.0.0.1", "legacy", 2)
	if err != nil {
		t.Fatalf("recent prompts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d want 2", len(records))
	}
	for _, record := range records {
		if record.Prompt == "other partition" {
			t.Error("app_type scoping leaked across partitions")
		}
		if record.CreatedAtUTC == "" {
			t.Error("created_at_utc not populated")
		}
	}
}

func TestRecordModelEvent(t *testing.T) {
	store := openTestStore(t)

	err := store.RecordModelEvent(ModelEvent{
		SessionID:  "sess_1",
		AppType:    "legacy",
		Stage:      StageGeneration,
		Model:      "gpt-4.1-mini",
		DurationMS: 420,
		Success:    true,
	})
	if err != nil {
		t.Fatalf("record event: %v", err)
	}

	var stage, createdAt string
	var success int
	if err := store.db.QueryRow(`
		SELECT stage, created_at_utc, success FROM model_events WHERE session_id = 'sess_1'
	`).Scan(&stage, &createdAt, &success); err != nil {
		t.Fatalf("query event: %v", err)
	}
	if stage != StageGeneration {
		t.Errorf("stage=%q", stage)
	}
	if createdAt == "" {
		t.Error("created_at_utc not defaulted")
	}
	if success != 1 {
		t.Errorf("success=%d want 1", success)
	}
}

func TestReset(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordPrompt("10.0.0.1", "legacy", "a question"); err != nil {
		t.Fatalf("record prompt: %v", err)
	}
	if err := store.RecordModelEvent(ModelEvent{SessionID: "s", Stage: StageSynthesis, Success: false, ErrorMessage: "boom"}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	for _, table := range []string{"prompt_history", "model_events"} {
		var count int
		if err := store.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s count=%d want 0", table, count)
		}
	}
}

func TestOpenRejectsBlankPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}
