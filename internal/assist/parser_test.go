package assist

import (
	"errors"
	"testing"
)

func TestParseModelResponseStrictJSON(t *testing.T) {
	raw := `{"sql":"SELECT u.name FROM users u WHERE u.app_type = 'legacy'","description":"All users","chart_type":"table","transcript_query":"users"}`

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if spec.SQL != "SELECT u.name FROM users u WHERE u.app_type = 'legacy'" {
		t.Errorf("sql = %q", spec.SQL)
	}
	if spec.Description != "All users" {
		t.Errorf("description = %q", spec.Description)
	}
	if spec.ChartType != "table" {
		t.Errorf("chart_type = %q", spec.ChartType)
	}
	if spec.TranscriptQuery != "users" {
		t.Errorf("transcript_query = %q", spec.TranscriptQuery)
	}
}

// Valid JSON must survive the parse byte-exact, including escape sequences
// inside string bodies that the cleanup pass would otherwise unescape.
func TestParseModelResponsePreservesEscapes(t *testing.T) {
	raw := `{"sql":"SELECT \"name\" FROM users WHERE note = 'a\\b'","chart_type":"bar"}`

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if want := `SELECT "name" FROM users WHERE note = 'a\b'`; spec.SQL != want {
		t.Errorf("sql = %q, want %q", spec.SQL, want)
	}
}

func TestParseModelResponseWrappedAndMultiline(t *testing.T) {
	raw := "\"{\"sql\": \"SELECT count(*) as count\nFROM leads\nWHERE app_type = 'pioneer'\", \"description\": \"Lead count\", \"chart_type\": \"bar\"}\""

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if spec.SQL == "" {
		t.Fatal("sql not recovered")
	}
	if spec.ChartType != "bar" {
		t.Errorf("chart_type = %q", spec.ChartType)
	}
}

func TestParseModelResponseRegexFallback(t *testing.T) {
	// Truncated JSON: the object never closes, so both strict parses fail.
	raw := `{"sql": "SELECT name FROM accounts WHERE app_type = 'legacy' LIMIT 5", "description": "Accounts", "chart_type": "pie", "transcript_query": "accounts"`

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if spec.SQL != "SELECT name FROM accounts WHERE app_type = 'legacy' LIMIT 5" {
		t.Errorf("sql = %q", spec.SQL)
	}
	if spec.ChartType != "pie" {
		t.Errorf("chart_type = %q", spec.ChartType)
	}
}

// Each field is recovered independently: one malformed value must not block
// the others.
func TestParseModelResponsePartialRecovery(t *testing.T) {
	raw := `Here is the query: {"sql": "SELECT 1", "description": broken, "chart_type": "line"} hope that helps`

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if spec.SQL != "SELECT 1" {
		t.Errorf("sql = %q", spec.SQL)
	}
	if spec.ChartType != "line" {
		t.Errorf("chart_type = %q", spec.ChartType)
	}
	if spec.Description != "" {
		t.Errorf("description = %q, want empty", spec.Description)
	}
}

func TestParseModelResponseEscapedQuotesViaRegex(t *testing.T) {
	raw := `{"sql": "SELECT name FROM users WHERE title = \"VP Sales\"", "chart_type": "table",`

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if want := `SELECT name FROM users WHERE title = "VP Sales"`; spec.SQL != want {
		t.Errorf("sql = %q, want %q", spec.SQL, want)
	}
}

func TestParseModelResponseFailure(t *testing.T) {
	for _, raw := range []string{"", "   \n  ", "I cannot generate SQL for that question."} {
		if _, err := ParseModelResponse(raw); !errors.Is(err, ErrParseFailure) {
			t.Errorf("ParseModelResponse(%q) err = %v, want ErrParseFailure", raw, err)
		}
	}
}

func TestParseModelResponseEmptySQLEscapeHatch(t *testing.T) {
	raw := `{"sql": "", "description": "The schema has no marketing spend data", "chart_type": "text"}`

	spec, err := ParseModelResponse(raw)
	if err != nil {
		t.Fatalf("ParseModelResponse: %v", err)
	}
	if spec.SQL != "" {
		t.Errorf("sql = %q, want empty", spec.SQL)
	}
	if spec.Description == "" {
		t.Error("description should carry the model's explanation")
	}
}

func TestNormalizeChartType(t *testing.T) {
	cases := map[string]string{
		"bar":     ChartBar,
		"PIE":     ChartPie,
		" line ":  ChartLine,
		"table":   ChartTable,
		"text":    ChartText,
		"scatter": ChartTable,
		"":        ChartTable,
	}
	for in, want := range cases {
		if got := normalizeChartType(in); got != want {
			t.Errorf("normalizeChartType(%q) = %q, want %q", in, got, want)
		}
	}
}
