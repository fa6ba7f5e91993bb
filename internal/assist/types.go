package assist

import (
	"strings"
	"time"

	"github.com/saleslens/sales_insights/internal/mirror"
)

// Chart types the generation stage may select.
const (
	ChartBar   = "bar"
	ChartPie   = "pie"
	ChartLine  = "line"
	ChartTable = "table"
	ChartText  = "text"
)

// QuerySpec is the structured payload extracted from a generation response.
// The wire shape is a single-line JSON object with these exact keys.
type QuerySpec struct {
	SQL             string `json:"sql,omitempty"`
	Description     string `json:"description,omitempty"`
	ChartType       string `json:"chart_type,omitempty"`
	TranscriptQuery string `json:"transcript_query,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

// IsEmpty reports whether no field was recovered at all.
func (s QuerySpec) IsEmpty() bool {
	return s.SQL == "" && s.Description == "" && s.ChartType == "" &&
		s.TranscriptQuery == "" && s.Summary == ""
}

func normalizeChartType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ChartBar, ChartPie, ChartLine, ChartTable, ChartText:
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return ChartTable
	}
}

const (
	exchangeKindData           = "data_query"
	exchangeKindConversational = "conversational"
)

// Exchange is one completed turn kept in conversation context.
type Exchange struct {
	UserQuery string
	Reply     string
	SQL       string
	Kind      string
	Timestamp time.Time
}

// Result is the structured response handed back to the entry surface.
type Result struct {
	Success     bool         `json:"success"`
	UserQuery   string       `json:"user_query"`
	Description string       `json:"description,omitempty"`
	ChartType   string       `json:"chart_type,omitempty"`
	Data        any          `json:"data,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Error       string       `json:"error,omitempty"`
	RawResults  []mirror.Row `json:"raw_results,omitempty"`
}
