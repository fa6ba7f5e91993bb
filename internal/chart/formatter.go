// Package chart shapes query results into chart-ready or tabular payloads
// for the dashboard frontend.
package chart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saleslens/sales_insights/internal/mirror"
)

// Dataset is one Chart.js-style series.
type Dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderColor     []string  `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
}

// Series is the labels+datasets payload for bar, pie and line charts.
type Series struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Table is the formatted tabular payload.
type Table struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	RawHeaders []string   `json:"raw_headers"`
}

// Value columns tried in order when charting; the first present wins.
var valueColumnPriority = []string{
	"total", "total_revenue", "total_amount", "count", "opportunity_count",
	"deal_count", "revenue", "amount", "opportunities", "leads", "cases",
	"accounts", "conversion_rate", "win_rate", "pipeline_value", "won_revenue",
}

// Label columns tried in order; the first present wins.
var labelColumnPriority = []string{
	"name", "sales_rep", "sales_rep_name", "owner_name", "account_name",
	"opportunity_name", "stage_name", "status", "lead_source", "industry",
	"period", "month",
}

// FormatData shapes rows for the requested chart type, falling back to a
// table when no chartable value/label pair can be detected. Column order is
// recovered from the executed statement's column list.
func FormatData(rows []mirror.Row, columns []string, chartType string) any {
	if len(rows) == 0 {
		return nil
	}

	switch chartType {
	case "bar", "line":
		if series, ok := formatSeries(rows, columns, chartType); ok {
			return series
		}
	case "pie":
		if series, ok := formatPie(rows, columns); ok {
			return series
		}
	}
	return FormatTable(rows, columns)
}

func formatSeries(rows []mirror.Row, columns []string, chartType string) (Series, bool) {
	valueColumn := detectValueColumn(rows, columns)
	labelColumn := detectLabelColumn(columns)
	if valueColumn == "" || labelColumn == "" {
		return Series{}, false
	}

	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, formatLabel(row[labelColumn]))
		values = append(values, numericValue(row[valueColumn]))
	}

	return Series{
		Labels: labels,
		Datasets: []Dataset{{
			Label:           humanize(valueColumn),
			Data:            values,
			BackgroundColor: cycleColors(barPalette, len(values), 0.6),
			BorderColor:     cycleColors(barPalette, len(values), 1),
			BorderWidth:     1,
		}},
	}, true
}

func formatPie(rows []mirror.Row, columns []string) (Series, bool) {
	if len(columns) < 2 {
		return Series{}, false
	}

	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, formatLabel(row[columns[0]]))
		values = append(values, numericValue(row[columns[1]]))
	}

	return Series{
		Labels: labels,
		Datasets: []Dataset{{
			Data:            values,
			BackgroundColor: cycleColors(piePalette, len(values), 0.7),
			BorderColor:     cycleColors(piePalette, len(values), 1),
			BorderWidth:     1,
		}},
	}, true
}

// FormatTable renders rows with human-friendly values: short dates, K/M
// abbreviations for large figures, "-" for nulls.
func FormatTable(rows []mirror.Row, columns []string) Table {
	headers := make([]string, 0, len(columns))
	for _, col := range columns {
		headers = append(headers, humanize(col))
	}

	formatted := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cells = append(cells, FormatTableValue(row[col]))
		}
		formatted = append(formatted, cells)
	}

	return Table{Headers: headers, Rows: formatted, RawHeaders: append([]string(nil), columns...)}
}

func detectValueColumn(rows []mirror.Row, columns []string) string {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	for _, col := range valueColumnPriority {
		if _, ok := present[col]; ok {
			return col
		}
	}

	first := rows[0]
	var numeric []string
	for _, col := range columns {
		if isNumericValue(first[col]) {
			numeric = append(numeric, col)
		}
	}
	// Prefer the second numeric column: the first is usually an id or label.
	if len(numeric) > 1 {
		return numeric[1]
	}
	if len(numeric) == 1 {
		return numeric[0]
	}
	return ""
}

func detectLabelColumn(columns []string) string {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	for _, col := range labelColumnPriority {
		if _, ok := present[col]; ok {
			return col
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}

func isNumericValue(value any) bool {
	switch v := value.(type) {
	case int, int32, int64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

func numericValue(value any) float64 {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return 0
}

func formatLabel(value any) string {
	if value == nil {
		return ""
	}
	label := fmt.Sprintf("%v", value)
	if strings.ContainsAny(label, "-_") {
		label = humanize(label)
	}
	return label
}

// FormatTableValue renders one cell for display.
func FormatTableValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case time.Time:
		return v.Format("Jan 02, 2006")
	case float64:
		if v > 1000 {
			return formatCurrencyDisplay(v)
		}
		return strconv.FormatFloat(roundTwo(v), 'f', -1, 64)
	case float32:
		return FormatTableValue(float64(v))
	case int64:
		if v > 1000 {
			return numberWithCommas(v)
		}
		return strconv.FormatInt(v, 10)
	case int:
		return FormatTableValue(int64(v))
	case bool:
		return strconv.FormatBool(v)
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format("Jan 02, 2006")
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatCurrencyDisplay(value float64) string {
	switch {
	case value >= 1_000_000:
		return "$" + strconv.FormatFloat(roundOne(value/1_000_000), 'f', -1, 64) + "M"
	case value >= 1_000:
		return "$" + strconv.FormatFloat(roundOne(value/1_000), 'f', -1, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(roundTwo(value), 'f', -1, 64)
	}
}

func roundOne(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func roundTwo(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func numberWithCommas(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func humanize(col string) string {
	words := strings.FieldsFunc(col, func(r rune) bool { return r == '_' || r == '-' })
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

var barPalette = []string{
	"52, 152, 219", // blue
	"46, 204, 113", // green
	"241, 196, 15", // yellow
	"231, 76, 60",  // red
	"155, 89, 182", // purple
	"230, 126, 34", // orange
}

var piePalette = []string{
	"52, 152, 219",
	"46, 204, 113",
	"241, 196, 15",
	"231, 76, 60",
	"155, 89, 182",
	"230, 126, 34",
	"26, 188, 156",
	"243, 156, 18",
}

func cycleColors(palette []string, count int, alpha float64) []string {
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		rgb := palette[i%len(palette)]
		out = append(out, fmt.Sprintf("rgba(%s, %s)", rgb, strconv.FormatFloat(alpha, 'f', -1, 64)))
	}
	return out
}
