package assist

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailure means neither the strict parse nor the regex fallback
// recovered any field from the model response.
var ErrParseFailure = errors.New("could not parse model response")

var (
	newlineRegex    = regexp.MustCompile(`\r\n|\r|\n`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// Non-greedy per-key extraction tolerant of internal escaped quotes.
	fieldPatterns = map[string]*regexp.Regexp{
		"sql":              regexp.MustCompile(`"sql":\s*"((?:[^"\\]|\\.)*)"`),
		"description":      regexp.MustCompile(`"description":\s*"((?:[^"\\]|\\.)*)"`),
		"chart_type":       regexp.MustCompile(`"chart_type":\s*"((?:[^"\\]|\\.)*)"`),
		"transcript_query": regexp.MustCompile(`"transcript_query":\s*"((?:[^"\\]|\\.)*)"`),
		"summary":          regexp.MustCompile(`"summary":\s*"((?:[^"\\]|\\.)*)"`),
	}
)

// ParseModelResponse extracts a QuerySpec from raw model output. Hosted
// models reliably produce near-JSON rather than always-valid JSON, so a
// strict parse of the cleaned text is tried first and a per-key regex
// fallback second; each key is recovered independently so one malformed
// field does not block the others.
func ParseModelResponse(raw string) (QuerySpec, error) {
	if strings.TrimSpace(raw) == "" {
		return QuerySpec{}, fmt.Errorf("%w: empty response", ErrParseFailure)
	}

	// Well-formed single-line JSON must survive unchanged, so try it before
	// the cleanup pass, which unescapes characters inside string bodies.
	var spec QuerySpec
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &spec); err == nil {
		return spec, nil
	}

	cleaned := cleanModelResponse(raw)
	if err := json.Unmarshal([]byte(cleaned), &spec); err == nil {
		return spec, nil
	}

	spec = extractWithRegex(raw)
	if spec.IsEmpty() {
		spec = extractWithRegex(cleaned)
	}
	if spec.IsEmpty() {
		return QuerySpec{}, ErrParseFailure
	}
	return spec, nil
}

// cleanModelResponse normalizes the response to a single line: models are
// instructed to emit single-line JSON but embedded newlines still appear and
// break a naive parse.
func cleanModelResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`) {
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	cleaned = newlineRegex.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, `\"`, `"`)
	cleaned = strings.ReplaceAll(cleaned, `\\`, `\`)

	return strings.TrimSpace(cleaned)
}

func extractWithRegex(text string) QuerySpec {
	var spec QuerySpec
	for key, pattern := range fieldPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := strings.ReplaceAll(match[1], `\"`, `"`)
		value = strings.ReplaceAll(value, `\\`, `\`)
		switch key {
		case "sql":
			spec.SQL = value
		case "description":
			spec.Description = value
		case "chart_type":
			spec.ChartType = value
		case "transcript_query":
			spec.TranscriptQuery = value
		case "summary":
			spec.Summary = value
		}
	}
	return spec
}
