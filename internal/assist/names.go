package assist

import (
	"regexp"
	"strconv"
	"strings"
)

// Runs of capitalized words; stoplisted edge words are trimmed afterwards so
// "Show Brent Walker" still yields the name.
var personNameRegex = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// Capitalized terms that are never rep names in this domain. The heuristic
// stays approximate: lowercase names and names colliding with these entries
// are missed by design.
var nameStoplist = map[string]struct{}{
	"Salesforce": {}, "Otter": {}, "Legacy": {}, "Pioneer": {},
	"January": {}, "February": {}, "March": {}, "April": {}, "May": {},
	"June": {}, "July": {}, "August": {}, "September": {}, "October": {},
	"November": {}, "December": {},
	"How": {}, "What": {}, "Where": {}, "When": {}, "Which": {}, "Who": {}, "Why": {},
	"Show": {}, "List": {}, "Find": {}, "Get": {}, "Give": {}, "Tell": {},
	"Top": {}, "Compare": {}, "Count": {},
}

// ExtractPersonName returns the first capitalized run in the query that
// survives stoplist trimming, capped at two words, or "" when none is found.
func ExtractPersonName(query string) string {
	for _, candidate := range personNameRegex.FindAllString(query, -1) {
		words := strings.Fields(candidate)
		for len(words) > 0 {
			if _, stopped := nameStoplist[words[0]]; !stopped {
				break
			}
			words = words[1:]
		}
		for len(words) > 0 {
			if _, stopped := nameStoplist[words[len(words)-1]]; !stopped {
				break
			}
			words = words[:len(words)-1]
		}
		if len(words) == 0 {
			continue
		}
		if len(words) > 2 {
			words = words[:2]
		}
		return strings.Join(words, " ")
	}
	return ""
}

var lastNDaysRegex = regexp.MustCompile(`(?i)\blast\s+(\d{1,3})\s+days?\b`)

// ExtractTimeFloorDays derives a transcript-search date floor from explicit
// time phrasing in the query. Deterministic keyword lookup, keeping the
// pipeline at two model calls per turn. Returns (0, false) when the query
// carries no time signal, meaning no floor should be applied.
func ExtractTimeFloorDays(query string) (int, bool) {
	lower := strings.ToLower(query)

	if match := lastNDaysRegex.FindStringSubmatch(query); match != nil {
		if days, err := strconv.Atoi(match[1]); err == nil && days > 0 {
			return days, true
		}
	}

	switch {
	case strings.Contains(lower, "last week"), strings.Contains(lower, "this week"):
		return 7, true
	case strings.Contains(lower, "last month"), strings.Contains(lower, "this month"),
		strings.Contains(lower, "recent"), strings.Contains(lower, "lately"):
		return 30, true
	case strings.Contains(lower, "this quarter"), strings.Contains(lower, "last quarter"):
		return 90, true
	case strings.Contains(lower, "this year"):
		return 365, true
	}
	return 0, false
}
