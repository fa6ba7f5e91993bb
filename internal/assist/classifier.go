package assist

import "strings"

// Advice-seeking phrasings that route a turn to the conversational branch.
var conversationalPatterns = []string{
	"how can i", "how do i", "what are best practices", "best practices",
	"help me", "advice", "recommend", "should i", "what should", "how to",
	"tips for", "guide me", "explain how", "why is", "why are", "how can we",
	"what training", "how should i",
}

// Domain and metric keywords that mark a turn as a data query.
var dataKeywords = []string{
	"show", "list", "find", "get", "top", "most", "least", "how many",
	"count", "features", "opportunities", "accounts", "leads", "cases",
	"users", "sales", "revenue", "pipeline", "deals", "wins", "closed",
	"open", "conversion", "performance", "stats", "metrics", "reps",
	"customers", "prospects", "support", "tickets", "activity", "month",
	"year", "trend", "distribution", "by", "compare", "vs", "versus",
	"which", "what", "segment", "average time", "stuck in", "spend in",
}

// IsDataQuery decides whether an utterance asks for structured facts from
// the mirror. Pure lexical heuristic: advice phrasings win over data
// keywords, and an utterance matching neither list is treated as non-data.
// Misclassifications are recoverable downstream.
func IsDataQuery(text string) bool {
	lower := strings.ToLower(text)

	for _, pattern := range conversationalPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	for _, keyword := range dataKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
