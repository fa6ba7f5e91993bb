package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/saleslens/sales_insights/internal/llm"
	"github.com/saleslens/sales_insights/internal/mirror"
	"github.com/saleslens/sales_insights/internal/schema"
	"github.com/saleslens/sales_insights/internal/transcripts"
)

const (
	maxTranscriptExcerpts   = 10
	transcriptExcerptBudget = 600
	fallbackNarrative       = "I found the data but had trouble analyzing it. Please try rephrasing your question."
)

var scientificNotationRegex = regexp.MustCompile(`(?i)e[+-]?\d+`)

// Synthesizer performs the second model call of a data-query turn: turning
// rows and transcript excerpts into a short business narrative.
type Synthesizer struct {
	model llm.ChatModel
	opts  llm.GenerationOptions
}

// NewSynthesizer creates a synthesis stage with fixed model presets.
// Synthesis runs at a mildly non-zero temperature for natural prose.
func NewSynthesizer(model llm.ChatModel, opts llm.GenerationOptions) *Synthesizer {
	return &Synthesizer{model: model, opts: opts}
}

// Summarize produces the narrative for already-retrieved data. Model or
// transport failures degrade to a filler narrative: losing the prose must
// never lose the data.
func (s *Synthesizer) Summarize(ctx context.Context, userQuery string, rows []mirror.Row, chunks []transcripts.Chunk, partition schema.Partition) string {
	systemPrompt := buildSynthesisSystemPrompt(partition)
	userPrompt := buildSynthesisUserPrompt(userQuery, rows, chunks)

	raw, err := s.model.Complete(ctx, systemPrompt, userPrompt, s.opts)
	if err != nil {
		return fallbackNarrative
	}
	return CleanNarrative(raw)
}

// Conversational handles the non-data branch with the same tone contract and
// any retrieved transcript context. Unlike Summarize, transport failures
// propagate: there is no data to fall back on.
func (s *Synthesizer) Conversational(ctx context.Context, userQuery, conversationContext string, chunks []transcripts.Chunk, partition schema.Partition) (string, error) {
	systemPrompt := buildSynthesisSystemPrompt(partition)

	var parts []string
	if strings.TrimSpace(conversationContext) != "" {
		parts = append(parts, conversationContext, "")
	}
	if len(chunks) > 0 {
		parts = append(parts, renderTranscriptExcerpts(chunks, 400)...)
	}
	parts = append(parts, "USER QUESTION:", userQuery, "")
	parts = append(parts, "Provide a helpful, concise response based on sales best practices and any available context.")

	raw, err := s.model.Complete(ctx, systemPrompt, strings.Join(parts, "\n"), s.opts)
	if err != nil {
		return "", fmt.Errorf("conversational call: %w", err)
	}
	return CleanNarrative(raw), nil
}

func buildSynthesisSystemPrompt(partition schema.Partition) string {
	return fmt.Sprintf(`You are a performance analyst for the %s Salesforce sales team.

Your job is to analyze data and provide clear, actionable insights.

WRITING STYLE:
- Write in short, focused paragraphs (2-4 sentences each)
- Separate topics with a blank line between paragraphs
- Maximum 3 paragraphs total
- Use bold markdown **like this** to highlight key metrics and achievements
- Be concise and scannable
- Never produce numbered or bulleted lists

ANALYSIS GUIDELINES:
- Combine quantitative metrics with qualitative context from meetings
- Focus on strengths, achievements, and positive contributions
- Frame areas for improvement constructively and supportively
- Lead with accomplishments before mentioning growth areas
- Keep tone warm, encouraging, and professional

STRUCTURE:
Paragraph 1: Key metrics and what they show (use **bold** for numbers)
Paragraph 2: Meeting insights and notable contributions
Paragraph 3: Growth opportunities or a forward-looking statement

IMPORTANT:
- Use ONLY the data provided to you
- If data is incomplete, acknowledge limitations neutrally
- Never invent or assume information not in the data`, partition.DisplayName())
}

func buildSynthesisUserPrompt(userQuery string, rows []mirror.Row, chunks []transcripts.Chunk) string {
	var parts []string
	parts = append(parts, "ORIGINAL QUESTION:", userQuery, "")

	parts = append(parts, "DATA FROM DATABASE:")
	parts = append(parts, formatRowsForPrompt(rows), "")

	if len(chunks) > 0 {
		parts = append(parts, renderTranscriptExcerpts(chunks, transcriptExcerptBudget)...)
	} else {
		parts = append(parts, "MEETING CONTEXT: No relevant meeting transcripts available.", "")
	}

	parts = append(parts, "Generate a response that answers the user's question using the data and meeting context provided.")
	return strings.Join(parts, "\n")
}

func renderTranscriptExcerpts(chunks []transcripts.Chunk, budget int) []string {
	parts := []string{"RELEVANT MEETING CONTEXT:"}
	for i, chunk := range chunks {
		if i == maxTranscriptExcerpts {
			break
		}
		heading := fmt.Sprintf("Meeting %d", i+1)
		if !chunk.MeetingDate.IsZero() {
			heading += " (" + chunk.MeetingDate.Format("2006-01-02") + ")"
		}
		parts = append(parts, heading+":")
		parts = append(parts, truncateExcerpt(chunk.Text, budget), "")
	}
	return parts
}

func truncateExcerpt(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget])
}

// formatRowsForPrompt serializes rows as pretty-printed JSON with
// scientific-notation-prone numerics normalized to fixed-point, so the model
// reads plain figures instead of exponent forms.
func formatRowsForPrompt(rows []mirror.Row) string {
	formatted := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]any, len(row))
		for col, value := range row {
			out[col] = normalizeNumeric(value)
		}
		formatted = append(formatted, out)
	}

	data, err := json.MarshalIndent(formatted, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func normalizeNumeric(value any) any {
	switch v := value.(type) {
	case float64:
		return math.Round(v*100) / 100
	case float32:
		return math.Round(float64(v)*100) / 100
	case string:
		if scientificNotationRegex.MatchString(v) {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return math.Round(parsed*100) / 100
			}
		}
		return v
	default:
		return value
	}
}

var (
	wrappingQuoteRegex = regexp.MustCompile(`^["']|["']$`)
	noteSectionRegex   = regexp.MustCompile(`(?i)\n\n?Note:`)
	numberedListRegex  = regexp.MustCompile(`(?m)^\d+\.\s+`)
	bulletListRegex    = regexp.MustCompile(`(?m)^[•\-\*]\s+`)
	multiNewlineRegex  = regexp.MustCompile(`\n+`)
)

// CleanNarrative post-processes synthesis output: strips wrapping quotes,
// drops trailing "Note:" sections, and flattens numbered or bulleted lists
// into prose. The model is told not to produce lists but may anyway; this is
// last-resort normalization, not a primary control.
func CleanNarrative(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	cleaned := strings.TrimSpace(wrappingQuoteRegex.ReplaceAllString(strings.TrimSpace(raw), ""))

	if loc := noteSectionRegex.FindStringIndex(cleaned); loc != nil {
		cleaned = strings.TrimSpace(cleaned[:loc[0]])
	}

	if numberedListRegex.MatchString(cleaned) {
		cleaned = numberedListRegex.ReplaceAllString(cleaned, "")
		cleaned = multiNewlineRegex.ReplaceAllString(cleaned, " ")
	}
	if bulletListRegex.MatchString(cleaned) {
		cleaned = bulletListRegex.ReplaceAllString(cleaned, "")
		cleaned = multiNewlineRegex.ReplaceAllString(cleaned, " ")
	}

	return strings.TrimSpace(cleaned)
}
