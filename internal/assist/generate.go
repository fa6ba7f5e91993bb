package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/saleslens/sales_insights/internal/llm"
	"github.com/saleslens/sales_insights/internal/schema"
)

// TimeWindowRule is one entry of the default-time-frame policy injected into
// the generation prompt. The policy is a heuristic, not a guarantee:
// borderline phrasings like "best reps this quarter" mix both signals, so
// deployments can swap the rule list rather than rely on one fixed reading.
type TimeWindowRule struct {
	Trigger  string
	Guidance string
}

// DefaultTimeWindowRules returns the stock recent-vs-all-time policy.
func DefaultTimeWindowRules() []TimeWindowRule {
	return []TimeWindowRule{
		{
			Trigger:  `NO TIME FILTER if query says: "top", "best", "most", "highest", "lowest" WITHOUT time words`,
			Guidance: `all-time rankings and distributions analyze all existing data`,
		},
		{
			Trigger:  `ADD TIME FILTER (1 month default) if query mentions: "this month", "last month", "recent", "lately", "new", "in last X"`,
			Guidance: `recent-activity and creation queries get a 1-month floor on the creation timestamp`,
		},
		{
			Trigger:  `performance queries with an explicit time mention filter by close_date, never salesforce_created_date`,
			Guidance: `won-deal revenue belongs to the period it closed in`,
		},
	}
}

// Generator builds the SQL-generation prompt and performs the first of the
// two model calls of a data-query turn.
type Generator struct {
	model     llm.ChatModel
	opts      llm.GenerationOptions
	timeRules []TimeWindowRule
}

// NewGenerator creates a generation stage with fixed model presets.
// Generation favors determinism: callers should pass temperature 0 and a
// small token budget.
func NewGenerator(model llm.ChatModel, opts llm.GenerationOptions) *Generator {
	return &Generator{model: model, opts: opts, timeRules: DefaultTimeWindowRules()}
}

// WithTimeWindowRules overrides the default-time-frame policy.
func (g *Generator) WithTimeWindowRules(rules []TimeWindowRule) *Generator {
	if len(rules) > 0 {
		g.timeRules = rules
	}
	return g
}

// GenerateSQL asks the model for one restricted SQL statement plus metadata.
// The raw text is returned for the parser; transport failures propagate as
// hard failures for the turn, with no retry at this layer.
func (g *Generator) GenerateSQL(ctx context.Context, userQuery string, partition schema.Partition, conversation *Conversation) (string, error) {
	conversationContext := ""
	if conversation != nil {
		conversationContext = conversation.BuildPromptFragment(partition)
	}
	systemPrompt := g.buildSQLGenerationPrompt(partition, conversationContext)

	raw, err := g.model.Complete(ctx, systemPrompt, userQuery, g.opts)
	if err != nil {
		return "", fmt.Errorf("sql generation call: %w", err)
	}
	return raw, nil
}

func (g *Generator) buildSQLGenerationPrompt(partition schema.Partition, conversationContext string) string {
	var parts []string
	if strings.TrimSpace(conversationContext) != "" {
		parts = append(parts, conversationContext, "")
	}

	app := string(partition)
	var rules strings.Builder
	fmt.Fprintf(&rules, `You are a SQL query generator for a %s Salesforce sales analytics database.

DATABASE SCHEMA:
%s

CRITICAL RULES:
1. Response MUST be valid JSON on a SINGLE LINE: {"sql":"SELECT...","description":"Brief description","chart_type":"bar","transcript_query":"search terms for meeting transcripts"}
2. FORBIDDEN: WITH clauses, CTEs, nested subqueries, window functions (LAG, LEAD, OVER)
3. ONLY use: SELECT, FROM, LEFT JOIN, WHERE, GROUP BY, ORDER BY, LIMIT, HAVING
4. ALWAYS filter: app_type = '%s' on ALL tables
5. ALWAYS exclude test data: is_test_opportunity = false when querying opportunities
6. For won/closed revenue: ALWAYS use "o.is_closed = true AND o.is_won = true"
7. Use single quotes for string values, simple unquoted column aliases only
8. For ORDER BY: use positional column numbers (ORDER BY 2 DESC), NEVER aliases
9. Use ILIKE for case-insensitive name matching
10. For money calculations, cast to avoid scientific notation: SUM(o.amount)::numeric
11. UNION is permitted ONLY to combine two period-comparison aggregates with identical column shape
12. Replace all newlines in SQL with spaces to keep the JSON valid

CRITICAL DATE FIELD RULES:
- For "performance", "revenue", "closed deals", "won deals" queries: use close_date
- For "created", "new", "generated opportunities" queries: use salesforce_created_date
- For "pipeline", "open opportunities": no date filter (use is_closed = false)

TIME FILTER RULES:
`, partition.DisplayName(), schema.Describe(partition), app)

	for _, rule := range g.timeRules {
		fmt.Fprintf(&rules, "- %s (%s)\n", rule.Trigger, rule.Guidance)
	}

	fmt.Fprintf(&rules, `
Examples:
- "top 5 reps by revenue" = NO time filter (all-time)
- "top 5 reps this month" = close_date >= NOW() - INTERVAL '1 month'
- "new opportunities this month" = salesforce_created_date >= NOW() - INTERVAL '1 month'

TRANSCRIPT SEARCH:
- Include a "transcript_query" field with ONLY the person's first name for person-specific queries
- For general queries: use 1-2 topic keywords (e.g., "pipeline", "deals")

CHART TYPE SELECTION RULES:
- "bar" for rankings, top lists, comparisons between categories
- "pie" for distributions, percentages, parts of a whole
- "line" for trends over time, monthly/quarterly analysis
- "table" for detailed lists, multiple columns of data
Any query with "trend", "over time", "monthly", "quarterly" MUST use chart_type "line"

EXAMPLE RESPONSES:

Top sales reps by revenue (ALL-TIME - no date filter):
{"sql": "SELECT u.name as sales_rep, COUNT(o.id) as won_deals, SUM(o.amount)::numeric as total_revenue FROM users u LEFT JOIN opportunities o ON u.salesforce_id = o.owner_salesforce_id AND o.app_type = '%[1]s' AND o.is_closed = true AND o.is_won = true AND o.is_test_opportunity = false WHERE u.app_type = '%[1]s' GROUP BY u.name HAVING SUM(o.amount) > 0 ORDER BY 3 DESC LIMIT 5", "description": "Top 5 sales reps by total revenue (all-time)", "chart_type": "bar", "transcript_query": "sales revenue"}

Rep performance with time filter (last month - use close_date):
{"sql": "SELECT u.name as sales_rep, COUNT(DISTINCT o.id) as total_opportunities, SUM(o.amount)::numeric as won_revenue FROM users u LEFT JOIN opportunities o ON u.salesforce_id = o.owner_salesforce_id AND o.app_type = '%[1]s' AND o.is_test_opportunity = false AND o.is_closed = true AND o.is_won = true AND o.close_date >= NOW() - INTERVAL '1 month' WHERE u.app_type = '%[1]s' AND u.name ILIKE '%%Brent%%' GROUP BY u.name", "description": "Brent's performance for last month", "chart_type": "table", "transcript_query": "brent"}

Period comparison using UNION (two aggregate rows, identical shape):
{"sql": "SELECT 'Current Quarter' as period, SUM(o.amount)::numeric as revenue FROM opportunities o WHERE o.app_type = '%[1]s' AND o.is_closed = true AND o.is_won = true AND o.is_test_opportunity = false AND o.close_date >= DATE_TRUNC('quarter', CURRENT_DATE) UNION SELECT 'Previous Quarter' as period, SUM(o.amount)::numeric as revenue FROM opportunities o WHERE o.app_type = '%[1]s' AND o.is_closed = true AND o.is_won = true AND o.is_test_opportunity = false AND o.close_date >= DATE_TRUNC('quarter', CURRENT_DATE) - INTERVAL '3 months' AND o.close_date < DATE_TRUNC('quarter', CURRENT_DATE)", "description": "Won revenue this quarter vs last quarter", "chart_type": "bar", "transcript_query": "quarterly revenue"}

Monthly trend (line chart):
{"sql": "SELECT TO_CHAR(o.close_date, 'YYYY-MM') as month, SUM(o.amount)::numeric as revenue FROM opportunities o WHERE o.app_type = '%[1]s' AND o.is_closed = true AND o.is_won = true AND o.is_test_opportunity = false AND o.close_date >= NOW() - INTERVAL '6 months' GROUP BY TO_CHAR(o.close_date, 'YYYY-MM') ORDER BY 1", "description": "Monthly revenue trend", "chart_type": "line", "transcript_query": "revenue"}

If the question cannot be answered from the schema, return {"sql": "", "description": "explanation", "chart_type": "text"}.
Respond with ONLY the JSON object. Nothing before {, nothing after }.`, app)

	parts = append(parts, rules.String())
	return strings.Join(parts, "\n")
}
