package assist

import (
	"fmt"
	"strings"
	"time"

	"github.com/saleslens/sales_insights/internal/mirror"
	"github.com/saleslens/sales_insights/internal/schema"
)

const (
	defaultMaxExchanges   = 5
	maxMentionsPerEntity  = 5
	recapExchanges        = 3
	recapReplyTruncateLen = 150
)

const (
	entitySalesReps     = "sales_reps"
	entityAccounts      = "accounts"
	entityOpportunities = "opportunities"
	entityLeads         = "leads"
	entityCases         = "cases"
)

// entityColumnPriority maps each entity category to the result-set column
// names that can seed it, evaluated in order. First matching column wins for
// a category; the duck-typed probing of arbitrary keys is deliberately not
// reproduced here.
var entityColumnPriority = []struct {
	category string
	columns  []string
}{
	{entitySalesReps, []string{"name", "sales_rep", "sales_rep_name"}},
	{entityAccounts, []string{"account_name", "account"}},
	{entityOpportunities, []string{"opportunity_name", "opportunity"}},
	{entityLeads, []string{"lead_name", "company"}},
	{entityCases, []string{"case_id", "case_number"}},
}

var mentionLabels = []struct {
	category string
	label    string
}{
	{entitySalesReps, "Sales reps in focus"},
	{entityAccounts, "Accounts in focus"},
	{entityOpportunities, "Opportunities in focus"},
	{entityLeads, "Recent leads"},
	{entityCases, "Recent cases"},
}

// Conversation holds the short-term context of one chat session: a bounded
// ring of recent exchanges plus entity mentions harvested from result sets.
// It is ephemeral and best-effort; the owning session layer controls its
// lifecycle and serializes concurrent turns.
type Conversation struct {
	maxExchanges int
	exchanges    []Exchange
	mentions     map[string][]string
}

// NewConversation creates an empty context. A non-positive cap uses the
// default of 5 retained exchanges.
func NewConversation(maxExchanges int) *Conversation {
	if maxExchanges <= 0 {
		maxExchanges = defaultMaxExchanges
	}
	return &Conversation{
		maxExchanges: maxExchanges,
		mentions:     make(map[string][]string),
	}
}

// HasContext reports whether any exchange or entity mention is retained.
func (c *Conversation) HasContext() bool {
	return len(c.exchanges) > 0 || len(c.mentions) > 0
}

// Exchanges returns a copy of the retained exchanges, oldest first.
func (c *Conversation) Exchanges() []Exchange {
	return append([]Exchange(nil), c.exchanges...)
}

// Mentions returns the retained values for one entity category.
func (c *Conversation) Mentions(category string) []string {
	return append([]string(nil), c.mentions[category]...)
}

// Reset clears exchanges and entity mentions, used on a "new topic" action.
func (c *Conversation) Reset() {
	c.exchanges = nil
	c.mentions = make(map[string][]string)
}

// RecordDataExchange appends a completed data-query turn and re-derives
// entity mentions from the result set column names.
func (c *Conversation) RecordDataExchange(userQuery string, spec QuerySpec, rows []mirror.Row, reply string) {
	c.appendExchange(Exchange{
		UserQuery: userQuery,
		Reply:     reply,
		SQL:       spec.SQL,
		Kind:      exchangeKindData,
		Timestamp: time.Now().UTC(),
	})
	c.updateMentions(rows)
}

// RecordConversationalExchange appends a turn that produced no SQL.
// Entity mentions are left untouched.
func (c *Conversation) RecordConversationalExchange(userQuery, reply string) {
	c.appendExchange(Exchange{
		UserQuery: userQuery,
		Reply:     reply,
		Kind:      exchangeKindConversational,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Conversation) appendExchange(exchange Exchange) {
	c.exchanges = append(c.exchanges, exchange)
	if len(c.exchanges) > c.maxExchanges {
		c.exchanges = c.exchanges[len(c.exchanges)-c.maxExchanges:]
	}
}

func (c *Conversation) updateMentions(rows []mirror.Row) {
	if len(rows) == 0 {
		return
	}
	first := rows[0]

	for _, entry := range entityColumnPriority {
		column := ""
		for _, candidate := range entry.columns {
			if _, ok := first[candidate]; ok {
				column = candidate
				break
			}
		}
		if column == "" {
			continue
		}

		seen := make(map[string]struct{})
		var values []string
		for _, row := range rows {
			value := mentionValue(entry.category, column, row[column])
			if value == "" {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			values = append(values, value)
			if len(values) == maxMentionsPerEntity {
				break
			}
		}
		if len(values) > 0 {
			// Most recent query wins wholesale; oldest mentions drop.
			c.mentions[entry.category] = values
		}
	}
}

func mentionValue(category, column string, raw any) string {
	if raw == nil {
		return ""
	}
	value := strings.TrimSpace(fmt.Sprintf("%v", raw))
	if value == "" {
		return ""
	}
	if category == entityCases && column == "case_id" {
		return "Case " + value
	}
	return value
}

// BuildPromptFragment renders the context as a delimited text block for the
// next prompt, or the empty string when there is nothing to render. Callers
// omit the section entirely on empty output.
func (c *Conversation) BuildPromptFragment(partition schema.Partition) string {
	if !c.HasContext() {
		return ""
	}

	parts := []string{"=== CONVERSATION CONTEXT ==="}
	parts = append(parts, "App Type: "+string(partition), "")

	if len(c.exchanges) > 0 {
		parts = append(parts, "Recent conversation:")
		start := len(c.exchanges) - recapExchanges
		if start < 0 {
			start = 0
		}
		for _, exchange := range c.exchanges[start:] {
			parts = append(parts, "User: "+exchange.UserQuery)
			parts = append(parts, "Assistant: "+truncateReply(exchange.Reply))
			parts = append(parts, "")
		}
	}

	for _, entry := range mentionLabels {
		if values := c.mentions[entry.category]; len(values) > 0 {
			parts = append(parts, entry.label+": "+strings.Join(values, ", "))
		}
	}

	parts = append(parts, "")
	parts = append(parts, "When the user uses pronouns (he/she/they/their), they likely refer to the entities above.")
	parts = append(parts, "=== END CONTEXT ===")

	return strings.Join(parts, "\n")
}

func truncateReply(reply string) string {
	runes := []rune(reply)
	if len(runes) <= recapReplyTruncateLen {
		return reply
	}
	return string(runes[:recapReplyTruncateLen]) + "..."
}
