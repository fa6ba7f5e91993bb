// Package schema describes the mirrored Salesforce tables that the query
// pipeline is allowed to touch, scoped by partition.
package schema

import "strings"

// Partition discriminates the two logical datasets sharing one physical schema.
type Partition string

const (
	PartitionLegacy  Partition = "legacy"
	PartitionPioneer Partition = "pioneer"
)

// NormalizePartition maps free-form input onto a known partition,
// defaulting to legacy.
func NormalizePartition(raw string) Partition {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PartitionPioneer):
		return PartitionPioneer
	default:
		return PartitionLegacy
	}
}

// DisplayName returns the partition label used in prompts.
func (p Partition) DisplayName() string {
	if p == PartitionPioneer {
		return "Pioneer"
	}
	return "Legacy"
}

// Describe returns the schema context block for SQL generation prompts.
// Pure function of the partition; always non-empty.
func Describe(partition Partition) string {
	var b strings.Builder
	b.WriteString(`=== SALESFORCE DATABASE SCHEMA DETAILS ===

users:
  - id (primary key)
  - salesforce_id (Salesforce User ID)
  - name (sales rep display name)
  - email, role, is_active
  - manager_salesforce_id, app_type

accounts:
  - id, salesforce_id, name
  - owner_salesforce_id (foreign key to users.salesforce_id)
  - salesforce_created_date (timestamp)
  - arr, annual_revenue, mrr, amount_paid (revenue fields)
  - status, industry, segment, employee_count
  - app_type

opportunities:
  - id, salesforce_id, name, stage_name
  - account_salesforce_id (foreign key to accounts.salesforce_id)
  - owner_salesforce_id (foreign key to users.salesforce_id)
  - amount, close_date, salesforce_created_date
  - is_closed, is_won (boolean flags)
  - opportunity_type, lead_source, probability, expected_revenue, forecast_category
  - renewal_date (date when renewal is due)
  - is_test_opportunity (boolean - exclude test data)
  - record_type_name (type: New Business, Renewal, Upgrade, etc.)
  - app_type

leads:
  - id, salesforce_id, name, company, email, status
  - lead_source, owner_salesforce_id
  - salesforce_created_date, is_converted, conversion_date
  - industry, app_type

cases:
  - id, salesforce_id
  - account_salesforce_id (foreign key to accounts.salesforce_id)
  - owner_salesforce_id (foreign key to users.salesforce_id)
  - status, priority, case_type
  - salesforce_created_date, closed_date
  - app_type

=== RELATIONSHIPS ===
- All tables have app_type column for filtering
- users.salesforce_id connects to opportunities, accounts, leads, cases via owner_salesforce_id
- accounts.salesforce_id connects to opportunities via account_salesforce_id
- Use JOINs to get user names instead of IDs

Current app_type: `)
	b.WriteString(string(partition))
	return b.String()
}
