package retention

import "time"

// Category names a class of retained data with its own legal window.
type Category string

const (
	CategoryAuditLogs       Category = "audit_logs"
	CategoryHealthMetrics   Category = "health_metrics"
	CategorySessionRecords  Category = "session_records"
	CategoryAnalyticsEvents Category = "analytics_events"
)

// Policy maps a data category to its maximum retention in days.
type Policy struct {
	Category      Category
	RetentionDays int
}

// Window is the policy's retention span as a duration.
func (p Policy) Window() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

// DefaultPolicies is the fixed retention table. Audit logs and health
// metrics are kept seven years, sessions 90 days, analytics three years.
var DefaultPolicies = []Policy{
	{Category: CategoryAuditLogs, RetentionDays: 2555},
	{Category: CategoryHealthMetrics, RetentionDays: 2555},
	{Category: CategorySessionRecords, RetentionDays: 90},
	{Category: CategoryAnalyticsEvents, RetentionDays: 1095},
}
