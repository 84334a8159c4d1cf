package constants

// Static route constants
const (
	APIV1Prefix = "/api/v1"

	RegisterRoute    = "/register"
	AnalyzeRoute     = "/analyze"
	UsageRoute       = "/usage"
	UsageEventsRoute = "/usage/events"
	ICPConfigRoute   = "/icp-config"
	APIKeyRotate     = "/api-key/rotate"
	HealthzRoute     = "/healthz"

	StripeWebhookRoute = "/webhook/stripe"
	AdminBudgetRoute   = "/admin/budget"
	AdminStatsRoute    = "/admin/stats"
	AdminUsersRoute    = "/admin/users"
	MetricsRoute       = "/metrics"
)
