package constants

// Static route constants
const (
	PaymentGroup = "/payment"
	HealthRoute  = "/healthz"
	MetricsRoute = "/metrics"
	MonitorRoute = "/monitor"
	// Swagger UI base, the document is served below it as v1
	DocsBasePath = "/docs/api/"
)
