package tenantcontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyTenantContext = "tenant_context"
	KeyTenantID      = "tenant_id"
)
