package tenantcontext

import "github.com/gofiber/fiber/v2"

// TenantContext is the authenticated principal of a request.
type TenantContext struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
}

// IsAuthenticated reports whether a tenant was resolved for the request.
func (t TenantContext) IsAuthenticated() bool {
	return t.TenantID != ""
}

// Set stores the tenant context on the request.
func Set(c *fiber.Ctx, t TenantContext) {
	c.Locals(KeyTenantContext, t)
	c.Locals(KeyTenantID, t.TenantID)
}

// Get retrieves the tenant context from fiber context.
// Returns an empty context if none is set.
func Get(c *fiber.Ctx) TenantContext {
	if t, ok := c.Locals(KeyTenantContext).(TenantContext); ok {
		return t
	}
	return TenantContext{}
}

// GetTenantID returns the current tenant's ID, or "" if unauthenticated
func GetTenantID(c *fiber.Ctx) string {
	return Get(c).TenantID
}
