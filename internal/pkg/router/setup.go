package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TableFox/app/repository"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are constructed once in main and shared by all routers.
type Dependencies struct {
	Billing *billing.Service
	Tenants repository.TenantRepository

	// PublicBaseURL is the externally reachable base for the webhook callback.
	PublicBaseURL  string
	PagHiperAPIKey string
	// Archive may be nil when the webhook archive is disabled.
	Archive WebhookArchiver
	// PollStorage backs the status poll limiter; nil keeps counters in memory.
	PollStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewPaymentRouter(deps), NewWebhookRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
