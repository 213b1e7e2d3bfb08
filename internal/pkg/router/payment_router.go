package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TableFox/app/controllers"
	"github.com/ManuelReschke/TableFox/internal/pkg/constants"
	"github.com/ManuelReschke/TableFox/internal/pkg/middleware"
	"github.com/ManuelReschke/TableFox/internal/pkg/ratelimit"
)

type PaymentRouter struct {
	deps Dependencies
}

func NewPaymentRouter(deps Dependencies) *PaymentRouter {
	return &PaymentRouter{deps: deps}
}

func (r PaymentRouter) InstallRouter(app *fiber.App) {
	payments := controllers.NewPaymentController(r.deps.Billing, r.deps.PublicBaseURL)

	payment := app.Group(constants.PaymentGroup)

	// The status poll is public; the order id is the capability.
	payment.Get("/orders/:id/status", ratelimit.StatusPoll(r.deps.PollStorage), payments.HandleOrderStatus)

	tenantAuth := middleware.TenantAPIKeyAuth(r.deps.Tenants)
	payment.Post("/process", tenantAuth, middleware.RequireTenant, payments.HandleCheckout)
	payment.Get("/orders", tenantAuth, middleware.RequireTenant, payments.HandleListOrders)
	payment.Get("/subscription", tenantAuth, middleware.RequireTenant, payments.HandleSubscription)
}
