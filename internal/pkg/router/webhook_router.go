package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TableFox/app/controllers"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
)

type WebhookArchiver = controllers.WebhookArchiver

type WebhookRouter struct {
	deps Dependencies
}

func NewWebhookRouter(deps Dependencies) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}

func (r WebhookRouter) InstallRouter(app *fiber.App) {
	webhooks := controllers.NewPagHiperWebhookController(r.deps.Billing, r.deps.PagHiperAPIKey, r.deps.Archive)
	app.Post(billing.WebhookPath, webhooks.HandleWebhook)
}
