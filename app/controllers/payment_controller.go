package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
	"github.com/ManuelReschke/TableFox/internal/pkg/tenantcontext"
)

// PaymentController serves checkout, the status poll and the tenant-scoped
// billing reads.
type PaymentController struct {
	billing *billing.Service
	// publicBaseURL is where the processor reaches the webhook. Empty means
	// the base URL of the checkout request.
	publicBaseURL string
}

func NewPaymentController(svc *billing.Service, publicBaseURL string) *PaymentController {
	return &PaymentController{
		billing:       svc,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

type checkoutResponse struct {
	Success             bool                         `json:"success"`
	OrderID             string                       `json:"orderId"`
	PaymentInstructions paghiper.PaymentInstructions `json:"paymentInstructions"`
	Message             string                       `json:"message"`
}

// HandleCheckout handles POST /payment/process.
func (pc *PaymentController) HandleCheckout(c *fiber.Ctx) error {
	tenantID := tenantcontext.GetTenantID(c)

	var payload billing.CheckoutPayload
	if err := c.BodyParser(&payload); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Request body could not be parsed")
	}

	callbackBase := pc.publicBaseURL
	if callbackBase == "" {
		callbackBase = c.BaseURL()
	}

	result, err := pc.billing.Checkout(c.UserContext(), tenantID, payload, callbackBase)
	if err != nil {
		return checkoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(checkoutResponse{
		Success:             true,
		OrderID:             result.Order.ID,
		PaymentInstructions: result.Instructions,
		Message:             "Charge created, awaiting payment",
	})
}

func checkoutError(c *fiber.Ctx, err error) error {
	var validationErr *billing.ValidationError
	var chargeErr *billing.ChargeCreationError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "validation_error",
			"message": "Invalid checkout payload",
			"fields":  validationErr.Fields,
		})
	case errors.Is(err, billing.ErrUnknownPlan):
		return jsonError(c, fiber.StatusBadRequest, "unknown_plan", "Unknown plan type")
	case errors.Is(err, billing.ErrBelowMinimumAmount):
		return jsonError(c, fiber.StatusUnprocessableEntity, "below_minimum_amount", "Amount is below the minimum for PIX payments")
	case errors.As(err, &chargeErr):
		return jsonError(c, fiber.StatusBadGateway, "charge_creation_failed", chargeErr.Message)
	default:
		log.Errorf("[Payment] Checkout failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Checkout failed")
	}
}

// HandleOrderStatus handles GET /payment/orders/:id/status.
func (pc *PaymentController) HandleOrderStatus(c *fiber.Ctx) error {
	view, err := pc.billing.GetOrderStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, billing.ErrOrderNotFound) {
			return jsonError(c, fiber.StatusNotFound, "order_not_found", "Order not found")
		}
		log.Errorf("[Payment] Status lookup for order %s failed: %v", c.Params("id"), err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Status lookup failed")
	}
	return c.JSON(view)
}

// HandleListOrders handles GET /payment/orders.
func (pc *PaymentController) HandleListOrders(c *fiber.Ctx) error {
	tenantID := tenantcontext.GetTenantID(c)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 0)

	orders, err := pc.billing.ListOrders(c.UserContext(), tenantID, offset, limit)
	if err != nil {
		log.Errorf("[Payment] Listing orders for tenant %s failed: %v", tenantID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Orders could not be loaded")
	}
	if orders == nil {
		orders = []models.PlanOrder{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
		"offset":  offset,
		"count":   len(orders),
	})
}

// HandleSubscription handles GET /payment/subscription.
func (pc *PaymentController) HandleSubscription(c *fiber.Ctx) error {
	tenantID := tenantcontext.GetTenantID(c)
	sub, err := pc.billing.GetSubscription(c.UserContext(), tenantID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return jsonError(c, fiber.StatusNotFound, "subscription_not_found", "No subscription for this tenant")
		}
		log.Errorf("[Payment] Subscription lookup for tenant %s failed: %v", tenantID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "Subscription could not be loaded")
	}
	return c.JSON(fiber.Map{"success": true, "subscription": sub})
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}
