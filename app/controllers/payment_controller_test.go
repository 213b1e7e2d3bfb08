package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing/billingtest"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
	"github.com/ManuelReschke/TableFox/internal/pkg/tenantcontext"
)

const (
	testTenantID   = "0b7e4a8c-3f1d-4c2a-9e5b-6d8f7a9c1b2e"
	testAPIKey     = "apk_live"
	checkoutBodyOK = `{"method":"pix","planType":"premium","customerName":"Cantina da Praça","customerEmail":"contato@cantina.com.br","customerDocument":"123.456.789-09","customerPhone":"(21) 99999-0000"}`
)

type recordingArchiver struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingArchiver) Schedule(_ context.Context, provider, eventID string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, provider+"/"+eventID)
	return nil
}

type testApp struct {
	app      *fiber.App
	store    *billingtest.Store
	gateway  *billingtest.Gateway
	archiver *recordingArchiver
}

func newTestApp(t *testing.T, opts ...billing.Option) *testApp {
	t.Helper()
	store := billingtest.NewStore()
	gateway := billingtest.NewGateway()
	svc := billing.NewService(store.Repositories(), gateway, opts...)
	archiver := &recordingArchiver{}

	payments := NewPaymentController(svc, "https://api.tablefox.test/")
	webhooks := NewPagHiperWebhookController(svc, testAPIKey, archiver)

	app := fiber.New()
	asTenant := func(c *fiber.Ctx) error {
		tenantcontext.Set(c, tenantcontext.TenantContext{TenantID: testTenantID, TenantName: "Cantina"})
		return c.Next()
	}
	app.Post("/payment/process", asTenant, payments.HandleCheckout)
	app.Get("/payment/orders", asTenant, payments.HandleListOrders)
	app.Get("/payment/subscription", asTenant, payments.HandleSubscription)
	app.Get("/payment/orders/:id/status", payments.HandleOrderStatus)
	app.Post(billing.WebhookPath, webhooks.HandleWebhook)

	return &testApp{app: app, store: store, gateway: gateway, archiver: archiver}
}

func (ta *testApp) do(t *testing.T, method, path, contentType, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (ta *testApp) checkout(t *testing.T) string {
	t.Helper()
	status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON, checkoutBodyOK)
	require.Equal(t, fiber.StatusCreated, status, body)
	return body["orderId"].(string)
}

func TestHandleCheckout(t *testing.T) {
	ta := newTestApp(t)

	status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON, checkoutBodyOK)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["orderId"])

	instructions, ok := body["paymentInstructions"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pix", instructions["type"])

	require.Len(t, ta.gateway.Charges, 1)
	assert.Equal(t, "https://api.tablefox.test/paghiper/webhook", ta.gateway.Charges[0].NotificationURL)

	order, err := ta.store.Orders.GetByID(body["orderId"].(string))
	require.NoError(t, err)
	assert.Equal(t, testTenantID, order.TenantID)
	assert.Equal(t, models.PlanOrderStatusPending, order.Status)
}

func TestHandleCheckout_Errors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		ta := newTestApp(t)
		status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON, `{"method":"card","planType":"premium"}`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "validation_error", body["error"])
		assert.NotEmpty(t, body["fields"])
		assert.Zero(t, ta.gateway.ChargeCount())
	})

	t.Run("unknown plan", func(t *testing.T) {
		ta := newTestApp(t)
		status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON,
			strings.Replace(checkoutBodyOK, `"premium"`, `"gold"`, 1))
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "unknown_plan", body["error"])
	})

	t.Run("below minimum", func(t *testing.T) {
		catalog := billing.DefaultCatalog()
		premium := catalog["premium"]
		premium.PriceCents = 250
		catalog["premium"] = premium

		ta := newTestApp(t, billing.WithCatalog(catalog))
		status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON, checkoutBodyOK)
		assert.Equal(t, fiber.StatusUnprocessableEntity, status)
		assert.Equal(t, "below_minimum_amount", body["error"])
		assert.Zero(t, ta.gateway.ChargeCount())
	})

	t.Run("charge failure", func(t *testing.T) {
		ta := newTestApp(t)
		ta.gateway.ChargeErr = &paghiper.ChargeCreationError{StatusCode: 200, Message: "payer_email invalido"}
		status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON, checkoutBodyOK)
		assert.Equal(t, fiber.StatusBadGateway, status)
		assert.Equal(t, "charge_creation_failed", body["error"])
		assert.Equal(t, "payer_email invalido", body["message"])
	})

	t.Run("malformed body", func(t *testing.T) {
		ta := newTestApp(t)
		status, body := ta.do(t, fiber.MethodPost, "/payment/process", fiber.MIMEApplicationJSON, `{`)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "invalid_payload", body["error"])
	})
}

func TestHandleOrderStatus(t *testing.T) {
	ta := newTestApp(t)

	status, body := ta.do(t, fiber.MethodGet, "/payment/orders/does-not-exist/status", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "order_not_found", body["error"])

	orderID := ta.checkout(t)
	status, body = ta.do(t, fiber.MethodGet, "/payment/orders/"+orderID+"/status", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, orderID, body["id"])
	assert.Equal(t, "pending", body["status"])
	assert.Nil(t, body["paidAt"])
	assert.Equal(t, 1, ta.gateway.StatusCalls)
}

func TestHandleListOrdersAndSubscription(t *testing.T) {
	ta := newTestApp(t)

	status, body := ta.do(t, fiber.MethodGet, "/payment/subscription", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "subscription_not_found", body["error"])

	orderID := ta.checkout(t)
	ta.checkout(t)

	status, body = ta.do(t, fiber.MethodGet, "/payment/orders?limit=1", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	webhook := `{"transaction_id":"TX-` + orderID + `","order_id":"` + orderID + `","status":"paid","paid_date":"2025-05-01 10:00:00","apiKey":"` + testAPIKey + `"}`
	status, _ = ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, webhook)
	require.Equal(t, fiber.StatusOK, status)

	status, body = ta.do(t, fiber.MethodGet, "/payment/subscription", "", "")
	require.Equal(t, fiber.StatusOK, status)
	sub, ok := body["subscription"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, sub["is_currently_active"])
}

func TestHandleWebhook(t *testing.T) {
	ta := newTestApp(t)
	orderID := ta.checkout(t)
	paid := `{"transaction_id":"TX-` + orderID + `","status":"paid","paid_date":"2025-05-01 10:00:00","apiKey":"` + testAPIKey + `"}`

	status, body := ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, paid)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(billing.OutcomeApplied), body["outcome"])

	order, err := ta.store.Orders.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanOrderStatusPaid, order.Status)
	assert.Equal(t, 1, ta.store.Subscriptions.Count())

	status, body = ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, paid)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])

	assert.Equal(t, 1, ta.store.WebhookEvents.Len())
	assert.Len(t, ta.archiver.events, 1)
	assert.True(t, strings.HasPrefix(ta.archiver.events[0], "paghiper/hash:"))
}

func TestHandleWebhook_Rejections(t *testing.T) {
	ta := newTestApp(t)
	orderID := ta.checkout(t)

	status, body := ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, `{"status":"paid"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_payload", body["error"])
	assert.Zero(t, ta.store.WebhookEvents.Len())

	forged := `{"transaction_id":"TX-` + orderID + `","status":"paid","apiKey":"someone-else"}`
	status, body = ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, forged)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid_api_key", body["error"])

	order, err := ta.store.Orders.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanOrderStatusPending, order.Status)
}

func TestHandleWebhook_KeylessStatusDeliveryIsRejected(t *testing.T) {
	ta := newTestApp(t)
	orderID := ta.checkout(t)

	forged := `{"transaction_id":"TX-` + orderID + `","status":"paid"}`
	status, body := ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, forged)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid_api_key", body["error"])

	order, err := ta.store.Orders.GetByID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanOrderStatusPending, order.Status)
	assert.Zero(t, ta.store.Subscriptions.Count())
}

func TestHandleWebhook_KeylessNotificationOnlyIsResolvedByQuery(t *testing.T) {
	ta := newTestApp(t)
	orderID := ta.checkout(t)

	status, body := ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationForm,
		"notification_id=N2&idTransacao=TX-"+orderID)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.NotEqual(t, "invalid_api_key", body["error"])
	assert.Equal(t, 1, ta.gateway.StatusCalls)
}

func TestHandleWebhook_UnknownOrderIsAcknowledged(t *testing.T) {
	ta := newTestApp(t)

	status, body := ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationForm,
		"notification_id=N1&idTransacao=TX-nowhere&apiKey="+testAPIKey)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(billing.OutcomeOrderNotFound), body["outcome"])
}

func TestHandleWebhook_PersistFailure(t *testing.T) {
	ta := newTestApp(t)
	orderID := ta.checkout(t)
	ta.store.Orders.UpdateErr = errors.New("lock wait timeout")

	paid := `{"transaction_id":"TX-` + orderID + `","status":"paid","apiKey":"` + testAPIKey + `"}`
	status, body := ta.do(t, fiber.MethodPost, billing.WebhookPath, fiber.MIMEApplicationJSON, paid)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "webhook_processing_failed", body["error"])
}
