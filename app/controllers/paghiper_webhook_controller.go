package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
	"github.com/ManuelReschke/TableFox/internal/pkg/metrics"
)

// WebhookArchiver queues a raw delivery for long-term storage.
type WebhookArchiver interface {
	Schedule(ctx context.Context, provider, eventID string, body []byte) error
}

type PagHiperWebhookController struct {
	billing *billing.Service
	apiKey  string
	archive WebhookArchiver
}

// NewPagHiperWebhookController wires the webhook endpoint. archive may be nil.
func NewPagHiperWebhookController(svc *billing.Service, apiKey string, archive WebhookArchiver) *PagHiperWebhookController {
	return &PagHiperWebhookController{billing: svc, apiKey: apiKey, archive: archive}
}

// HandleWebhook handles POST /paghiper/webhook. Every structurally valid
// delivery is acknowledged unless the status change could not be persisted.
func (wc *PagHiperWebhookController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	notification, err := billing.ParseNotification(c.Get(fiber.HeaderContentType), rawBody)
	if err != nil {
		log.Warnf("[Webhook] Rejecting PagHiper delivery: %v", err)
		metrics.ObserveWebhook(string(billing.OutcomeInvalidPayload))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	apiKeyValid := billing.VerifyNotificationAPIKey(notification, wc.apiKey)
	created, stored, err := wc.billing.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		ProviderEventID: notification.EventID,
		TransactionID:   notification.TransactionID,
		PayloadJSON:     string(rawBody),
		APIKeyValid:     apiKeyValid,
	})
	if err != nil {
		log.Errorf("[Webhook] Failed to persist PagHiper delivery: %v", err)
		metrics.ObserveWebhook(string(billing.OutcomeProcessingError))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if created {
		wc.archiveDelivery(ctx, stored.ProviderEventID, rawBody)
	}
	if !created && stored.ProcessedSuccessfully() {
		metrics.ObserveWebhook(string(billing.OutcomeDuplicate))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !apiKeyValid {
		_ = wc.billing.MarkWebhookProcessed(ctx, stored.ID, errors.New("apiKey mismatch"))
		metrics.ObserveWebhook(string(billing.OutcomeRejected))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_api_key"})
	}

	outcome, err := wc.billing.HandleNotification(ctx, notification)
	processingErr := err
	if processingErr == nil && (outcome == billing.OutcomeOrderNotFound || outcome == billing.OutcomeStatusUnknown) {
		// Leave the event open so a redelivery is applied again.
		processingErr = errors.New(string(outcome))
	}
	if markErr := wc.billing.MarkWebhookProcessed(ctx, stored.ID, processingErr); markErr != nil {
		log.Warnf("[Webhook] Failed to mark event %d processed: %v", stored.ID, markErr)
	}
	metrics.ObserveWebhook(string(outcome))

	if err != nil {
		log.Errorf("[Webhook] Failed to apply PagHiper delivery %s: %v", stored.ProviderEventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": outcome})
}

func (wc *PagHiperWebhookController) archiveDelivery(ctx context.Context, eventID string, body []byte) {
	if wc.archive == nil {
		return
	}
	if err := wc.archive.Schedule(ctx, models.BillingProviderPagHiper, eventID, body); err != nil {
		log.Warnf("[Webhook] Failed to schedule archive of %s: %v", eventID, err)
	}
}
