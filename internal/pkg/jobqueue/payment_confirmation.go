package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
	"github.com/ManuelReschke/TableFox/internal/pkg/mail"
)

// PaymentNotifier hands payment confirmations to the queue so the webhook
// response never waits on SMTP.
type PaymentNotifier struct {
	queue *Queue
}

var _ billing.Notifier = (*PaymentNotifier)(nil)

func NewPaymentNotifier(queue *Queue) *PaymentNotifier {
	return &PaymentNotifier{queue: queue}
}

func (n *PaymentNotifier) PaymentConfirmed(ctx context.Context, c billing.PaymentConfirmation) error {
	payload := PaymentConfirmationJobPayload{
		OrderID:         c.OrderID,
		TenantID:        c.TenantID,
		PlanType:        c.PlanType,
		PlanName:        c.PlanName,
		CustomerName:    c.CustomerName,
		CustomerEmail:   c.CustomerEmail,
		AmountCents:     c.AmountCents,
		PaidAt:          c.PaidAt,
		SubscriptionEnd: c.SubscriptionEnd,
	}
	_, err := n.queue.EnqueueJob(ctx, JobTypePaymentConfirmation, payload.ToMap())
	return err
}

// PaymentConfirmationHandler renders and sends the confirmation e-mail.
func PaymentConfirmationHandler(mailer mail.Mailer) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := PaymentConfirmationJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid payment confirmation payload: %w", err)
		}
		if strings.TrimSpace(payload.CustomerEmail) == "" {
			log.Warnf("[JobQueue] Order %s has no customer email, skipping confirmation", payload.OrderID)
			return nil
		}

		subject, body, err := mail.RenderPaymentConfirmation(mail.PaymentConfirmationData{
			CustomerName:    payload.CustomerName,
			PlanName:        payload.PlanName,
			OrderID:         payload.OrderID,
			AmountCents:     payload.AmountCents,
			PaidAt:          payload.PaidAt,
			SubscriptionEnd: payload.SubscriptionEnd,
		})
		if err != nil {
			return err
		}
		return mailer.Send(payload.CustomerEmail, subject, body)
	}
}
