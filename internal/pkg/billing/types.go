package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

// WebhookPath is appended to the public base URL to build the processor
// notification URL.
const WebhookPath = "/paghiper/webhook"

// CheckoutPayload is the body of a plan checkout request.
type CheckoutPayload struct {
	Method           string `json:"method" validate:"required,oneof=pix boleto"`
	PlanType         string `json:"planType" validate:"required"`
	CustomerName     string `json:"customerName" validate:"required,min=3,max=150"`
	CustomerEmail    string `json:"customerEmail" validate:"required,email,max=200"`
	CustomerDocument string `json:"customerDocument" validate:"required,min=11,max=20"`
	CustomerPhone    string `json:"customerPhone" validate:"required,min=10,max=20"`
}

var payloadValidator = validator.New()

// Validate trims the payload and checks it against its struct tags.
func (p *CheckoutPayload) Validate() error {
	p.Method = strings.ToLower(strings.TrimSpace(p.Method))
	p.PlanType = strings.ToLower(strings.TrimSpace(p.PlanType))
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.CustomerEmail = strings.TrimSpace(p.CustomerEmail)
	p.CustomerDocument = strings.TrimSpace(p.CustomerDocument)
	p.CustomerPhone = strings.TrimSpace(p.CustomerPhone)

	err := payloadValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: jsonFieldName(fe.Field()), Rule: fe.Tag()})
	}
	return out
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// CheckoutResult is handed back to the buyer after a successful checkout.
type CheckoutResult struct {
	Order        *models.PlanOrder
	Instructions paghiper.PaymentInstructions
}

// StatusUpdates carries the optional data accompanying a status change.
type StatusUpdates struct {
	PaidAt            *time.Time
	CancelledAt       *time.Time
	ProcessorResponse models.ProcessorMetadata
	// Source is recorded in the status history; defaults to webhook.
	Source string
}

// OrderStatusView is the public projection returned by the status poll.
type OrderStatusView struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paidAt"`
	CancelledAt *time.Time `json:"cancelledAt"`
}

// SubscriptionView is a tenant subscription plus its derived state.
type SubscriptionView struct {
	*models.TenantSubscription
	IsCurrentlyActive bool `json:"is_currently_active"`
}

// PaymentConfirmation is handed to the Notifier after an order is paid.
type PaymentConfirmation struct {
	OrderID         string
	TenantID        string
	PlanType        string
	PlanName        string
	CustomerName    string
	CustomerEmail   string
	AmountCents     int64
	PaidAt          time.Time
	SubscriptionEnd time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	TransactionID   string
	PayloadJSON     string
	APIKeyValid     bool
}
