package billing

import (
	"context"

	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

// ChargeGateway creates charges with the payment processor and queries
// their status. *paghiper.Client satisfies it.
type ChargeGateway interface {
	CreateCharge(ctx context.Context, req paghiper.ChargeRequest) (*paghiper.ChargeResult, error)
	// QueryStatus returns nil, nil when the status is unknown.
	QueryStatus(ctx context.Context, transactionID string, method paghiper.Method) (*paghiper.StatusResult, error)
}

// Notifier delivers payment confirmations to the buyer. Failures are logged
// by the caller and never affect the payment flow.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, confirmation PaymentConfirmation) error
}

type noopNotifier struct{}

func (noopNotifier) PaymentConfirmed(context.Context, PaymentConfirmation) error { return nil }

var _ ChargeGateway = (*paghiper.Client)(nil)
