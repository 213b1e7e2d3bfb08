package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

var (
	ErrUnknownPlan                  = errors.New("unknown plan")
	ErrBelowMinimumAmount           = paghiper.ErrBelowMinimumAmount
	ErrOrderNotFound                = errors.New("plan order not found")
	ErrSubscriptionNotFound         = errors.New("tenant subscription not found")
	ErrSubscriptionActivationFailed = errors.New("subscription activation failed")
	ErrInvalidTransition            = errors.New("invalid plan order status transition")
	ErrInvalidStatus                = errors.New("invalid plan order status")
)

// ChargeCreationError is returned when the processor refuses a charge.
type ChargeCreationError = paghiper.ChargeCreationError

// FieldError describes one rejected checkout field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned for a malformed checkout payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}
	return "invalid checkout payload: " + strings.Join(parts, ", ")
}
