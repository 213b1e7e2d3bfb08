package paghiper

import (
	"errors"
	"fmt"
)

// ErrBelowMinimumAmount is returned before any network call when a PIX
// charge is smaller than MinimumPixAmountCents.
var ErrBelowMinimumAmount = errors.New("paghiper: amount below pix minimum")

// ChargeCreationError reports a charge PagHiper refused or could not create.
type ChargeCreationError struct {
	StatusCode int
	Message    string
}

func (e *ChargeCreationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("paghiper: charge creation failed (status=%d): %s", e.StatusCode, e.Message)
	}
	return "paghiper: charge creation failed: " + e.Message
}
