package paghiper

import (
	"encoding/json"
	"time"
)

// Method is a PagHiper payment instrument.
type Method string

const (
	MethodPix    Method = "pix"
	MethodBoleto Method = "boleto"
)

// MinimumPixAmountCents is the smallest amount PagHiper accepts for a PIX charge.
const MinimumPixAmountCents int64 = 300

// ChargeRequest is the provider-neutral input for creating a charge.
type ChargeRequest struct {
	// OrderID is our order id; PagHiper uses it as order key and echoes it back.
	OrderID         string
	Description     string
	AmountCents     int64
	Method          Method
	PayerName       string
	PayerEmail      string
	PayerDocument   string
	PayerPhone      string
	NotificationURL string
	DaysDueDate     int
}

// ChargeResult is returned for a charge PagHiper accepted.
type ChargeResult struct {
	TransactionID string
	OrderID       string
	DueDate       time.Time
	Instructions  PaymentInstructions
	// Raw is the decoded processor response, kept for auditing.
	Raw map[string]interface{}
}

// PaymentInstructions is either *PixInstructions or *BoletoInstructions.
type PaymentInstructions interface {
	Method() Method
	isPaymentInstructions()
}

// PixInstructions carries what the payer needs to settle a PIX charge.
// Fields PagHiper did not return are nil and encode as JSON null.
type PixInstructions struct {
	QRCodeBase64   *string `json:"qrCodeBase64"`
	QRCodeImageURL *string `json:"qrCodeImageUrl"`
	EMV            *string `json:"pixCode"`
	PixURL         *string `json:"pixUrl"`
}

func (*PixInstructions) Method() Method { return MethodPix }
func (*PixInstructions) isPaymentInstructions() {}

func (p *PixInstructions) MarshalJSON() ([]byte, error) {
	type alias PixInstructions
	return json.Marshal(struct {
		Type Method `json:"type"`
		*alias
	}{Type: MethodPix, alias: (*alias)(p)})
}

// BoletoInstructions carries the bank slip document references.
// Fields PagHiper did not return are nil and encode as JSON null.
type BoletoInstructions struct {
	DigitableLine *string `json:"digitableLine"`
	URLSlip       *string `json:"urlSlip"`
	URLSlipPDF    *string `json:"urlSlipPdf"`
}

func (*BoletoInstructions) Method() Method { return MethodBoleto }
func (*BoletoInstructions) isPaymentInstructions() {}

func (b *BoletoInstructions) MarshalJSON() ([]byte, error) {
	type alias BoletoInstructions
	return json.Marshal(struct {
		Type Method `json:"type"`
		*alias
	}{Type: MethodBoleto, alias: (*alias)(b)})
}

// StatusResult is the normalized answer of a status query.
type StatusResult struct {
	TransactionID string
	// Status is the lower-cased PagHiper status, e.g. "paid" or "pending".
	Status   string
	PaidDate *time.Time
}
