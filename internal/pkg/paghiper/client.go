package paghiper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TableFox/internal/pkg/env"
)

const (
	defaultPixBaseURL    = "https://pix.paghiper.com"
	defaultBoletoBaseURL = "https://api.paghiper.com"

	resultSuccess = "success"
)

type Client struct {
	APIKey string
	Token  string

	PixBaseURL    string
	BoletoBaseURL string

	HTTPClient *http.Client

	now func() time.Time
}

func NewClientFromEnv() *Client {
	return &Client{
		APIKey:        strings.TrimSpace(env.GetEnv("PAGHIPER_API_KEY", "")),
		Token:         strings.TrimSpace(env.GetEnv("PAGHIPER_TOKEN", "")),
		PixBaseURL:    strings.TrimSpace(env.GetEnv("PAGHIPER_PIX_BASE_URL", defaultPixBaseURL)),
		BoletoBaseURL: strings.TrimSpace(env.GetEnv("PAGHIPER_BOLETO_BASE_URL", defaultBoletoBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

type chargeItem struct {
	ItemID      string `json:"item_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	PriceCents  int64  `json:"price_cents"`
}

type createChargeBody struct {
	APIKey          string       `json:"apiKey"`
	OrderID         string       `json:"order_id"`
	PayerEmail      string       `json:"payer_email"`
	PayerName       string       `json:"payer_name"`
	PayerCPFCNPJ    string       `json:"payer_cpf_cnpj"`
	PayerPhone      string       `json:"payer_phone,omitempty"`
	NotificationURL string       `json:"notification_url"`
	DaysDueDate     int          `json:"days_due_date"`
	TypeBankSlip    string       `json:"type_bank_slip,omitempty"`
	Items           []chargeItem `json:"items"`
}

type createResponse struct {
	Result          string `json:"result"`
	ResponseMessage string `json:"response_message"`
	TransactionID   string `json:"transaction_id"`
	OrderID         string `json:"order_id"`
	PixCode         *struct {
		QRCodeBase64   string `json:"qrcode_base64"`
		QRCodeImageURL string `json:"qrcode_image_url"`
		EMV            string `json:"emv"`
		PixURL         string `json:"pix_url"`
	} `json:"pix_code"`
	BankSlip *struct {
		DigitableLine string `json:"digitable_line"`
		URLSlip       string `json:"url_slip"`
		URLSlipPDF    string `json:"url_slip_pdf"`
	} `json:"bank_slip"`
}

// CreateCharge creates a PIX or bank slip charge for req.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Method != MethodPix && req.Method != MethodBoleto {
		return nil, fmt.Errorf("paghiper: unsupported payment method %q", req.Method)
	}
	if req.Method == MethodPix && req.AmountCents < MinimumPixAmountCents {
		return nil, ErrBelowMinimumAmount
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAGHIPER_API_KEY is not configured")
	}

	body := createChargeBody{
		APIKey:          c.APIKey,
		OrderID:         req.OrderID,
		PayerEmail:      strings.TrimSpace(req.PayerEmail),
		PayerName:       strings.TrimSpace(req.PayerName),
		PayerCPFCNPJ:    OnlyDigits(req.PayerDocument),
		PayerPhone:      OnlyDigits(req.PayerPhone),
		NotificationURL: req.NotificationURL,
		DaysDueDate:     req.DaysDueDate,
		Items: []chargeItem{{
			ItemID:      req.OrderID,
			Description: req.Description,
			Quantity:    1,
			PriceCents:  req.AmountCents,
		}},
	}

	endpoint := strings.TrimRight(c.PixBaseURL, "/") + "/invoice/create/"
	envelope := "pix_create_request"
	if req.Method == MethodBoleto {
		endpoint = strings.TrimRight(c.BoletoBaseURL, "/") + "/transaction/create/"
		envelope = "create_request"
		body.TypeBankSlip = "boletoA4"
	}

	status, raw, err := c.postJSON(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	var decoded map[string]json.RawMessage
	var resp createResponse
	parseErr := json.Unmarshal(raw, &decoded)
	if parseErr == nil {
		if inner, ok := decoded[envelope]; ok {
			parseErr = json.Unmarshal(inner, &resp)
		} else {
			parseErr = fmt.Errorf("missing %s envelope", envelope)
		}
	}

	if status < 200 || status >= 300 {
		msg := strings.TrimSpace(resp.ResponseMessage)
		if msg == "" {
			msg = truncate(string(raw), 512)
		}
		return nil, &ChargeCreationError{StatusCode: status, Message: msg}
	}
	if parseErr != nil {
		return nil, &ChargeCreationError{StatusCode: status, Message: "invalid processor response: " + parseErr.Error()}
	}
	if !strings.EqualFold(strings.TrimSpace(resp.Result), resultSuccess) {
		msg := strings.TrimSpace(resp.ResponseMessage)
		if msg == "" {
			msg = "processor reported result " + resp.Result
		}
		return nil, &ChargeCreationError{StatusCode: status, Message: msg}
	}

	out := &ChargeResult{
		TransactionID: strings.TrimSpace(resp.TransactionID),
		OrderID:       strings.TrimSpace(resp.OrderID),
		DueDate:       c.clock().AddDate(0, 0, req.DaysDueDate),
	}
	if out.OrderID == "" {
		out.OrderID = req.OrderID
	}
	if err := json.Unmarshal(raw, &out.Raw); err != nil {
		out.Raw = map[string]interface{}{}
	}

	switch req.Method {
	case MethodPix:
		pix := &PixInstructions{}
		if resp.PixCode != nil {
			pix.QRCodeBase64 = optional(resp.PixCode.QRCodeBase64)
			pix.QRCodeImageURL = optional(resp.PixCode.QRCodeImageURL)
			pix.EMV = optional(resp.PixCode.EMV)
			pix.PixURL = optional(resp.PixCode.PixURL)
		}
		out.Instructions = pix
	case MethodBoleto:
		slip := &BoletoInstructions{}
		if resp.BankSlip != nil {
			slip.DigitableLine = optional(resp.BankSlip.DigitableLine)
			slip.URLSlip = optional(resp.BankSlip.URLSlip)
			slip.URLSlipPDF = optional(resp.BankSlip.URLSlipPDF)
		}
		out.Instructions = slip
	}

	log.Infof("[PagHiper] %s charge created for order %s (transaction %s)", req.Method, out.OrderID, out.TransactionID)
	return out, nil
}

// statusRequest is shared by both instruments; the bank slip flow adds the
// payment date fields.
type statusRequest struct {
	Result          string `json:"result"`
	ResponseMessage string `json:"response_message"`
	TransactionID   string `json:"transaction_id"`
	Status          string `json:"status"`
	StatusDate      string `json:"status_date"`
	PaidDate        string `json:"paid_date"`
	PaymentDate     string `json:"payment_date"`
	DatePayment     string `json:"date_payment"`
}

// QueryStatus asks PagHiper for the current status of a transaction.
//
// A nil result with a nil error means the status is unknown: the response
// was malformed, the processor reported a failure, or no status came back.
// Callers must retry later rather than treat it as unpaid. Only transport
// failures are returned as errors.
func (c *Client) QueryStatus(ctx context.Context, transactionID string, method Method) (*StatusResult, error) {
	txID := strings.TrimSpace(transactionID)
	if txID == "" {
		return nil, errors.New("transaction id is required")
	}

	var endpoint string
	switch method {
	case MethodPix:
		endpoint = strings.TrimRight(c.PixBaseURL, "/") + "/invoice/status/"
	case MethodBoleto:
		endpoint = strings.TrimRight(c.BoletoBaseURL, "/") + "/transaction/status/"
	default:
		return nil, fmt.Errorf("paghiper: unsupported payment method %q", method)
	}

	body := map[string]string{
		"apiKey":         c.APIKey,
		"token":          c.Token,
		"transaction_id": txID,
	}
	status, raw, err := c.postJSON(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		log.Warnf("[PagHiper] status query for %s returned http %d", txID, status)
		return nil, nil
	}

	var envelope struct {
		StatusRequest *statusRequest `json:"status_request"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.StatusRequest == nil {
		log.Warnf("[PagHiper] malformed status response for %s", txID)
		return nil, nil
	}
	sr := envelope.StatusRequest
	if !strings.EqualFold(strings.TrimSpace(sr.Result), resultSuccess) {
		log.Warnf("[PagHiper] status query for %s rejected: %s", txID, sr.ResponseMessage)
		return nil, nil
	}
	normalized := strings.ToLower(strings.TrimSpace(sr.Status))
	if normalized == "" {
		return nil, nil
	}

	out := &StatusResult{TransactionID: txID, Status: normalized}
	if method == MethodBoleto {
		out.PaidDate = boletoPaidDate(sr, normalized)
	} else {
		out.PaidDate = pixPaidDate(sr, normalized)
	}
	return out, nil
}

// boletoPaidDate walks the candidate fields in priority order; the bank slip
// schema differs between the regular and the registered flow.
func boletoPaidDate(sr *statusRequest, status string) *time.Time {
	for _, candidate := range []string{sr.PaidDate, sr.PaymentDate, sr.DatePayment} {
		if t, ok := ParseTime(candidate); ok {
			return &t
		}
	}
	if IsSettledStatus(status) {
		if t, ok := ParseTime(sr.StatusDate); ok {
			return &t
		}
	}
	return nil
}

func pixPaidDate(sr *statusRequest, status string) *time.Time {
	if !IsSettledStatus(status) {
		return nil
	}
	if t, ok := ParseTime(sr.PaidDate); ok {
		return &t
	}
	if t, ok := ParseTime(sr.StatusDate); ok {
		return &t
	}
	return nil
}

// IsSettledStatus reports whether a PagHiper status means the money arrived.
func IsSettledStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "completed":
		return true
	default:
		return false
	}
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload interface{}) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", "UTF-8")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
