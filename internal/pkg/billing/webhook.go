package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

var ErrInvalidNotification = errors.New("invalid paghiper notification")

// Notification is a processor callback reduced to what the lifecycle needs.
type Notification struct {
	EventID       string
	TransactionID string
	OrderID       string
	// Status is the lower-cased processor status. It is empty for
	// notification-only deliveries that must be resolved by a status query.
	Status   string
	PaidDate *time.Time
	APIKey   string
	Method   paghiper.Method
}

// NeedsStatusLookup reports whether the delivery carried no status.
func (n *Notification) NeedsStatusLookup() bool {
	return n.Status == ""
}

type notificationFields struct {
	NotificationID string `json:"notification_id"`
	APIKey         string `json:"apiKey"`
	TransactionID  string `json:"transaction_id"`
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	StatusDate     string `json:"status_date"`
	PaidDate       string `json:"paid_date"`
	PaymentDate    string `json:"payment_date"`
	DatePayment    string `json:"date_payment"`
}

// ParseNotification accepts the bank slip flat JSON body, the PIX body
// wrapped in status_request and the form-encoded notification-only body.
func ParseNotification(contentType string, body []byte) (*Notification, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidNotification)
	}

	var (
		n   *Notification
		err error
	)
	if strings.Contains(strings.ToLower(contentType), "application/x-www-form-urlencoded") || trimmed[0] != '{' {
		n, err = parseFormNotification(trimmed)
	} else {
		n, err = parseJSONNotification(trimmed)
	}
	if err != nil {
		return nil, err
	}

	if n.TransactionID == "" && n.OrderID == "" {
		return nil, fmt.Errorf("%w: missing transaction_id and order_id", ErrInvalidNotification)
	}
	if n.NeedsStatusLookup() && n.TransactionID == "" {
		return nil, fmt.Errorf("%w: notification without status needs a transaction id", ErrInvalidNotification)
	}
	return n, nil
}

func parseJSONNotification(body []byte) (*Notification, error) {
	var envelope struct {
		StatusRequest *notificationFields `json:"status_request"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}

	var flat notificationFields
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}

	method := paghiper.MethodBoleto
	fields := flat
	if envelope.StatusRequest != nil {
		method = paghiper.MethodPix
		fields = *envelope.StatusRequest
		// The envelope does not repeat the merchant key and notification id.
		if fields.APIKey == "" {
			fields.APIKey = flat.APIKey
		}
		if fields.NotificationID == "" {
			fields.NotificationID = flat.NotificationID
		}
	}
	return fields.toNotification(method), nil
}

func parseFormNotification(body []byte) (*Notification, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	fields := notificationFields{
		NotificationID: values.Get("notification_id"),
		APIKey:         values.Get("apiKey"),
		TransactionID:  firstNonEmpty(values.Get("idTransacao"), values.Get("transaction_id")),
		OrderID:        values.Get("order_id"),
		Status:         values.Get("status"),
		StatusDate:     values.Get("status_date"),
		PaidDate:       values.Get("paid_date"),
		PaymentDate:    values.Get("payment_date"),
		DatePayment:    values.Get("date_payment"),
	}
	return fields.toNotification(""), nil
}

func (f notificationFields) toNotification(method paghiper.Method) *Notification {
	n := &Notification{
		EventID:       strings.TrimSpace(f.NotificationID),
		TransactionID: strings.TrimSpace(f.TransactionID),
		OrderID:       strings.TrimSpace(f.OrderID),
		Status:        strings.ToLower(strings.TrimSpace(f.Status)),
		APIKey:        strings.TrimSpace(f.APIKey),
		Method:        method,
	}
	for _, candidate := range []string{f.PaidDate, f.PaymentDate, f.DatePayment} {
		if t, ok := paghiper.ParseTime(candidate); ok {
			n.PaidDate = &t
			return n
		}
	}
	if paghiper.IsSettledStatus(n.Status) {
		if t, ok := paghiper.ParseTime(f.StatusDate); ok {
			n.PaidDate = &t
		}
	}
	return n
}

// MapProcessorStatus maps PagHiper's status vocabulary onto the terminal
// plan order states. Non-terminal statuses map to "".
func MapProcessorStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "completed":
		return models.PlanOrderStatusPaid
	case "canceled", "cancelled", "refunded":
		return models.PlanOrderStatusCancelled
	case "failed", "expired", "rejected":
		return models.PlanOrderStatusFailed
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
