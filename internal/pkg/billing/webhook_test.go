package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

func TestParseNotification_BoletoFlat(t *testing.T) {
	n, err := ParseNotification("application/json", []byte(`{
		"apiKey": "apk_1",
		"transaction_id": "BOL123",
		"order_id": "ord-1",
		"status": "Paid",
		"payment_date": "2025-04-02 14:10:00"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "BOL123", n.TransactionID)
	assert.Equal(t, "ord-1", n.OrderID)
	assert.Equal(t, "paid", n.Status)
	assert.Equal(t, "apk_1", n.APIKey)
	assert.Equal(t, paghiper.MethodBoleto, n.Method)
	require.NotNil(t, n.PaidDate)
	assert.Equal(t, 2025, n.PaidDate.Year())
	assert.Equal(t, time.April, n.PaidDate.Month())
	assert.False(t, n.NeedsStatusLookup())
}

func TestParseNotification_PixEnvelope(t *testing.T) {
	n, err := ParseNotification("application/json", []byte(`{
		"apiKey": "apk_1",
		"status_request": {
			"transaction_id": "PIX9",
			"order_id": "ord-2",
			"status": "completed",
			"status_date": "2025-04-03 09:00:00"
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "PIX9", n.TransactionID)
	assert.Equal(t, "completed", n.Status)
	assert.Equal(t, "apk_1", n.APIKey)
	assert.Equal(t, paghiper.MethodPix, n.Method)
	require.NotNil(t, n.PaidDate)
	assert.Equal(t, 3, n.PaidDate.Day())
}

func TestParseNotification_PendingStatusDateIsNotPaidDate(t *testing.T) {
	n, err := ParseNotification("application/json", []byte(`{"status_request":{"transaction_id":"PIX1","status":"pending","status_date":"2025-04-03 09:00:00"}}`))
	require.NoError(t, err)
	assert.Nil(t, n.PaidDate)
}

func TestParseNotification_FormNotificationOnly(t *testing.T) {
	n, err := ParseNotification("application/x-www-form-urlencoded",
		[]byte("notification_id=NOTIF77&idTransacao=BOL555&apiKey=apk_1"))
	require.NoError(t, err)

	assert.Equal(t, "NOTIF77", n.EventID)
	assert.Equal(t, "BOL555", n.TransactionID)
	assert.True(t, n.NeedsStatusLookup())
}

func TestParseNotification_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name, contentType, body string
	}{
		{"empty", "application/json", ""},
		{"broken json", "application/json", `{"transaction_id":`},
		{"no identifiers", "application/json", `{"status":"paid"}`},
		{"form without transaction", "application/x-www-form-urlencoded", "notification_id=N1"},
		{"garbage", "text/plain", "hello world"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseNotification(tc.contentType, []byte(tc.body))
			assert.True(t, errors.Is(err, ErrInvalidNotification), "got %v", err)
		})
	}
}

func TestMapProcessorStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "paid", want: models.PlanOrderStatusPaid},
		{in: "Completed", want: models.PlanOrderStatusPaid},
		{in: "canceled", want: models.PlanOrderStatusCancelled},
		{in: "cancelled", want: models.PlanOrderStatusCancelled},
		{in: "refunded", want: models.PlanOrderStatusCancelled},
		{in: "failed", want: models.PlanOrderStatusFailed},
		{in: "expired", want: models.PlanOrderStatusFailed},
		{in: "rejected", want: models.PlanOrderStatusFailed},
		{in: "pending", want: ""},
		{in: "reserved", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapProcessorStatus(tt.in), tt.in)
	}
}

func TestVerifyNotificationAPIKey(t *testing.T) {
	withStatus := func(key string) *Notification {
		return &Notification{TransactionID: "TX1", Status: "paid", APIKey: key}
	}
	notifyOnly := func(key string) *Notification {
		return &Notification{TransactionID: "TX1", APIKey: key}
	}

	assert.True(t, VerifyNotificationAPIKey(withStatus("apk_1"), "apk_1"))
	assert.True(t, VerifyNotificationAPIKey(withStatus(" apk_1 "), "apk_1"))
	assert.False(t, VerifyNotificationAPIKey(withStatus("apk_2"), "apk_1"))
	assert.False(t, VerifyNotificationAPIKey(withStatus(""), "apk_1"))
	assert.False(t, VerifyNotificationAPIKey(nil, "apk_1"))

	assert.True(t, VerifyNotificationAPIKey(notifyOnly(""), "apk_1"))
	assert.False(t, VerifyNotificationAPIKey(notifyOnly("apk_2"), "apk_1"))

	assert.True(t, VerifyNotificationAPIKey(withStatus(""), ""))
	assert.True(t, VerifyNotificationAPIKey(withStatus("apk_2"), ""))
}
