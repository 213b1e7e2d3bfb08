package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentConfirmationPayloadFromMap(t *testing.T) {
	paidAt := time.Date(2025, 4, 1, 13, 0, 0, 0, time.UTC)
	in := PaymentConfirmationJobPayload{
		OrderID:         "ord-1",
		TenantID:        "t-1",
		PlanType:        "premium",
		PlanName:        "Premium",
		CustomerEmail:   "ana@example.com",
		AmountCents:     14990,
		PaidAt:          paidAt,
		SubscriptionEnd: paidAt.AddDate(0, 0, 30),
	}

	out, err := PaymentConfirmationJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, int64(14990), out.AmountCents)
	assert.True(t, paidAt.Equal(out.PaidAt))
	assert.True(t, in.SubscriptionEnd.Equal(out.SubscriptionEnd))
	assert.Equal(t, "ana@example.com", out.CustomerEmail)
}

func TestJobRetryability(t *testing.T) {
	job := &Job{Status: JobStatusProcessing, MaxRetries: 2}

	job.MarkAsFailed("boom")
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.False(t, job.IsRetryable())

	job.MarkAsFailed("boom again")
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Empty(t, job.ErrorMsg)
	assert.NotNil(t, job.CompletedAt)
}
