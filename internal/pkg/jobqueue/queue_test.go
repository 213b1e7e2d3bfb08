package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := NewQueueWithClient(client, 1)
	q.SetRetryDelay(0)
	return q
}

type fakeMailer struct {
	mu   sync.Mutex
	to   []string
	subj []string
	body []string
	err  error
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.subj = append(m.subj, subject)
	m.body = append(m.body, htmlBody)
	return nil
}

type fakeArchiver struct {
	provider string
	eventID  string
	body     []byte
}

func (a *fakeArchiver) Archive(_ context.Context, provider, eventID string, _ time.Time, body []byte) (string, error) {
	a.provider = provider
	a.eventID = eventID
	a.body = body
	return "webhooks/" + provider + "/" + eventID + ".json", nil
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	var got map[string]interface{}
	q.Handle(JobTypeWebhookArchive, func(_ context.Context, job *Job) error {
		got = job.Payload
		return nil
	})

	job, err := q.EnqueueJob(ctx, JobTypeWebhookArchive, map[string]interface{}{"event_id": "evt-1"})
	require.NoError(t, err)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, "evt-1", got["event_id"])

	_, err = q.GetJob(ctx, job.ID)
	assert.True(t, errors.Is(err, redis.Nil))

	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusPending])
	assert.EqualValues(t, 1, stats[JobStatusCompleted])
}

func TestFailingJobIsRetriedThenMarkedFailed(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	attempts := 0
	q.Handle(JobTypePaymentConfirmation, func(context.Context, *Job) error {
		attempts++
		return errors.New("smtp unavailable")
	})

	job, err := q.EnqueueJob(ctx, JobTypePaymentConfirmation, map[string]interface{}{})
	require.NoError(t, err)

	for i := 0; i < DefaultMaxRetries; i++ {
		processed, err := q.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, processed)
	}
	assert.Equal(t, DefaultMaxRetries, attempts)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, DefaultMaxRetries, stored.RetryCount)
	assert.Equal(t, "smtp unavailable", stored.ErrorMsg)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats[JobStatusFailed])
}

func TestUnknownJobTypeFails(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	job, err := q.EnqueueJob(ctx, JobType("nope"), nil)
	require.NoError(t, err)

	_, err = q.ProcessNext(ctx)
	require.NoError(t, err)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")
}

func TestRecoverStuck(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	started := time.Now().Add(-time.Hour)
	stuck := &Job{ID: "stuck", Type: JobTypeWebhookArchive, Status: JobStatusProcessing, ProcessedAt: &started, MaxRetries: 3}
	fresh := time.Now()
	busy := &Job{ID: "busy", Type: JobTypeWebhookArchive, Status: JobStatusProcessing, ProcessedAt: &fresh, MaxRetries: 3}
	for _, j := range []*Job{stuck, busy} {
		data, err := json.Marshal(j)
		require.NoError(t, err)
		require.NoError(t, q.client.Set(ctx, JobKeyPrefix+j.ID, data, JobTTL).Err())
		require.NoError(t, q.client.LPush(ctx, JobProcessingKey, j.ID).Err())
	}
	require.NoError(t, q.client.LPush(ctx, JobProcessingKey, "ghost").Err())

	recovered, err := q.RecoverStuck(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	ids, err := q.client.LRange(ctx, JobQueueKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"stuck"}, ids)

	processing, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"busy"}, processing)

	job, err := q.GetJob(ctx, "stuck")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
}

func TestPaymentNotifierSendsConfirmationEmail(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	mailer := &fakeMailer{}
	q.Handle(JobTypePaymentConfirmation, PaymentConfirmationHandler(mailer))

	paidAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	err := NewPaymentNotifier(q).PaymentConfirmed(ctx, billing.PaymentConfirmation{
		OrderID:         "ord-1",
		TenantID:        "tenant-1",
		PlanType:        "premium",
		PlanName:        "Plano Premium",
		CustomerName:    "Ana",
		CustomerEmail:   "ana@example.com",
		AmountCents:     14990,
		PaidAt:          paidAt,
		SubscriptionEnd: paidAt.AddDate(0, 0, 30),
	})
	require.NoError(t, err)

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "ana@example.com", mailer.to[0])
	assert.Equal(t, "Pagamento confirmado - Plano Premium", mailer.subj[0])
	assert.Contains(t, mailer.body[0], "R$ 149,90")
	assert.Contains(t, mailer.body[0], "01/05/2025")
}

func TestPaymentConfirmationWithoutEmailIsSkipped(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("must not be called")}
	payload := PaymentConfirmationJobPayload{OrderID: "ord-2", PlanName: "Plano Básico"}

	err := PaymentConfirmationHandler(mailer)(context.Background(), &Job{Payload: payload.ToMap()})
	assert.NoError(t, err)
}

func TestWebhookArchiveScheduler(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	archiver := &fakeArchiver{}
	q.Handle(JobTypeWebhookArchive, WebhookArchiveHandler(archiver))

	body := []byte(`{"status_request":{"status":"paid"}}`)
	require.NoError(t, NewWebhookArchiveScheduler(q).Schedule(ctx, "paghiper", "evt-9", body))

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	assert.Equal(t, "paghiper", archiver.provider)
	assert.Equal(t, "evt-9", archiver.eventID)
	assert.JSONEq(t, string(body), string(archiver.body))
}
