package jobqueue

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		if m.GetCounter() != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestRegisterMetrics(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)
	q.Handle(JobTypeWebhookArchive, func(context.Context, *Job) error { return nil })

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg, q))

	_, err := q.EnqueueJob(ctx, JobTypeWebhookArchive, map[string]interface{}{"event_id": "evt-1"})
	require.NoError(t, err)
	_, err = q.EnqueueJob(ctx, JobTypeWebhookArchive, map[string]interface{}{"event_id": "evt-2"})
	require.NoError(t, err)

	assert.Equal(t, float64(2), gatheredValue(t, reg, "tablefox_jobqueue_pending_jobs"))
	assert.Zero(t, gatheredValue(t, reg, "tablefox_jobqueue_completed_jobs_total"))

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	assert.Equal(t, float64(1), gatheredValue(t, reg, "tablefox_jobqueue_pending_jobs"))
	assert.Zero(t, gatheredValue(t, reg, "tablefox_jobqueue_processing_jobs"))
	assert.Equal(t, float64(1), gatheredValue(t, reg, "tablefox_jobqueue_completed_jobs_total"))
	assert.Zero(t, gatheredValue(t, reg, "tablefox_jobqueue_failed_jobs_total"))

	assert.Error(t, RegisterMetrics(reg, q))
}
