package jobqueue

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
)

const statsScrapeTimeout = 2 * time.Second

// RegisterMetrics exposes queue depth and job outcome totals as Prometheus
// metrics. Values are read from Redis on every scrape.
func RegisterMetrics(reg prometheus.Registerer, q *Queue) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tablefox_jobqueue_pending_jobs",
			Help: "Jobs waiting in the queue",
		}, func() float64 {
			return q.scrape("queue size", q.GetQueueSize)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tablefox_jobqueue_processing_jobs",
			Help: "Jobs currently claimed by a worker",
		}, func() float64 {
			return q.scrape("processing size", q.GetProcessingSize)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tablefox_jobqueue_completed_jobs_total",
			Help: "Jobs finished successfully",
		}, func() float64 {
			return q.scrapeStat(JobStatusCompleted)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "tablefox_jobqueue_failed_jobs_total",
			Help: "Jobs that exhausted their retries",
		}, func() float64 {
			return q.scrapeStat(JobStatusFailed)
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) scrape(what string, read func(context.Context) (int64, error)) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), statsScrapeTimeout)
	defer cancel()
	n, err := read(ctx)
	if err != nil {
		log.Warnf("[JobQueue] Failed to read %s for metrics: %v", what, err)
		return 0
	}
	return float64(n)
}

func (q *Queue) scrapeStat(status JobStatus) float64 {
	return q.scrape(string(status)+" stats", func(ctx context.Context) (int64, error) {
		stats, err := q.GetJobStats(ctx)
		if err != nil {
			return 0, err
		}
		return stats[status], nil
	})
}
