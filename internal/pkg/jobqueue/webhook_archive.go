package jobqueue

import (
	"context"
	"fmt"
	"time"
)

// Archiver stores a raw webhook body and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, provider, eventID string, receivedAt time.Time, body []byte) (string, error)
}

// WebhookArchiveScheduler queues raw webhook bodies for archiving.
type WebhookArchiveScheduler struct {
	queue *Queue
}

func NewWebhookArchiveScheduler(queue *Queue) *WebhookArchiveScheduler {
	return &WebhookArchiveScheduler{queue: queue}
}

func (s *WebhookArchiveScheduler) Schedule(ctx context.Context, provider, eventID string, body []byte) error {
	payload := WebhookArchiveJobPayload{
		Provider:   provider,
		EventID:    eventID,
		ReceivedAt: time.Now(),
		Body:       string(body),
	}
	_, err := s.queue.EnqueueJob(ctx, JobTypeWebhookArchive, payload.ToMap())
	return err
}

func WebhookArchiveHandler(archiver Archiver) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := WebhookArchiveJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid webhook archive payload: %w", err)
		}
		_, err = archiver.Archive(ctx, payload.Provider, payload.EventID, payload.ReceivedAt, []byte(payload.Body))
		return err
	}
}
