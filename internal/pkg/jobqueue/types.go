package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypePaymentConfirmation JobType = "payment_confirmation"
	JobTypeWebhookArchive      JobType = "webhook_archive"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PaymentConfirmationJobPayload carries everything the confirmation e-mail needs,
// so the worker does not have to read the order back.
type PaymentConfirmationJobPayload struct {
	OrderID         string    `json:"order_id"`
	TenantID        string    `json:"tenant_id"`
	PlanType        string    `json:"plan_type"`
	PlanName        string    `json:"plan_name"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	AmountCents     int64     `json:"amount_cents"`
	PaidAt          time.Time `json:"paid_at"`
	SubscriptionEnd time.Time `json:"subscription_end"`
}

// ToMap converts the payload to a map for storage
func (p PaymentConfirmationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"order_id":         p.OrderID,
		"tenant_id":        p.TenantID,
		"plan_type":        p.PlanType,
		"plan_name":        p.PlanName,
		"customer_name":    p.CustomerName,
		"customer_email":   p.CustomerEmail,
		"amount_cents":     p.AmountCents,
		"paid_at":          p.PaidAt.UTC().Format(time.RFC3339),
		"subscription_end": p.SubscriptionEnd.UTC().Format(time.RFC3339),
	}
}

func PaymentConfirmationJobPayloadFromMap(data map[string]interface{}) (*PaymentConfirmationJobPayload, error) {
	var payload PaymentConfirmationJobPayload
	if err := decodePayload(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// WebhookArchiveJobPayload holds a raw webhook delivery bound for object storage.
type WebhookArchiveJobPayload struct {
	Provider   string    `json:"provider"`
	EventID    string    `json:"event_id"`
	ReceivedAt time.Time `json:"received_at"`
	Body       string    `json:"body"`
}

func (p WebhookArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider":    p.Provider,
		"event_id":    p.EventID,
		"received_at": p.ReceivedAt.UTC().Format(time.RFC3339Nano),
		"body":        p.Body,
	}
}

func WebhookArchiveJobPayloadFromMap(data map[string]interface{}) (*WebhookArchiveJobPayload, error) {
	var payload WebhookArchiveJobPayload
	if err := decodePayload(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func decodePayload(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
