package models

import "time"

const BillingProviderPagHiper = "paghiper"

// BillingWebhookEvent stores provider webhook payloads with deduplication
// metadata for idempotent processing.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	TransactionID   string     `gorm:"type:varchar(191);not null;default:'';index" json:"transaction_id"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	APIKeyValid     bool       `gorm:"default:false;index" json:"api_key_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProcessedSuccessfully reports whether an earlier delivery of this event
// was fully applied.
func (e *BillingWebhookEvent) ProcessedSuccessfully() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError == ""
}
