package models

import (
	"strings"
	"time"
)

const (
	PlanTypeBasic      = "basic"
	PlanTypePremium    = "premium"
	PlanTypeEnterprise = "enterprise"
)

const (
	PaymentMethodPix    = "pix"
	PaymentMethodBoleto = "boleto"
)

const (
	PlanOrderStatusPending   = "pending"
	PlanOrderStatusPaid      = "paid"
	PlanOrderStatusFailed    = "failed"
	PlanOrderStatusCancelled = "cancelled"
)

const processorMetadataTenantKey = "tenant_id"

// ProcessorMetadata is the opaque processor response blob stored with an
// order. It also carries the owning tenant id so the order can be tied back
// to its tenant from a bare transaction id.
type ProcessorMetadata map[string]interface{}

// TenantID returns the tenant id embedded in the metadata, if any.
func (m ProcessorMetadata) TenantID() string {
	if m == nil {
		return ""
	}
	v, _ := m[processorMetadataTenantKey].(string)
	return strings.TrimSpace(v)
}

// WithTenant returns a copy of m with the tenant id stamped in.
func (m ProcessorMetadata) WithTenant(tenantID string) ProcessorMetadata {
	out := make(ProcessorMetadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if tenantID != "" {
		out[processorMetadataTenantKey] = tenantID
	}
	return out
}

// PlanOrder is a tenant's purchase of a subscription plan. Plan, method and
// amount are snapshots taken at creation and never change afterwards.
type PlanOrder struct {
	ID                     string            `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID               string            `gorm:"type:char(36);not null;index" json:"tenant_id"`
	PlanType               string            `gorm:"type:varchar(20);not null" json:"plan_type"`
	CustomerName           string            `gorm:"type:varchar(150);not null" json:"customer_name"`
	CustomerEmail          string            `gorm:"type:varchar(200);not null" json:"customer_email"`
	CustomerDocument       string            `gorm:"type:varchar(20);not null" json:"customer_document"`
	CustomerPhone          string            `gorm:"type:varchar(20);not null" json:"customer_phone"`
	PaymentMethod          string            `gorm:"type:varchar(10);not null" json:"payment_method"`
	AmountCents            int64             `gorm:"not null" json:"amount_cents"`
	ValidityDays           int               `gorm:"not null;default:30" json:"validity_days"`
	Status                 string            `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ProcessorOrderID       *string           `gorm:"type:varchar(191);index" json:"processor_order_id"`
	ProcessorTransactionID *string           `gorm:"type:varchar(191);uniqueIndex" json:"processor_transaction_id"`
	ProcessorResponse      ProcessorMetadata `gorm:"type:json;serializer:json" json:"-"`
	DueDate                *time.Time        `gorm:"type:timestamp;default:null" json:"due_date"`
	PaidAt                 *time.Time        `gorm:"type:timestamp;default:null" json:"paid_at"`
	CancelledAt            *time.Time        `gorm:"type:timestamp;default:null" json:"cancelled_at"`
	CreatedAt              time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the order can no longer change status.
func (o *PlanOrder) IsTerminal() bool {
	return IsTerminalPlanOrderStatus(o.Status)
}

// ResolvedTenantID prefers the tenant column and falls back to the id
// carried in the processor metadata.
func (o *PlanOrder) ResolvedTenantID() string {
	if id := strings.TrimSpace(o.TenantID); id != "" {
		return id
	}
	return o.ProcessorResponse.TenantID()
}

func IsValidPlanOrderStatus(status string) bool {
	switch status {
	case PlanOrderStatusPending, PlanOrderStatusPaid, PlanOrderStatusFailed, PlanOrderStatusCancelled:
		return true
	default:
		return false
	}
}

func IsTerminalPlanOrderStatus(status string) bool {
	switch status {
	case PlanOrderStatusPaid, PlanOrderStatusFailed, PlanOrderStatusCancelled:
		return true
	default:
		return false
	}
}
