package models

import "time"

// TenantSubscription holds the plan a tenant is currently entitled to.
// Exactly one row per tenant is expected; only the billing service writes it.
type TenantSubscription struct {
	ID                    string     `gorm:"type:char(36);primaryKey" json:"id"`
	TenantID              string     `gorm:"type:char(36);not null;index" json:"tenant_id"`
	PlanType              string     `gorm:"type:varchar(20);not null" json:"plan_type"`
	SubscriptionStartDate *time.Time `gorm:"type:timestamp;default:null" json:"subscription_start_date"`
	SubscriptionEndDate   *time.Time `gorm:"type:timestamp;default:null" json:"subscription_end_date"`
	TrialStartDate        *time.Time `gorm:"type:timestamp;default:null" json:"trial_start_date"`
	TrialEndDate          *time.Time `gorm:"type:timestamp;default:null" json:"trial_end_date"`
	IsActive              bool       `gorm:"default:false;index" json:"is_active"`
	IsTrial               bool       `gorm:"default:true" json:"is_trial"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCurrentlyActive reports whether the subscription grants access at now.
func (s *TenantSubscription) IsCurrentlyActive(now time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}
	end := s.SubscriptionEndDate
	if s.IsTrial {
		end = s.TrialEndDate
	}
	return end != nil && end.After(now)
}
