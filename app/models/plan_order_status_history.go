package models

import "time"

const (
	StatusSourceCheckout = "checkout"
	StatusSourceWebhook  = "webhook"
	StatusSourcePoll     = "poll"
)

// PlanOrderStatusHistory is an append-only log of plan order transitions.
type PlanOrderStatusHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlanOrderID string    `gorm:"type:char(36);not null;index" json:"plan_order_id"`
	FromStatus  string    `gorm:"type:varchar(20);not null;default:''" json:"from_status"`
	ToStatus    string    `gorm:"type:varchar(20);not null" json:"to_status"`
	Source      string    `gorm:"type:varchar(20);not null" json:"source"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PlanOrderStatusHistory) TableName() string {
	return "plan_order_status_history"
}
