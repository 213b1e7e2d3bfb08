package repository

import (
	"strings"

	"github.com/ManuelReschke/TableFox/app/models"
	"gorm.io/gorm"
)

// Columns an order update may touch. Plan, method, amount and payer
// snapshot are deliberately absent.
var planOrderMutableColumns = []string{
	"status",
	"processor_order_id",
	"processor_transaction_id",
	"processor_response",
	"due_date",
	"paid_at",
	"cancelled_at",
	"updated_at",
}

// planOrderRepository implements the PlanOrderRepository interface
type planOrderRepository struct {
	db *gorm.DB
}

// NewPlanOrderRepository creates a new plan order repository instance
func NewPlanOrderRepository(db *gorm.DB) PlanOrderRepository {
	return &planOrderRepository{db: db}
}

// Create inserts a new plan order
func (r *planOrderRepository) Create(order *models.PlanOrder) error {
	return r.db.Create(order).Error
}

// Update persists the mutable columns of an existing order
func (r *planOrderRepository) Update(order *models.PlanOrder) error {
	return r.db.Model(order).Select(planOrderMutableColumns).Updates(order).Error
}

// UpdateIfStatus persists the mutable columns only if the row is still in
// expectedStatus. MySQL reports changed rows, so a write that changes
// nothing also returns false.
func (r *planOrderRepository) UpdateIfStatus(order *models.PlanOrder, expectedStatus string) (bool, error) {
	result := r.db.Model(order).
		Where("status = ?", expectedStatus).
		Select(planOrderMutableColumns).
		Updates(order)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID retrieves an order by its id
func (r *planOrderRepository) GetByID(id string) (*models.PlanOrder, error) {
	var order models.PlanOrder
	if err := r.db.Where("id = ?", strings.TrimSpace(id)).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByProcessorTransactionID retrieves an order by the processor transaction id
func (r *planOrderRepository) GetByProcessorTransactionID(transactionID string) (*models.PlanOrder, error) {
	trimmed := strings.TrimSpace(transactionID)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var order models.PlanOrder
	if err := r.db.Where("processor_transaction_id = ?", trimmed).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByTenant returns a tenant's orders, newest first
func (r *planOrderRepository) ListByTenant(tenantID string, offset, limit int) ([]models.PlanOrder, error) {
	var orders []models.PlanOrder
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// AppendStatusHistory records a status transition
func (r *planOrderRepository) AppendStatusHistory(entry *models.PlanOrderStatusHistory) error {
	return r.db.Create(entry).Error
}
