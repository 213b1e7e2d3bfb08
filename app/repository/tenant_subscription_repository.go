package repository

import (
	"github.com/ManuelReschke/TableFox/app/models"
	"gorm.io/gorm"
)

type tenantSubscriptionRepository struct {
	db *gorm.DB
}

// NewTenantSubscriptionRepository creates a new tenant subscription repository instance
func NewTenantSubscriptionRepository(db *gorm.DB) TenantSubscriptionRepository {
	return &tenantSubscriptionRepository{db: db}
}

// GetByTenantID returns the most recently updated subscription of a tenant.
// Ordering keeps reads stable if a race ever left two rows behind.
func (r *tenantSubscriptionRepository) GetByTenantID(tenantID string) (*models.TenantSubscription, error) {
	var sub models.TenantSubscription
	err := r.db.Where("tenant_id = ?", tenantID).Order("updated_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *tenantSubscriptionRepository) Create(sub *models.TenantSubscription) error {
	return r.db.Create(sub).Error
}

func (r *tenantSubscriptionRepository) Update(sub *models.TenantSubscription) error {
	return r.db.Save(sub).Error
}
