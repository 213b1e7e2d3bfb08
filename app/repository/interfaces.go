package repository

import (
	"github.com/ManuelReschke/TableFox/app/models"
	"gorm.io/gorm"
)

// PlanOrderRepository defines the persistence contract for plan orders.
// Lookups that find nothing return gorm.ErrRecordNotFound.
type PlanOrderRepository interface {
	Create(order *models.PlanOrder) error
	// Update writes only the mutable columns of the order.
	Update(order *models.PlanOrder) error
	// UpdateIfStatus writes the mutable columns only while the stored status
	// still equals expectedStatus and reports whether a row was written.
	UpdateIfStatus(order *models.PlanOrder, expectedStatus string) (bool, error)
	GetByID(id string) (*models.PlanOrder, error)
	GetByProcessorTransactionID(transactionID string) (*models.PlanOrder, error)
	ListByTenant(tenantID string, offset, limit int) ([]models.PlanOrder, error)
	AppendStatusHistory(entry *models.PlanOrderStatusHistory) error
}

// TenantSubscriptionRepository defines the persistence contract for tenant subscriptions.
type TenantSubscriptionRepository interface {
	GetByTenantID(tenantID string) (*models.TenantSubscription, error)
	Create(sub *models.TenantSubscription) error
	Update(sub *models.TenantSubscription) error
}

// TenantRepository resolves tenants for authentication.
type TenantRepository interface {
	GetByID(id string) (*models.Tenant, error)
	GetByAPIKeyHash(hash string) (*models.Tenant, error)
}

// WebhookEventRepository stores processor notifications for deduplication.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	PlanOrder    PlanOrderRepository
	Subscription TenantSubscriptionRepository
	Tenant       TenantRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		PlanOrder:    NewPlanOrderRepository(db),
		Subscription: NewTenantSubscriptionRepository(db),
		Tenant:       NewTenantRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
