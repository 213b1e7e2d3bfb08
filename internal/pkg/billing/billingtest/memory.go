// Package billingtest provides in-memory stores and a scripted processor
// for exercising the billing service without MySQL or PagHiper.
package billingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/app/repository"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

// Store bundles the in-memory repositories.
type Store struct {
	Orders        *Orders
	Subscriptions *Subscriptions
	Tenants       *Tenants
	WebhookEvents *WebhookEvents
}

func NewStore() *Store {
	return &Store{
		Orders:        &Orders{byID: map[string]models.PlanOrder{}},
		Subscriptions: &Subscriptions{byTenant: map[string]models.TenantSubscription{}},
		Tenants:       &Tenants{byID: map[string]models.Tenant{}},
		WebhookEvents: &WebhookEvents{byKey: map[string]*models.BillingWebhookEvent{}},
	}
}

// Repositories exposes the store through the repository contracts.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		PlanOrder:    s.Orders,
		Subscription: s.Subscriptions,
		Tenant:       s.Tenants,
		WebhookEvent: s.WebhookEvents,
	}
}

type Orders struct {
	mu      sync.Mutex
	byID    map[string]models.PlanOrder
	history []models.PlanOrderStatusHistory

	// UpdateErr, when set, is returned by Update and UpdateIfStatus.
	UpdateErr error
	// PlainUpdateErr, when set, is returned by Update only.
	PlainUpdateErr error
	// BeforeConditionalUpdate runs ahead of UpdateIfStatus without the lock
	// held, letting tests change the stored row in between.
	BeforeConditionalUpdate func(orderID string)
}

func (r *Orders) Create(order *models.PlanOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[order.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.byID[order.ID] = cloneOrder(*order)
	return nil
}

func (r *Orders) Update(order *models.PlanOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if r.PlainUpdateErr != nil {
		return r.PlainUpdateErr
	}
	stored, ok := r.byID[order.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.apply(stored, order)
	return nil
}

func (r *Orders) UpdateIfStatus(order *models.PlanOrder, expectedStatus string) (bool, error) {
	if hook := r.BeforeConditionalUpdate; hook != nil {
		hook(order.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return false, r.UpdateErr
	}
	stored, ok := r.byID[order.ID]
	if !ok || stored.Status != expectedStatus {
		return false, nil
	}
	r.apply(stored, order)
	return true, nil
}

func (r *Orders) apply(stored models.PlanOrder, order *models.PlanOrder) {
	stored.Status = order.Status
	stored.ProcessorOrderID = order.ProcessorOrderID
	stored.ProcessorTransactionID = order.ProcessorTransactionID
	stored.ProcessorResponse = order.ProcessorResponse
	stored.DueDate = order.DueDate
	stored.PaidAt = order.PaidAt
	stored.CancelledAt = order.CancelledAt
	stored.UpdatedAt = time.Now()
	r.byID[order.ID] = cloneOrder(stored)
}

func (r *Orders) GetByID(id string) (*models.PlanOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (r *Orders) GetByProcessorTransactionID(transactionID string) (*models.PlanOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.byID {
		if o.ProcessorTransactionID != nil && *o.ProcessorTransactionID == transactionID {
			out := cloneOrder(o)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Orders) ListByTenant(tenantID string, offset, limit int) ([]models.PlanOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PlanOrder
	for _, o := range r.byID {
		if o.TenantID == tenantID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []models.PlanOrder{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Orders) AppendStatusHistory(entry *models.PlanOrderStatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.history) + 1)
	entry.CreatedAt = time.Now()
	r.history = append(r.history, *entry)
	return nil
}

// History returns the recorded transitions of one order in insertion order.
func (r *Orders) History(orderID string) []models.PlanOrderStatusHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PlanOrderStatusHistory
	for _, h := range r.history {
		if h.PlanOrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

// Put stores an order as-is, bypassing the checkout flow.
func (r *Orders) Put(order models.PlanOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[order.ID] = cloneOrder(order)
}

func cloneOrder(o models.PlanOrder) models.PlanOrder {
	if o.ProcessorResponse != nil {
		meta := make(models.ProcessorMetadata, len(o.ProcessorResponse))
		for k, v := range o.ProcessorResponse {
			meta[k] = v
		}
		o.ProcessorResponse = meta
	}
	return o
}

type Subscriptions struct {
	mu       sync.Mutex
	byTenant map[string]models.TenantSubscription

	Creates int
	Updates int
	// GetErr, when set, is returned by GetByTenantID.
	GetErr error
}

func (r *Subscriptions) GetByTenantID(tenantID string) (*models.TenantSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	s, ok := r.byTenant[tenantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *Subscriptions) Create(sub *models.TenantSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTenant[sub.TenantID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.Creates++
	r.byTenant[sub.TenantID] = *sub
	return nil
}

func (r *Subscriptions) Update(sub *models.TenantSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTenant[sub.TenantID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.Updates++
	r.byTenant[sub.TenantID] = *sub
	return nil
}

// Put seeds a subscription.
func (r *Subscriptions) Put(sub models.TenantSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTenant[sub.TenantID] = sub
}

// Count returns the number of stored subscriptions.
func (r *Subscriptions) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTenant)
}

type Tenants struct {
	mu   sync.Mutex
	byID map[string]models.Tenant
}

func (r *Tenants) GetByID(id string) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *Tenants) GetByAPIKeyHash(hash string) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.APIKeyHash == hash && t.APIKeyRevokedAt == nil {
			out := t
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Tenants) Put(t models.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID] = t
}

type WebhookEvents struct {
	mu     sync.Mutex
	nextID uint
	byKey  map[string]*models.BillingWebhookEvent
}

func (r *WebhookEvents) CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + "|" + event.ProviderEventID
	if stored, ok := r.byKey[key]; ok {
		out := *stored
		return false, &out, nil
	}
	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	stored := *event
	r.byKey[key] = &stored
	out := stored
	return true, &out, nil
}

func (r *WebhookEvents) MarkProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byKey {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// Len returns the number of recorded events.
func (r *WebhookEvents) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

// Gateway is a scripted ChargeGateway that records every call.
type Gateway struct {
	mu sync.Mutex

	ChargeErr         error
	StatusResult      *paghiper.StatusResult
	StatusErr         error
	TransactionPrefix string
	Now               func() time.Time

	Charges     []paghiper.ChargeRequest
	StatusCalls int
}

func NewGateway() *Gateway {
	return &Gateway{TransactionPrefix: "TX-", Now: time.Now}
}

func (g *Gateway) CreateCharge(ctx context.Context, req paghiper.ChargeRequest) (*paghiper.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if req.Method == paghiper.MethodPix && req.AmountCents < paghiper.MinimumPixAmountCents {
		return nil, paghiper.ErrBelowMinimumAmount
	}
	g.Charges = append(g.Charges, req)
	if g.ChargeErr != nil {
		return nil, g.ChargeErr
	}

	txID := g.TransactionPrefix + req.OrderID
	res := &paghiper.ChargeResult{
		TransactionID: txID,
		OrderID:       req.OrderID,
		DueDate:       g.Now().AddDate(0, 0, req.DaysDueDate),
		Raw: map[string]interface{}{
			"transaction_id": txID,
			"order_id":       req.OrderID,
		},
	}
	code := "000201" + req.OrderID
	if req.Method == paghiper.MethodBoleto {
		line := "34191.79001 01043.510047"
		res.Instructions = &paghiper.BoletoInstructions{DigitableLine: &line}
	} else {
		res.Instructions = &paghiper.PixInstructions{EMV: &code}
	}
	return res, nil
}

func (g *Gateway) QueryStatus(ctx context.Context, transactionID string, method paghiper.Method) (*paghiper.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StatusCalls++
	if g.StatusErr != nil {
		return nil, g.StatusErr
	}
	if g.StatusResult == nil {
		return nil, nil
	}
	out := *g.StatusResult
	out.TransactionID = transactionID
	return &out, nil
}

// ChargeCount returns how many charges reached the processor.
func (g *Gateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}

var (
	_ repository.PlanOrderRepository          = (*Orders)(nil)
	_ repository.TenantSubscriptionRepository = (*Subscriptions)(nil)
	_ repository.TenantRepository             = (*Tenants)(nil)
	_ repository.WebhookEventRepository       = (*WebhookEvents)(nil)
)
