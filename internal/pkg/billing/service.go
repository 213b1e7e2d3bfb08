package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/TableFox/app/models"
	"github.com/ManuelReschke/TableFox/app/repository"
	"github.com/ManuelReschke/TableFox/internal/pkg/metrics"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service drives the plan order lifecycle: checkout, status reconciliation
// and subscription activation.
type Service struct {
	orders        repository.PlanOrderRepository
	subscriptions repository.TenantSubscriptionRepository
	webhookEvents repository.WebhookEventRepository
	gateway       ChargeGateway
	catalog       Catalog
	notifier      Notifier
	now           func() time.Time
}

type Option func(*Service)

// WithCatalog replaces the default plan catalog.
func WithCatalog(c Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a billing service from injected repositories.
func NewService(repos *repository.Repositories, gateway ChargeGateway, opts ...Option) *Service {
	s := &Service{
		orders:        repos.PlanOrder,
		subscriptions: repos.Subscription,
		webhookEvents: repos.WebhookEvent,
		gateway:       gateway,
		catalog:       DefaultCatalog(),
		notifier:      noopNotifier{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway ChargeGateway, opts ...Option) *Service {
	return NewService(repository.NewRepositories(db), gateway, opts...)
}

// Checkout creates a pending order for the tenant and a matching charge with
// the processor. When the processor refuses the charge the order is kept in
// failed state and the processor error is returned.
func (s *Service) Checkout(ctx context.Context, tenantID string, payload CheckoutPayload, callbackBaseURL string) (*CheckoutResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("tenant_id is required")
	}
	if err := payload.Validate(); err != nil {
		metrics.ObserveCheckout(methodLabel(payload.Method), "validation_error")
		return nil, err
	}

	plan, err := s.catalog.Lookup(payload.PlanType)
	if err != nil {
		metrics.ObserveCheckout(methodLabel(payload.Method), "unknown_plan")
		return nil, err
	}
	if payload.Method == models.PaymentMethodPix && plan.PriceCents < paghiper.MinimumPixAmountCents {
		metrics.ObserveCheckout(methodLabel(payload.Method), "below_minimum")
		return nil, ErrBelowMinimumAmount
	}

	order := &models.PlanOrder{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		PlanType:          payload.PlanType,
		CustomerName:      payload.CustomerName,
		CustomerEmail:     payload.CustomerEmail,
		CustomerDocument:  payload.CustomerDocument,
		CustomerPhone:     payload.CustomerPhone,
		PaymentMethod:     payload.Method,
		AmountCents:       plan.PriceCents,
		ValidityDays:      plan.ValidityDays,
		Status:            models.PlanOrderStatusPending,
		ProcessorResponse: models.ProcessorMetadata{}.WithTenant(tenantID),
	}
	if err := s.orders.Create(order); err != nil {
		metrics.ObserveCheckout(methodLabel(payload.Method), "store_error")
		return nil, fmt.Errorf("create plan order: %w", err)
	}
	s.appendHistory(order.ID, "", models.PlanOrderStatusPending, models.StatusSourceCheckout)

	charge, err := s.gateway.CreateCharge(ctx, paghiper.ChargeRequest{
		OrderID:         order.ID,
		Description:     plan.Name,
		AmountCents:     plan.PriceCents,
		Method:          paghiper.Method(payload.Method),
		PayerName:       payload.CustomerName,
		PayerEmail:      payload.CustomerEmail,
		PayerDocument:   payload.CustomerDocument,
		PayerPhone:      payload.CustomerPhone,
		NotificationURL: strings.TrimRight(callbackBaseURL, "/") + WebhookPath,
		DaysDueDate:     plan.ValidityDays,
	})
	if err != nil {
		log.Warnf("[Billing] Charge creation failed for order %s: %v", order.ID, err)
		if _, ferr := s.UpdateStatus(ctx, order.ID, models.PlanOrderStatusFailed, StatusUpdates{Source: models.StatusSourceCheckout}); ferr != nil {
			log.Errorf("[Billing] Failed to mark order %s as failed: %v", order.ID, ferr)
		}
		metrics.ObserveCheckout(methodLabel(payload.Method), "charge_failed")
		return nil, err
	}

	if charge.OrderID != "" {
		order.ProcessorOrderID = &charge.OrderID
	}
	if charge.TransactionID != "" {
		order.ProcessorTransactionID = &charge.TransactionID
	}
	dueDate := charge.DueDate
	order.DueDate = &dueDate
	order.ProcessorResponse = models.ProcessorMetadata(charge.Raw).WithTenant(tenantID)
	if err := s.orders.Update(order); err != nil {
		log.Errorf("[Billing] Charge %s created but order %s could not be updated: %v", charge.TransactionID, order.ID, err)
		// The buyer never sees the instructions, so the order is closed with
		// the transaction id kept for manual reconciliation.
		if _, ferr := s.UpdateStatus(ctx, order.ID, models.PlanOrderStatusFailed, StatusUpdates{
			Source:            models.StatusSourceCheckout,
			ProcessorResponse: models.ProcessorMetadata{"processor_transaction_id": charge.TransactionID},
		}); ferr != nil {
			log.Errorf("[Billing] Failed to mark order %s (transaction %s) as failed: %v", order.ID, charge.TransactionID, ferr)
		}
		metrics.ObserveCheckout(methodLabel(payload.Method), "store_error")
		return nil, fmt.Errorf("update plan order: %w", err)
	}

	log.Infof("[Billing] Checkout order %s tenant %s plan %s via %s", order.ID, tenantID, order.PlanType, order.PaymentMethod)
	metrics.ObserveCheckout(methodLabel(payload.Method), metrics.ResultOK)
	return &CheckoutResult{Order: order, Instructions: charge.Instructions}, nil
}

// UpdateStatus moves an order to newStatus. Terminal states are final:
// re-applying the same terminal status is accepted and converges, any other
// change after a terminal state returns ErrInvalidTransition. The write is
// conditional on the status that was read, so of two racing transitions
// only one lands. Every paid application re-runs subscription activation.
func (s *Service) UpdateStatus(ctx context.Context, orderID, newStatus string, updates StatusUpdates) (*models.PlanOrder, error) {
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))
	if !models.IsValidPlanOrderStatus(newStatus) {
		return nil, ErrInvalidStatus
	}
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if order.IsTerminal() && from != newStatus {
		return order, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, newStatus)
	}
	if from == models.PlanOrderStatusPending && newStatus == models.PlanOrderStatusPending {
		return order, nil
	}

	now := s.now()
	order.Status = newStatus
	switch newStatus {
	case models.PlanOrderStatusPaid:
		if updates.PaidAt != nil {
			order.PaidAt = updates.PaidAt
		} else if order.PaidAt == nil {
			order.PaidAt = &now
		}
	case models.PlanOrderStatusCancelled:
		if updates.CancelledAt != nil {
			order.CancelledAt = updates.CancelledAt
		} else if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	}
	if len(updates.ProcessorResponse) > 0 {
		merged := models.ProcessorMetadata{}
		for k, v := range order.ProcessorResponse {
			merged[k] = v
		}
		for k, v := range updates.ProcessorResponse {
			merged[k] = v
		}
		order.ProcessorResponse = merged.WithTenant(order.ResolvedTenantID())
	}
	written, err := s.orders.UpdateIfStatus(order, from)
	if err != nil {
		return nil, fmt.Errorf("update plan order status: %w", err)
	}
	if !written {
		// Another writer moved the order since it was read.
		current, err := s.getOrder(orderID)
		if err != nil {
			return nil, err
		}
		if current.Status != newStatus {
			return current, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, newStatus)
		}
		order = current
		from = current.Status
	}

	transitioned := from != newStatus
	if transitioned {
		source := updates.Source
		if source == "" {
			source = models.StatusSourceWebhook
		}
		s.appendHistory(order.ID, from, newStatus, source)
		log.Infof("[Billing] Order %s %s -> %s (%s)", order.ID, from, newStatus, source)
	}

	if newStatus == models.PlanOrderStatusPaid {
		res := s.activateSubscription(ctx, order)
		metrics.ObserveActivation(res.err == nil)
		switch {
		case res.err != nil:
			log.Errorf("[Billing] Subscription activation for order %s failed: %v", order.ID, res.err)
		case transitioned:
			if res.created {
				log.Infof("[Billing] Created subscription %s for tenant %s", res.subscription.ID, res.subscription.TenantID)
			}
			s.notifyPaid(ctx, order, res.subscription)
		}
	}
	return order, nil
}

type activationResult struct {
	subscription *models.TenantSubscription
	created      bool
	err          error
}

// activateSubscription grants the order's plan to its tenant from now until
// now + validity. The end date is absolute so repeated activations converge.
func (s *Service) activateSubscription(ctx context.Context, order *models.PlanOrder) activationResult {
	_ = ctx
	tenantID := order.ResolvedTenantID()
	if meta := order.ProcessorResponse.TenantID(); meta != "" && order.TenantID != "" && meta != order.TenantID {
		log.Warnf("[Billing] Order %s tenant %s disagrees with processor metadata tenant %s", order.ID, order.TenantID, meta)
	}
	if tenantID == "" {
		return activationResult{err: fmt.Errorf("%w: order %s has no tenant", ErrSubscriptionActivationFailed, order.ID)}
	}

	validity := order.ValidityDays
	if validity <= 0 {
		validity = DefaultValidityDays
	}
	start := s.now()
	end := start.AddDate(0, 0, validity)

	sub, err := s.subscriptions.GetByTenantID(tenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return activationResult{err: fmt.Errorf("%w: %v", ErrSubscriptionActivationFailed, err)}
	}
	if sub == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		sub = &models.TenantSubscription{
			ID:                    uuid.NewString(),
			TenantID:              tenantID,
			PlanType:              order.PlanType,
			SubscriptionStartDate: &start,
			SubscriptionEndDate:   &end,
			IsActive:              true,
			IsTrial:               false,
		}
		if err := s.subscriptions.Create(sub); err != nil {
			return activationResult{err: fmt.Errorf("%w: %v", ErrSubscriptionActivationFailed, err)}
		}
		return activationResult{subscription: sub, created: true}
	}

	sub.PlanType = order.PlanType
	sub.SubscriptionStartDate = &start
	sub.SubscriptionEndDate = &end
	sub.IsActive = true
	sub.IsTrial = false
	if err := s.subscriptions.Update(sub); err != nil {
		return activationResult{err: fmt.Errorf("%w: %v", ErrSubscriptionActivationFailed, err)}
	}
	return activationResult{subscription: sub}
}

func (s *Service) notifyPaid(ctx context.Context, order *models.PlanOrder, sub *models.TenantSubscription) {
	confirmation := PaymentConfirmation{
		OrderID:       order.ID,
		TenantID:      order.ResolvedTenantID(),
		PlanType:      order.PlanType,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		AmountCents:   order.AmountCents,
	}
	if plan, err := s.catalog.Lookup(order.PlanType); err == nil {
		confirmation.PlanName = plan.Name
	}
	if order.PaidAt != nil {
		confirmation.PaidAt = *order.PaidAt
	}
	if sub != nil && sub.SubscriptionEndDate != nil {
		confirmation.SubscriptionEnd = *sub.SubscriptionEndDate
	}
	if err := s.notifier.PaymentConfirmed(ctx, confirmation); err != nil {
		log.Warnf("[Billing] Payment confirmation for order %s not queued: %v", order.ID, err)
	}
}

// GetOrderStatus returns the order's public status. A pending order with a
// processor transaction is reconciled against the processor first, and a
// paid order whose subscription is not in effect is repaired.
func (s *Service) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatusView, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.PlanOrderStatusPending && order.ProcessorTransactionID != nil {
		order = s.reconcileWithProcessor(ctx, order)
	}
	if order.Status == models.PlanOrderStatusPaid {
		order = s.repairSubscription(ctx, order)
	}

	return &OrderStatusView{
		ID:          order.ID,
		Status:      order.Status,
		PaidAt:      order.PaidAt,
		CancelledAt: order.CancelledAt,
	}, nil
}

func (s *Service) reconcileWithProcessor(ctx context.Context, order *models.PlanOrder) *models.PlanOrder {
	txID := *order.ProcessorTransactionID
	res, err := s.gateway.QueryStatus(ctx, txID, paghiper.Method(order.PaymentMethod))
	if err != nil {
		log.Warnf("[Billing] Status query for order %s failed: %v", order.ID, err)
		return order
	}
	if res == nil {
		return order
	}
	mapped := MapProcessorStatus(res.Status)
	if mapped == "" {
		return order
	}

	updated, err := s.UpdateStatus(ctx, order.ID, mapped, StatusUpdates{
		PaidAt: res.PaidDate,
		Source: models.StatusSourcePoll,
	})
	if err != nil {
		log.Warnf("[Billing] Applying processor status %q to order %s failed: %v", res.Status, order.ID, err)
		return order
	}
	return updated
}

// repairSubscription re-applies a paid order when its tenant's subscription
// does not reflect it, as long as the order's own validity has not run out.
func (s *Service) repairSubscription(ctx context.Context, order *models.PlanOrder) *models.PlanOrder {
	now := s.now()
	paidAt := order.UpdatedAt
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	validity := order.ValidityDays
	if validity <= 0 {
		validity = DefaultValidityDays
	}
	if !paidAt.AddDate(0, 0, validity).After(now) {
		return order
	}

	tenantID := order.ResolvedTenantID()
	sub, err := s.subscriptions.GetByTenantID(tenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] Subscription lookup for tenant %s failed: %v", tenantID, err)
		return order
	}
	if err == nil && subscriptionReflectsPaidOrder(sub, now) {
		return order
	}

	log.Warnf("[Billing] Order %s is paid but tenant %s has no subscription in effect, repairing", order.ID, tenantID)
	updated, err := s.UpdateStatus(ctx, order.ID, models.PlanOrderStatusPaid, StatusUpdates{
		PaidAt: order.PaidAt,
		Source: models.StatusSourcePoll,
	})
	if err != nil {
		metrics.ObserveRepair(false)
		log.Errorf("[Billing] Repair of order %s failed: %v", order.ID, err)
		return order
	}
	metrics.ObserveRepair(true)
	return updated
}

func methodLabel(method string) string {
	switch method {
	case models.PaymentMethodPix, models.PaymentMethodBoleto:
		return method
	default:
		return "unknown"
	}
}

func subscriptionReflectsPaidOrder(sub *models.TenantSubscription, now time.Time) bool {
	return sub != nil && sub.IsActive && !sub.IsTrial && sub.IsCurrentlyActive(now)
}

// ListOrders returns the tenant's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, tenantID string, offset, limit int) ([]models.PlanOrder, error) {
	_ = ctx
	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("tenant_id is required")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.orders.ListByTenant(tenantID, offset, limit)
}

// GetSubscription returns the tenant's subscription with its derived state.
func (s *Service) GetSubscription(ctx context.Context, tenantID string) (*SubscriptionView, error) {
	_ = ctx
	sub, err := s.subscriptions.GetByTenantID(strings.TrimSpace(tenantID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &SubscriptionView{
		TenantSubscription: sub,
		IsCurrentlyActive:  sub.IsCurrentlyActive(s.now()),
	}, nil
}

// NotificationOutcome describes what a processor notification led to.
type NotificationOutcome string

const (
	OutcomeApplied         NotificationOutcome = "applied"
	OutcomeIgnored         NotificationOutcome = "ignored"
	OutcomeOrderNotFound   NotificationOutcome = "order_not_found"
	OutcomeStatusUnknown   NotificationOutcome = "status_unknown"
	OutcomeDuplicate       NotificationOutcome = "duplicate"
	OutcomeRejected        NotificationOutcome = "rejected"
	OutcomeInvalidPayload  NotificationOutcome = "invalid_payload"
	OutcomeProcessingError NotificationOutcome = "processing_error"
)

// HandleNotification applies a parsed processor notification. Only failures
// to persist the status change are returned; everything else is reported
// through the outcome so the delivery can still be acknowledged.
func (s *Service) HandleNotification(ctx context.Context, n *Notification) (NotificationOutcome, error) {
	order, err := s.findNotifiedOrder(n)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warnf("[Billing] Notification for unknown order (transaction=%q order=%q)", n.TransactionID, n.OrderID)
			return OutcomeOrderNotFound, nil
		}
		return OutcomeProcessingError, err
	}

	status := n.Status
	paidDate := n.PaidDate
	if n.NeedsStatusLookup() {
		txID := n.TransactionID
		if order.ProcessorTransactionID != nil {
			txID = *order.ProcessorTransactionID
		}
		res, qerr := s.gateway.QueryStatus(ctx, txID, paghiper.Method(order.PaymentMethod))
		if qerr != nil {
			log.Warnf("[Billing] Status lookup for notified order %s failed: %v", order.ID, qerr)
			return OutcomeStatusUnknown, nil
		}
		if res == nil {
			return OutcomeStatusUnknown, nil
		}
		status = res.Status
		paidDate = res.PaidDate
	}

	mapped := MapProcessorStatus(status)
	if mapped == "" {
		return OutcomeIgnored, nil
	}

	_, err = s.UpdateStatus(ctx, order.ID, mapped, StatusUpdates{
		PaidAt: paidDate,
		Source: models.StatusSourceWebhook,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Warnf("[Billing] Ignoring notification for order %s: %v", order.ID, err)
			return OutcomeIgnored, nil
		}
		return OutcomeProcessingError, err
	}
	return OutcomeApplied, nil
}

func (s *Service) findNotifiedOrder(n *Notification) (*models.PlanOrder, error) {
	if n.TransactionID != "" {
		order, err := s.orders.GetByProcessorTransactionID(n.TransactionID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if n.OrderID != "" {
		return s.getOrder(n.OrderID)
	}
	return nil, ErrOrderNotFound
}

// RecordWebhookEvent persists a processor notification idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderPagHiper,
		ProviderEventID: eventID,
		TransactionID:   strings.TrimSpace(in.TransactionID),
		PayloadJSON:     in.PayloadJSON,
		APIKeyValid:     in.APIKeyValid,
	}
	return s.webhookEvents.CreateIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.webhookEvents.MarkProcessed(webhookEventID, errMsg)
}

func (s *Service) getOrder(orderID string) (*models.PlanOrder, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orders.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) appendHistory(orderID, from, to, source string) {
	entry := &models.PlanOrderStatusHistory{
		PlanOrderID: orderID,
		FromStatus:  from,
		ToStatus:    to,
		Source:      source,
	}
	if err := s.orders.AppendStatusHistory(entry); err != nil {
		log.Warnf("[Billing] Failed to record status history for order %s: %v", orderID, err)
	}
}
