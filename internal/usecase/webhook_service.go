package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/domain/gateway"
	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
)

// EventKind is the closed set of gateway event kinds the reconciler
// handles. Everything else maps to EventUnknown and is acknowledged
// without side effects.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCustomerSubscriptionUpdated
	EventCustomerSubscriptionDeleted
	EventCustomerUpdated
	EventCustomerDeleted
)

// KindOf maps a raw gateway event type string to an EventKind. Creation
// events are not mapped: a subscription created through this system is
// already mirrored locally, and one created elsewhere is untracked.
func KindOf(eventType string) EventKind {
	switch eventType {
	case "customer.subscription.updated":
		return EventCustomerSubscriptionUpdated
	case "customer.subscription.deleted":
		return EventCustomerSubscriptionDeleted
	case "customer.updated":
		return EventCustomerUpdated
	case "customer.deleted":
		return EventCustomerDeleted
	default:
		return EventUnknown
	}
}

// WebhookService applies asynchronous gateway events to local state. Every
// handler is idempotent: webhook delivery is at least once and events may
// arrive out of order, so each handler recomputes local state from the
// event rather than assuming a prior state.
type WebhookService struct {
	subscriptionRepo repository.SubscriptionRepository
	customerRepo     repository.CustomerRepository
	customers        *CustomerService
	locker           *SubscriptionLocker
	logger           *zap.Logger
}

func NewWebhookService(
	subscriptionRepo repository.SubscriptionRepository,
	customerRepo repository.CustomerRepository,
	customers *CustomerService,
	locker *SubscriptionLocker,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		subscriptionRepo: subscriptionRepo,
		customerRepo:     customerRepo,
		customers:        customers,
		locker:           locker,
		logger:           logger,
	}
}

// HandleSubscriptionUpdated reconciles a subscription created/updated
// event. Unknown customers or subscriptions are acknowledged as no-ops;
// the event is presumed to concern state this system does not track.
func (s *WebhookService) HandleSubscriptionUpdated(ctx context.Context, event *gateway.Subscription) error {
	customer, err := s.customerRepo.GetByStripeID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up event customer: %w", err)
	}
	if customer == nil {
		return nil
	}

	unlock := s.locker.Lock(event.ID)
	defer unlock()

	sub, err := s.subscriptionRepo.GetByStripeID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to look up event subscription: %w", err)
	}
	if sub == nil || sub.CustomerID != customer.ID {
		return nil
	}

	// incomplete_expired is terminal: the first payment permanently
	// failed and the gateway discarded the subscription.
	if event.Status == model.StatusIncompleteExpired {
		for i := range sub.Items {
			if err := s.subscriptionRepo.DeleteItem(ctx, sub.Items[i].ID); err != nil {
				return fmt.Errorf("failed to purge subscription item: %w", err)
			}
		}
		if err := s.subscriptionRepo.Delete(ctx, sub.ID); err != nil {
			return fmt.Errorf("failed to purge expired subscription: %w", err)
		}
		s.logger.Info("purged incomplete_expired subscription",
			zap.String("stripe_id", event.ID))
		return nil
	}

	if event.PlanID != "" {
		plan := event.PlanID
		quantity := event.Quantity
		sub.StripePlan = &plan
		sub.Quantity = &quantity
	} else {
		sub.StripePlan = nil
		sub.Quantity = nil
	}

	// Trial end is only overwritten when the event carries a different
	// value than the stored one.
	if event.TrialEnd != 0 {
		trialEnd := time.Unix(event.TrialEnd, 0)
		if sub.TrialEndsAt == nil || !sub.TrialEndsAt.Equal(trialEnd) {
			sub.TrialEndsAt = &trialEnd
		}
	}

	if event.CancelAtPeriodEnd {
		if sub.OnTrial() {
			endsAt := *sub.TrialEndsAt
			sub.EndsAt = &endsAt
		} else {
			endsAt := time.Unix(event.CurrentPeriodEnd, 0)
			sub.EndsAt = &endsAt
		}
	} else {
		sub.EndsAt = nil
	}

	sub.StripeStatus = event.Status
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist reconciled subscription: %w", err)
	}

	// A nil item list means the payload carried no items key at all;
	// pruning on it would wipe every local item.
	if event.Items == nil {
		return nil
	}
	return s.syncItems(ctx, sub, event.Items)
}

// syncItems mirrors the engine's set-reconciliation: items present in the
// event but missing locally are created, local items absent from the
// event are destroyed.
func (s *WebhookService) syncItems(ctx context.Context, sub *model.Subscription, remote []gateway.Item) error {
	plans := make([]string, 0, len(remote))
	for _, ri := range remote {
		plans = append(plans, ri.PlanID)

		if existing := sub.FindItem(ri.PlanID); existing != nil {
			existing.StripeID = ri.ID
			existing.Quantity = ri.Quantity
			if err := s.subscriptionRepo.UpdateItem(ctx, existing); err != nil {
				return fmt.Errorf("failed to update subscription item: %w", err)
			}
			continue
		}

		item := model.SubscriptionItem{
			SubscriptionID: sub.ID,
			StripeID:       ri.ID,
			StripePlan:     ri.PlanID,
			Quantity:       ri.Quantity,
		}
		if err := s.subscriptionRepo.CreateItem(ctx, &item); err != nil {
			return fmt.Errorf("failed to create subscription item: %w", err)
		}
	}

	if err := s.subscriptionRepo.DeleteItemsNotInPlans(ctx, sub.ID, plans); err != nil {
		return fmt.Errorf("failed to prune subscription items: %w", err)
	}
	return nil
}

// HandleSubscriptionDeleted marks the matching local subscription
// canceled. Items are left in place.
func (s *WebhookService) HandleSubscriptionDeleted(ctx context.Context, event *gateway.Subscription) error {
	customer, err := s.customerRepo.GetByStripeID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to look up event customer: %w", err)
	}
	if customer == nil {
		return nil
	}

	unlock := s.locker.Lock(event.ID)
	defer unlock()

	sub, err := s.subscriptionRepo.GetByStripeID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to look up event subscription: %w", err)
	}
	if sub == nil || sub.CustomerID != customer.ID {
		return nil
	}
	if sub.StripeStatus == model.StatusCanceled && sub.EndsAt != nil {
		return nil
	}

	return s.markAsCanceled(ctx, sub)
}

// HandleCustomerUpdated refreshes the mirrored default payment method.
func (s *WebhookService) HandleCustomerUpdated(ctx context.Context, customerStripeID string) error {
	customer, err := s.customerRepo.GetByStripeID(ctx, customerStripeID)
	if err != nil {
		return fmt.Errorf("failed to look up event customer: %w", err)
	}
	if customer == nil {
		return nil
	}
	return s.customers.RefreshDefaultPaymentMethod(ctx, customer)
}

// HandleCustomerDeleted cancels every subscription the customer owns and
// clears the gateway identity and card-display mirror. The gateway has
// already discarded the remote objects, so the cancellation is local.
func (s *WebhookService) HandleCustomerDeleted(ctx context.Context, customerStripeID string) error {
	customer, err := s.customerRepo.GetByStripeID(ctx, customerStripeID)
	if err != nil {
		return fmt.Errorf("failed to look up event customer: %w", err)
	}
	if customer == nil {
		return nil
	}

	subs, err := s.subscriptionRepo.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return fmt.Errorf("failed to list customer subscriptions: %w", err)
	}
	for i := range subs {
		sub := &subs[i]
		unlock := s.locker.Lock(sub.StripeID)
		sub.TrialEndsAt = nil
		err := s.markAsCanceled(ctx, sub)
		unlock()
		if err != nil {
			return err
		}
	}

	customer.StripeID = nil
	customer.TrialEndsAt = nil
	customer.CardBrand = nil
	customer.CardLastFour = nil
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return fmt.Errorf("failed to clear customer gateway identity: %w", err)
	}
	return nil
}

func (s *WebhookService) markAsCanceled(ctx context.Context, sub *model.Subscription) error {
	now := time.Now()
	sub.StripeStatus = model.StatusCanceled
	sub.EndsAt = &now
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}
	return nil
}
