package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/config"
	domainerrors "github.com/subware/billing-service/internal/domain/errors"
	"github.com/subware/billing-service/internal/domain/gateway"
	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
)

// Proration behaviors for remote mutations.
const (
	ProrationNone             = "none"
	ProrationCreateProrations = "create_prorations"
	ProrationAlwaysInvoice    = "always_invoice"
)

// Payment behaviors for remote mutations.
const (
	PaymentBehaviorAllowIncomplete     = "allow_incomplete"
	PaymentBehaviorPendingIfIncomplete = "pending_if_incomplete"
	PaymentBehaviorErrorIfIncomplete   = "error_if_incomplete"
)

// SubscriptionService owns every operation that changes what a
// subscription bills for. Each operation follows the same shape: guard,
// remote mutation, local mutation, payment post-check.
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	customerRepo     repository.CustomerRepository
	gateway          gateway.Gateway
	billing          config.BillingConfig
	locker           *SubscriptionLocker
	logger           *zap.Logger
}

func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	customerRepo repository.CustomerRepository,
	gw gateway.Gateway,
	billing config.BillingConfig,
	locker *SubscriptionLocker,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		customerRepo:     customerRepo,
		gateway:          gw,
		billing:          billing,
		locker:           locker,
		logger:           logger,
	}
}

// DeactivatePastDue exposes the configured past-due policy for the Active
// predicate.
func (s *SubscriptionService) DeactivatePastDue() bool {
	return s.billing.DeactivatePastDue
}

// Subscription returns the customer's newest subscription with the given
// name, or (nil, nil) when none exists.
func (s *SubscriptionService) Subscription(ctx context.Context, customerID uuid.UUID, name string) (*model.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByCustomerAndName(ctx, customerID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// Subscribed reports whether the customer has a valid subscription with
// the given name, optionally restricted to a plan.
func (s *SubscriptionService) Subscribed(ctx context.Context, customerID uuid.UUID, name, plan string) (bool, error) {
	sub, err := s.Subscription(ctx, customerID, name)
	if err != nil {
		return false, err
	}
	if sub == nil || !sub.Valid(s.billing.DeactivatePastDue) {
		return false, nil
	}
	if plan == "" {
		return true, nil
	}
	return sub.HasPlan(plan), nil
}

// SubscribedToPlan reports whether the customer has a valid subscription
// with the given name billing any of the given plans.
func (s *SubscriptionService) SubscribedToPlan(ctx context.Context, customerID uuid.UUID, name string, plans ...string) (bool, error) {
	sub, err := s.Subscription(ctx, customerID, name)
	if err != nil {
		return false, err
	}
	if sub == nil || !sub.Valid(s.billing.DeactivatePastDue) {
		return false, nil
	}
	for _, plan := range plans {
		if sub.HasPlan(plan) {
			return true, nil
		}
	}
	return false, nil
}

// OnPlan reports whether any of the customer's valid subscriptions bills
// the given plan.
func (s *SubscriptionService) OnPlan(ctx context.Context, customerID uuid.UUID, plan string) (bool, error) {
	subs, err := s.subscriptionRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	for i := range subs {
		if subs[i].Valid(s.billing.DeactivatePastDue) && subs[i].HasPlan(plan) {
			return true, nil
		}
	}
	return false, nil
}

// OnTrial reports whether the customer is trialing: either on a generic
// account-level trial or on a subscription trial with the given name and
// optional plan.
func (s *SubscriptionService) OnTrial(ctx context.Context, customerID uuid.UUID, name, plan string) (bool, error) {
	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer != nil && customer.OnGenericTrial() {
		return true, nil
	}
	sub, err := s.Subscription(ctx, customerID, name)
	if err != nil {
		return false, err
	}
	if sub == nil || !sub.OnTrial() {
		return false, nil
	}
	if plan == "" {
		return true, nil
	}
	return sub.HasPlan(plan), nil
}

func (s *SubscriptionService) ownerOf(ctx context.Context, sub *model.Subscription) (*model.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, sub.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription owner: %w", err)
	}
	if customer == nil {
		return nil, domainerrors.ErrCustomerNotCreated
	}
	return customer, nil
}

// syncItems reconciles the local item rows against the remote item set by
// set-difference: items missing locally are created, items absent from the
// remote set are deleted. Not a diff-patch.
func (s *SubscriptionService) syncItems(ctx context.Context, sub *model.Subscription, remote []gateway.Item) error {
	plans := make([]string, 0, len(remote))
	fresh := make([]model.SubscriptionItem, 0, len(remote))

	for _, ri := range remote {
		plans = append(plans, ri.PlanID)

		if existing := sub.FindItem(ri.PlanID); existing != nil {
			existing.StripeID = ri.ID
			existing.Quantity = ri.Quantity
			if err := s.subscriptionRepo.UpdateItem(ctx, existing); err != nil {
				return fmt.Errorf("failed to update subscription item: %w", err)
			}
			fresh = append(fresh, *existing)
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
		fresh = append(fresh, item)
	}

	if err := s.subscriptionRepo.DeleteItemsNotInPlans(ctx, sub.ID, plans); err != nil {
		return fmt.Errorf("failed to prune subscription items: %w", err)
	}

	sub.Items = fresh
	return nil
}

// Change opens a mutation handle on the subscription. Modifiers on the
// handle set the proration and payment behavior consumed by every remote
// mutation; defaults are create_prorations and allow_incomplete.
func (s *SubscriptionService) Change(sub *model.Subscription) *SubscriptionChange {
	return &SubscriptionChange{
		svc:               s,
		sub:               sub,
		prorationBehavior: ProrationCreateProrations,
		paymentBehavior:   PaymentBehaviorAllowIncomplete,
	}
}

// SubscriptionChange is a mutation handle bound to one subscription.
type SubscriptionChange struct {
	svc                *SubscriptionService
	sub                *model.Subscription
	prorationBehavior  string
	paymentBehavior    string
	billingCycleAnchor int64
}

func (c *SubscriptionChange) NoProrate() *SubscriptionChange {
	c.prorationBehavior = ProrationNone
	return c
}

func (c *SubscriptionChange) Prorate() *SubscriptionChange {
	c.prorationBehavior = ProrationCreateProrations
	return c
}

func (c *SubscriptionChange) AlwaysInvoice() *SubscriptionChange {
	c.prorationBehavior = ProrationAlwaysInvoice
	return c
}

func (c *SubscriptionChange) AllowPaymentFailures() *SubscriptionChange {
	c.paymentBehavior = PaymentBehaviorAllowIncomplete
	return c
}

func (c *SubscriptionChange) PendingIfPaymentFails() *SubscriptionChange {
	c.paymentBehavior = PaymentBehaviorPendingIfIncomplete
	return c
}

func (c *SubscriptionChange) ErrorIfPaymentFails() *SubscriptionChange {
	c.paymentBehavior = PaymentBehaviorErrorIfIncomplete
	return c
}

func (c *SubscriptionChange) AnchorBillingCycleOn(anchor time.Time) *SubscriptionChange {
	c.billingCycleAnchor = anchor.Unix()
	return c
}

// SkipTrial clears the trial timestamp on the in-memory record without a
// remote call. The next persisted mutation carries it.
func (c *SubscriptionChange) SkipTrial() *SubscriptionChange {
	c.sub.TrialEndsAt = nil
	return c
}

func (c *SubscriptionChange) guardAgainstIncomplete() error {
	if c.sub.Incomplete() {
		return domainerrors.ErrSubscriptionIncomplete
	}
	return nil
}

// IncrementQuantity raises the quantity by count. Plan is required when
// the subscription bills multiple plans.
func (c *SubscriptionChange) IncrementQuantity(ctx context.Context, count int64, plan string) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	if plan != "" {
		item := c.sub.FindItem(plan)
		if item == nil {
			return domainerrors.ErrPlanNotFound
		}
		return c.UpdateItemQuantity(ctx, plan, item.Quantity+count)
	}
	if c.sub.HasMultiplePlans() {
		return domainerrors.ErrPlanRequired
	}
	var current int64
	if c.sub.Quantity != nil {
		current = *c.sub.Quantity
	}
	return c.UpdateQuantity(ctx, current+count, "")
}

// DecrementQuantity lowers the quantity by count, flooring at 1.
func (c *SubscriptionChange) DecrementQuantity(ctx context.Context, count int64, plan string) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	if plan != "" {
		item := c.sub.FindItem(plan)
		if item == nil {
			return domainerrors.ErrPlanNotFound
		}
		return c.UpdateItemQuantity(ctx, plan, floorQuantity(item.Quantity-count))
	}
	if c.sub.HasMultiplePlans() {
		return domainerrors.ErrPlanRequired
	}
	var current int64
	if c.sub.Quantity != nil {
		current = *c.sub.Quantity
	}
	return c.UpdateQuantity(ctx, floorQuantity(current-count), "")
}

func floorQuantity(quantity int64) int64 {
	if quantity < 1 {
		return 1
	}
	return quantity
}

// UpdateQuantity sets the quantity outright. With a plan it delegates to
// that plan's item; without one the subscription must bill a single plan
// and the quantity is sent through that plan's item, since the gateway
// carries no top-level quantity.
func (c *SubscriptionChange) UpdateQuantity(ctx context.Context, quantity int64, plan string) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	if plan != "" {
		return c.UpdateItemQuantity(ctx, plan, quantity)
	}
	if c.sub.HasMultiplePlans() {
		return domainerrors.ErrPlanRequired
	}
	if len(c.sub.Items) == 0 {
		return domainerrors.ErrPlanNotFound
	}
	item := &c.sub.Items[0]

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	updated, err := c.svc.gateway.UpdateSubscription(ctx, c.sub.StripeID, gateway.SubscriptionUpdateParams{
		Items: []gateway.ItemParams{{
			ID:       item.StripeID,
			Quantity: quantity,
		}},
		PaymentBehavior:   c.paymentBehavior,
		ProrationBehavior: c.prorationBehavior,
	})
	if err != nil {
		return fmt.Errorf("failed to update subscription quantity: %w", err)
	}

	q := updated.Quantity
	c.sub.Quantity = &q
	c.sub.StripeStatus = updated.Status
	if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
		return fmt.Errorf("failed to persist subscription quantity: %w", err)
	}
	item.Quantity = q
	if err := c.svc.subscriptionRepo.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("failed to persist subscription item: %w", err)
	}
	return nil
}

// UpdateItemQuantity sets the quantity of one plan item. The top-level
// quantity shortcut follows when the subscription bills a single plan.
func (c *SubscriptionChange) UpdateItemQuantity(ctx context.Context, plan string, quantity int64) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	item := c.sub.FindItem(plan)
	if item == nil {
		return domainerrors.ErrPlanNotFound
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	updated, err := c.svc.gateway.UpdateSubscriptionItem(ctx, item.StripeID, gateway.ItemUpdateParams{
		Quantity:          &quantity,
		PaymentBehavior:   c.paymentBehavior,
		ProrationBehavior: c.prorationBehavior,
	})
	if err != nil {
		return fmt.Errorf("failed to update subscription item quantity: %w", err)
	}

	item.Quantity = updated.Quantity
	if err := c.svc.subscriptionRepo.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("failed to persist subscription item: %w", err)
	}

	if c.sub.HasSinglePlan() {
		q := updated.Quantity
		c.sub.Quantity = &q
		if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
			return fmt.Errorf("failed to persist subscription quantity: %w", err)
		}
	}
	return nil
}

// Swap replaces the subscription's whole plan set with the given plans.
// Remote items absent from the target set are sent as explicit deleted
// tombstones; omitting them would leave them billing. When the resulting
// status reports an incomplete payment the latest payment intent is
// validated, but the already-applied plan change is not rolled back.
func (c *SubscriptionChange) Swap(ctx context.Context, plans ...string) error {
	if len(plans) == 0 {
		return domainerrors.ErrNoPlansProvided
	}
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	owner, err := c.svc.ownerOf(ctx, c.sub)
	if err != nil {
		return err
	}

	remote, err := c.svc.gateway.GetSubscription(ctx, c.sub.StripeID)
	if err != nil {
		return fmt.Errorf("failed to fetch remote subscription: %w", err)
	}

	target := make(map[string]*gateway.ItemParams, len(plans))
	items := make([]gateway.ItemParams, 0, len(plans)+len(remote.Items))
	for _, plan := range plans {
		target[plan] = &gateway.ItemParams{
			Plan:     plan,
			TaxRates: owner.PlanTaxRatesFor(plan),
		}
	}
	if c.sub.HasSinglePlan() && c.sub.Quantity != nil && len(plans) == 1 {
		target[plans[0]].Quantity = *c.sub.Quantity
	}

	tombstones := make([]gateway.ItemParams, 0)
	for _, ri := range remote.Items {
		if ip, ok := target[ri.PlanID]; ok {
			ip.ID = ri.ID
			continue
		}
		tombstones = append(tombstones, gateway.ItemParams{ID: ri.ID, Deleted: true})
	}
	for _, plan := range plans {
		items = append(items, *target[plan])
	}
	items = append(items, tombstones...)

	params := gateway.SubscriptionUpdateParams{
		Items:               items,
		PaymentBehavior:     c.paymentBehavior,
		ProrationBehavior:   c.prorationBehavior,
		BillingCycleAnchor:  c.billingCycleAnchor,
		ExpandLatestPayment: true,
	}
	if c.paymentBehavior != PaymentBehaviorPendingIfIncomplete {
		keep := false
		params.CancelAtPeriodEnd = &keep
	}
	if c.sub.OnTrial() {
		params.TrialEnd = c.sub.TrialEndsAt.Unix()
	} else {
		params.TrialEndNow = true
	}

	updated, err := c.svc.gateway.UpdateSubscription(ctx, c.sub.StripeID, params)
	if err != nil {
		return fmt.Errorf("failed to swap subscription plans: %w", err)
	}

	c.sub.StripeStatus = updated.Status
	if updated.PlanID != "" {
		plan := updated.PlanID
		quantity := updated.Quantity
		c.sub.StripePlan = &plan
		c.sub.Quantity = &quantity
	} else {
		c.sub.StripePlan = nil
		c.sub.Quantity = nil
	}
	c.sub.EndsAt = nil
	if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
		return fmt.Errorf("failed to persist swapped subscription: %w", err)
	}
	if err := c.svc.syncItems(ctx, c.sub, updated.Items); err != nil {
		return err
	}

	if c.sub.HasIncompletePayment() && updated.LatestPaymentIntent != nil {
		if err := NewPayment(updated.LatestPaymentIntent).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SwapAndInvoice swaps and invoices the proration immediately.
func (c *SubscriptionChange) SwapAndInvoice(ctx context.Context, plans ...string) error {
	return c.AlwaysInvoice().Swap(ctx, plans...)
}

// AddPlan attaches a new plan item to the subscription. A subscription
// that billed a single plan becomes multi-plan and drops its top-level
// shortcut fields.
func (c *SubscriptionChange) AddPlan(ctx context.Context, plan string, quantity int64) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	if c.sub.HasPlan(plan) {
		return domainerrors.ErrDuplicatePlan
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	owner, err := c.svc.ownerOf(ctx, c.sub)
	if err != nil {
		return err
	}

	created, err := c.svc.gateway.CreateSubscriptionItem(ctx, c.sub.StripeID, gateway.ItemCreateParams{
		Plan:              plan,
		Quantity:          quantity,
		TaxRates:          owner.PlanTaxRatesFor(plan),
		PaymentBehavior:   c.paymentBehavior,
		ProrationBehavior: c.prorationBehavior,
	})
	if err != nil {
		return fmt.Errorf("failed to add plan to subscription: %w", err)
	}

	item := model.SubscriptionItem{
		SubscriptionID: c.sub.ID,
		StripeID:       created.ID,
		StripePlan:     created.PlanID,
		Quantity:       created.Quantity,
	}
	if err := c.svc.subscriptionRepo.CreateItem(ctx, &item); err != nil {
		return fmt.Errorf("failed to persist subscription item: %w", err)
	}
	c.sub.Items = append(c.sub.Items, item)

	if c.sub.HasSinglePlan() {
		c.sub.StripePlan = nil
		c.sub.Quantity = nil
		if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
			return fmt.Errorf("failed to persist subscription: %w", err)
		}
	}
	return nil
}

// AddPlanAndInvoice attaches a plan and invoices the proration
// immediately.
func (c *SubscriptionChange) AddPlanAndInvoice(ctx context.Context, plan string, quantity int64) error {
	return c.AlwaysInvoice().AddPlan(ctx, plan, quantity)
}

// RemovePlan detaches a plan item. The last remaining plan cannot be
// removed; cancel instead. When exactly one item remains afterward the
// subscription collapses back into single-plan mode.
func (c *SubscriptionChange) RemovePlan(ctx context.Context, plan string) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	if len(c.sub.Items) <= 1 {
		return domainerrors.ErrCannotDeleteLastPlan
	}
	item := c.sub.FindItem(plan)
	if item == nil {
		return domainerrors.ErrPlanNotFound
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	err := c.svc.gateway.DeleteSubscriptionItem(ctx, item.StripeID, gateway.ItemDeleteParams{
		ProrationBehavior: c.prorationBehavior,
	})
	if err != nil {
		return fmt.Errorf("failed to remove plan from subscription: %w", err)
	}
	if err := c.svc.subscriptionRepo.DeleteItem(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to delete subscription item: %w", err)
	}

	remaining := make([]model.SubscriptionItem, 0, len(c.sub.Items)-1)
	for i := range c.sub.Items {
		if c.sub.Items[i].StripePlan != plan {
			remaining = append(remaining, c.sub.Items[i])
		}
	}
	c.sub.Items = remaining

	if len(remaining) == 1 {
		last := remaining[0]
		c.sub.StripePlan = &last.StripePlan
		quantity := last.Quantity
		c.sub.Quantity = &quantity
		if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
			return fmt.Errorf("failed to persist subscription: %w", err)
		}
	}
	return nil
}

// SwapItem moves one plan item to a different plan without touching the
// rest of the subscription.
func (c *SubscriptionChange) SwapItem(ctx context.Context, plan, newPlan string) error {
	if err := c.guardAgainstIncomplete(); err != nil {
		return err
	}
	item := c.sub.FindItem(plan)
	if item == nil {
		return domainerrors.ErrPlanNotFound
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	owner, err := c.svc.ownerOf(ctx, c.sub)
	if err != nil {
		return err
	}

	quantity := item.Quantity
	updated, err := c.svc.gateway.UpdateSubscriptionItem(ctx, item.StripeID, gateway.ItemUpdateParams{
		Plan:              newPlan,
		Quantity:          &quantity,
		TaxRates:          owner.PlanTaxRatesFor(newPlan),
		PaymentBehavior:   c.paymentBehavior,
		ProrationBehavior: c.prorationBehavior,
	})
	if err != nil {
		return fmt.Errorf("failed to swap subscription item plan: %w", err)
	}

	item.StripePlan = updated.PlanID
	item.Quantity = updated.Quantity
	if err := c.svc.subscriptionRepo.UpdateItem(ctx, item); err != nil {
		return fmt.Errorf("failed to persist subscription item: %w", err)
	}

	if c.sub.HasSinglePlan() {
		plan := updated.PlanID
		c.sub.StripePlan = &plan
		if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
			return fmt.Errorf("failed to persist subscription: %w", err)
		}
	}
	return nil
}

// Cancel requests cancellation at period end. The grace period runs to
// the trial end while on trial, otherwise to the current period end from
// the gateway response.
func (c *SubscriptionChange) Cancel(ctx context.Context) error {
	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	cancel := true
	updated, err := c.svc.gateway.UpdateSubscription(ctx, c.sub.StripeID, gateway.SubscriptionUpdateParams{
		CancelAtPeriodEnd: &cancel,
	})
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	c.sub.StripeStatus = updated.Status
	if c.sub.OnTrial() {
		endsAt := *c.sub.TrialEndsAt
		c.sub.EndsAt = &endsAt
	} else {
		endsAt := time.Unix(updated.CurrentPeriodEnd, 0)
		c.sub.EndsAt = &endsAt
	}
	if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
		return fmt.Errorf("failed to persist canceled subscription: %w", err)
	}
	return nil
}

// CancelNow cancels immediately, prorating per the handle's behavior.
func (c *SubscriptionChange) CancelNow(ctx context.Context) error {
	return c.cancelNow(ctx, false)
}

// CancelNowAndInvoice cancels immediately and invoices outstanding
// prorations.
func (c *SubscriptionChange) CancelNowAndInvoice(ctx context.Context) error {
	return c.cancelNow(ctx, true)
}

func (c *SubscriptionChange) cancelNow(ctx context.Context, invoiceNow bool) error {
	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	_, err := c.svc.gateway.CancelSubscription(ctx, c.sub.StripeID, gateway.SubscriptionCancelParams{
		InvoiceNow: invoiceNow,
		Prorate:    c.prorationBehavior == ProrationCreateProrations,
	})
	if err != nil {
		return fmt.Errorf("failed to cancel subscription immediately: %w", err)
	}
	return c.svc.markAsCanceled(ctx, c.sub)
}

func (s *SubscriptionService) markAsCanceled(ctx context.Context, sub *model.Subscription) error {
	now := time.Now()
	sub.StripeStatus = model.StatusCanceled
	sub.EndsAt = &now
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}
	return nil
}

// Resume lifts a pending cancellation. Only valid during the grace
// period; once it lapses a new subscription is required.
func (c *SubscriptionChange) Resume(ctx context.Context) error {
	if !c.sub.OnGracePeriod() {
		return domainerrors.ErrNotOnGracePeriod
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	cancel := false
	params := gateway.SubscriptionUpdateParams{CancelAtPeriodEnd: &cancel}
	if c.sub.OnTrial() {
		params.TrialEnd = c.sub.TrialEndsAt.Unix()
	} else {
		params.TrialEndNow = true
	}

	updated, err := c.svc.gateway.UpdateSubscription(ctx, c.sub.StripeID, params)
	if err != nil {
		return fmt.Errorf("failed to resume subscription: %w", err)
	}

	c.sub.StripeStatus = updated.Status
	c.sub.EndsAt = nil
	if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
		return fmt.Errorf("failed to persist resumed subscription: %w", err)
	}
	return nil
}

// ExtendTrial pushes the trial end to a future date.
func (c *SubscriptionChange) ExtendTrial(ctx context.Context, date time.Time) error {
	if !date.After(time.Now()) {
		return domainerrors.ErrTrialDateNotInFuture
	}

	unlock := c.svc.locker.Lock(c.sub.StripeID)
	defer unlock()

	_, err := c.svc.gateway.UpdateSubscription(ctx, c.sub.StripeID, gateway.SubscriptionUpdateParams{
		TrialEnd: date.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to extend subscription trial: %w", err)
	}

	c.sub.TrialEndsAt = &date
	if err := c.svc.subscriptionRepo.Update(ctx, c.sub); err != nil {
		return fmt.Errorf("failed to persist extended trial: %w", err)
	}
	return nil
}

// LatestPayment fetches the payment intent behind the subscription's
// latest invoice, or nil when there is none.
func (c *SubscriptionChange) LatestPayment(ctx context.Context) (*Payment, error) {
	remote, err := c.svc.gateway.GetSubscription(ctx, c.sub.StripeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote subscription: %w", err)
	}
	if remote.LatestPaymentIntent == nil {
		return nil, nil
	}
	return NewPayment(remote.LatestPaymentIntent), nil
}
