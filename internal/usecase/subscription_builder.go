package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainerrors "github.com/subware/billing-service/internal/domain/errors"
	"github.com/subware/billing-service/internal/domain/gateway"
	"github.com/subware/billing-service/internal/domain/model"
)

// SubscriptionBuilder accumulates a draft subscription's shape and submits
// it to the gateway in a single creation call.
type SubscriptionBuilder struct {
	svc       *SubscriptionService
	customers *CustomerService
	owner     *model.Customer
	name      string

	planOrder []string
	items     map[string]*gateway.ItemParams

	trialEnd  *time.Time
	skipTrial bool

	billingCycleAnchor int64
	coupon             string
	metadata           map[string]string
	paymentBehavior    string
	prorationBehavior  string
}

// NewSubscription opens a builder for the given owner and subscription
// name.
func (s *SubscriptionService) NewSubscription(customers *CustomerService, owner *model.Customer, name string) *SubscriptionBuilder {
	return &SubscriptionBuilder{
		svc:               s,
		customers:         customers,
		owner:             owner,
		name:              name,
		items:             make(map[string]*gateway.ItemParams),
		paymentBehavior:   PaymentBehaviorAllowIncomplete,
		prorationBehavior: ProrationCreateProrations,
	}
}

// Plan stages a plan with the given quantity, upserting into the draft
// item map. Per-plan tax rates come from the owner's configuration.
func (b *SubscriptionBuilder) Plan(plan string, quantity int64) *SubscriptionBuilder {
	if _, ok := b.items[plan]; !ok {
		b.planOrder = append(b.planOrder, plan)
	}
	b.items[plan] = &gateway.ItemParams{
		Plan:     plan,
		Quantity: quantity,
		TaxRates: b.owner.PlanTaxRatesFor(plan),
	}
	return b
}

// Quantity sets the quantity of a staged plan. Plan may be empty only
// while at most one plan is staged.
func (b *SubscriptionBuilder) Quantity(quantity int64, plan string) (*SubscriptionBuilder, error) {
	if plan == "" {
		if len(b.items) != 1 {
			return nil, domainerrors.ErrPlanRequired
		}
		plan = b.planOrder[0]
	}
	return b.Plan(plan, quantity), nil
}

// TrialDays sets the trial to expire n days from now. Last trial call
// wins.
func (b *SubscriptionBuilder) TrialDays(days int) *SubscriptionBuilder {
	end := time.Now().AddDate(0, 0, days)
	return b.TrialUntil(end)
}

// TrialUntil sets an explicit trial expiry. Last trial call wins.
func (b *SubscriptionBuilder) TrialUntil(date time.Time) *SubscriptionBuilder {
	b.trialEnd = &date
	b.skipTrial = false
	return b
}

// SkipTrial forces the subscription to start billing immediately,
// overriding any previously set expiry.
func (b *SubscriptionBuilder) SkipTrial() *SubscriptionBuilder {
	b.skipTrial = true
	return b
}

// AnchorBillingCycleOn overrides the billing cycle anchor.
func (b *SubscriptionBuilder) AnchorBillingCycleOn(anchor time.Time) *SubscriptionBuilder {
	b.billingCycleAnchor = anchor.Unix()
	return b
}

// WithCoupon applies a coupon at creation.
func (b *SubscriptionBuilder) WithCoupon(coupon string) *SubscriptionBuilder {
	b.coupon = coupon
	return b
}

// WithMetadata attaches metadata to the remote subscription.
func (b *SubscriptionBuilder) WithMetadata(metadata map[string]string) *SubscriptionBuilder {
	b.metadata = metadata
	return b
}

func (b *SubscriptionBuilder) AllowPaymentFailures() *SubscriptionBuilder {
	b.paymentBehavior = PaymentBehaviorAllowIncomplete
	return b
}

func (b *SubscriptionBuilder) PendingIfPaymentFails() *SubscriptionBuilder {
	b.paymentBehavior = PaymentBehaviorPendingIfIncomplete
	return b
}

func (b *SubscriptionBuilder) ErrorIfPaymentFails() *SubscriptionBuilder {
	b.paymentBehavior = PaymentBehaviorErrorIfIncomplete
	return b
}

func (b *SubscriptionBuilder) NoProrate() *SubscriptionBuilder {
	b.prorationBehavior = ProrationNone
	return b
}

// Create ensures the owner exists at the gateway, optionally sets the
// given payment method as default, then submits the draft in one call and
// mirrors the response locally. An incomplete first payment surfaces as
// an IncompletePaymentError while the local record is kept.
func (b *SubscriptionBuilder) Create(ctx context.Context, paymentMethodID string) (*model.Subscription, error) {
	if len(b.items) == 0 {
		return nil, domainerrors.ErrNoPlansProvided
	}

	customer, err := b.customers.CreateOrGetStripeCustomer(ctx, b.owner)
	if err != nil {
		return nil, err
	}
	if paymentMethodID != "" {
		if _, err := b.customers.UpdateDefaultPaymentMethod(ctx, b.owner, paymentMethodID); err != nil {
			return nil, err
		}
	}

	params := gateway.SubscriptionCreateParams{
		CustomerID:         customer.ID,
		Items:              b.buildItems(),
		Coupon:             b.coupon,
		Metadata:           b.metadata,
		BillingCycleAnchor: b.billingCycleAnchor,
		PaymentBehavior:    b.paymentBehavior,
		ProrationBehavior:  b.prorationBehavior,
		OffSession:         true,
	}

	// Owner-level default tax rates suppress the flat percentage entirely.
	if len(b.owner.DefaultTaxRates) > 0 {
		params.DefaultTaxRates = b.owner.DefaultTaxRates
	} else if b.owner.TaxPercent.IsPositive() {
		params.TaxPercent, _ = b.owner.TaxPercent.Float64()
	}

	trialEnd := b.resolveTrialEnd()
	if b.skipTrial {
		params.TrialEndNow = true
	} else if trialEnd != nil {
		params.TrialEnd = trialEnd.Unix()
	}

	created, err := b.svc.gateway.CreateSubscription(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote subscription: %w", err)
	}

	sub := &model.Subscription{
		CustomerID:   b.owner.ID,
		Name:         b.name,
		StripeID:     created.ID,
		StripeStatus: created.Status,
	}
	if created.PlanID != "" {
		plan := created.PlanID
		quantity := created.Quantity
		sub.StripePlan = &plan
		sub.Quantity = &quantity
	}
	if !b.skipTrial && trialEnd != nil {
		sub.TrialEndsAt = trialEnd
	}
	if err := b.svc.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}

	for _, ri := range created.Items {
		item := model.SubscriptionItem{
			SubscriptionID: sub.ID,
			StripeID:       ri.ID,
			StripePlan:     ri.PlanID,
			Quantity:       ri.Quantity,
		}
		if err := b.svc.subscriptionRepo.CreateItem(ctx, &item); err != nil {
			return nil, fmt.Errorf("failed to persist subscription item: %w", err)
		}
		sub.Items = append(sub.Items, item)
	}

	b.svc.logger.Info("subscription created",
		zap.String("customer_id", b.owner.ID.String()),
		zap.String("stripe_id", sub.StripeID),
		zap.String("status", sub.StripeStatus))

	if sub.HasIncompletePayment() && created.LatestPaymentIntent != nil {
		if err := NewPayment(created.LatestPaymentIntent).Validate(); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

func (b *SubscriptionBuilder) buildItems() []gateway.ItemParams {
	items := make([]gateway.ItemParams, 0, len(b.items))
	for _, plan := range b.planOrder {
		items = append(items, *b.items[plan])
	}
	return items
}

func (b *SubscriptionBuilder) resolveTrialEnd() *time.Time {
	if b.skipTrial {
		return nil
	}
	return b.trialEnd
}
