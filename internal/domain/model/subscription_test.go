package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/subware/billing-service/internal/domain/model"
)

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

func TestSubscription_Active(t *testing.T) {
	future := time.Now().Add(10 * 24 * time.Hour)
	past := time.Now().Add(-time.Hour)

	t.Run("active status", func(t *testing.T) {
		sub := &model.Subscription{StripeStatus: model.StatusActive}
		assert.True(t, sub.Active(false))
		assert.True(t, sub.Active(true))
	})

	t.Run("trialing status", func(t *testing.T) {
		sub := &model.Subscription{
			StripeStatus: model.StatusTrialing,
			TrialEndsAt:  timePtr(future),
		}
		assert.True(t, sub.Active(false))
	})

	t.Run("incomplete statuses are never active", func(t *testing.T) {
		for _, status := range []string{
			model.StatusIncomplete,
			model.StatusIncompleteExpired,
			model.StatusUnpaid,
		} {
			sub := &model.Subscription{StripeStatus: status}
			assert.False(t, sub.Active(false), status)
			assert.False(t, sub.Active(true), status)
		}
	})

	t.Run("past_due depends on configuration", func(t *testing.T) {
		sub := &model.Subscription{StripeStatus: model.StatusPastDue}
		assert.True(t, sub.Active(false))
		assert.False(t, sub.Active(true))
	})

	t.Run("grace period keeps a canceled subscription active", func(t *testing.T) {
		sub := &model.Subscription{
			StripeStatus: model.StatusActive,
			EndsAt:       timePtr(future),
		}
		assert.True(t, sub.Active(false))
		assert.True(t, sub.OnGracePeriod())
		assert.True(t, sub.Canceled())
		assert.False(t, sub.Ended())
	})

	t.Run("expired grace period deactivates", func(t *testing.T) {
		sub := &model.Subscription{
			StripeStatus: model.StatusCanceled,
			EndsAt:       timePtr(past),
		}
		assert.False(t, sub.Active(false))
		assert.True(t, sub.Ended())
	})
}

func TestSubscription_Predicates(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)

	t.Run("on trial", func(t *testing.T) {
		sub := &model.Subscription{TrialEndsAt: timePtr(future)}
		assert.True(t, sub.OnTrial())
		assert.False(t, sub.Recurring())
	})

	t.Run("recurring when neither trialing nor canceled", func(t *testing.T) {
		sub := &model.Subscription{StripeStatus: model.StatusActive}
		assert.True(t, sub.Recurring())
	})

	t.Run("incomplete payment", func(t *testing.T) {
		assert.True(t, (&model.Subscription{StripeStatus: model.StatusIncomplete}).HasIncompletePayment())
		assert.True(t, (&model.Subscription{StripeStatus: model.StatusPastDue}).HasIncompletePayment())
		assert.False(t, (&model.Subscription{StripeStatus: model.StatusActive}).HasIncompletePayment())
	})
}

func TestSubscription_Plans(t *testing.T) {
	t.Run("single plan shortcut", func(t *testing.T) {
		sub := &model.Subscription{
			StripePlan: strPtr("plan_a"),
			Items: []model.SubscriptionItem{
				{StripePlan: "plan_a", Quantity: 1},
			},
		}
		assert.True(t, sub.HasSinglePlan())
		assert.False(t, sub.HasMultiplePlans())
		assert.True(t, sub.HasPlan("plan_a"))
		assert.False(t, sub.HasPlan("plan_b"))
	})

	t.Run("multi-plan checks items", func(t *testing.T) {
		sub := &model.Subscription{
			Items: []model.SubscriptionItem{
				{StripePlan: "plan_a", Quantity: 1},
				{StripePlan: "plan_b", Quantity: 1},
			},
		}
		assert.True(t, sub.HasMultiplePlans())
		assert.True(t, sub.HasPlan("plan_a"))
		assert.True(t, sub.HasPlan("plan_b"))
		assert.False(t, sub.HasPlan("plan_c"))
	})

	t.Run("find item", func(t *testing.T) {
		sub := &model.Subscription{
			Items: []model.SubscriptionItem{
				{ID: 1, StripePlan: "plan_a", Quantity: 2},
			},
		}
		item := sub.FindItem("plan_a")
		assert.NotNil(t, item)
		assert.Equal(t, int64(2), item.Quantity)
		assert.Nil(t, sub.FindItem("plan_b"))
	})
}

func TestCustomer_Predicates(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)

	t.Run("generic trial", func(t *testing.T) {
		c := &model.Customer{TrialEndsAt: timePtr(future)}
		assert.True(t, c.OnGenericTrial())
		assert.False(t, (&model.Customer{}).OnGenericTrial())
	})

	t.Run("gateway identity", func(t *testing.T) {
		assert.True(t, (&model.Customer{StripeID: strPtr("cus_1")}).HasStripeID())
		assert.False(t, (&model.Customer{StripeID: strPtr("")}).HasStripeID())
		assert.False(t, (&model.Customer{}).HasStripeID())
	})

	t.Run("plan tax rates", func(t *testing.T) {
		c := &model.Customer{
			PlanTaxRates: model.PlanTaxRateMap{"plan_a": {"txr_1", "txr_2"}},
		}
		assert.Equal(t, []string{"txr_1", "txr_2"}, c.PlanTaxRatesFor("plan_a"))
		assert.Nil(t, c.PlanTaxRatesFor("plan_b"))
		assert.Nil(t, (&model.Customer{}).PlanTaxRatesFor("plan_a"))
	})
}
