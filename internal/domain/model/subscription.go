package model

import (
	"time"

	"github.com/google/uuid"
)

// Gateway subscription statuses this system interprets. Any other status
// string coming from the gateway is stored opaquely.
const (
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusPastDue           = "past_due"
	StatusActive            = "active"
	StatusCanceled          = "canceled"
	StatusUnpaid            = "unpaid"
	StatusTrialing          = "trialing"
)

// Subscription is the local mirror of one remote gateway subscription. The
// gateway stays the source of truth for the status; this record is a cache
// kept convergent by the subscription service and the webhook reconciler.
type Subscription struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	Name       string    `gorm:"not null;size:100" json:"name"`
	StripeID   string    `gorm:"uniqueIndex;not null;size:100" json:"stripe_id"`

	StripeStatus string `gorm:"not null;size:50" json:"stripe_status"`

	// StripePlan and Quantity mirror the gateway's top-level plan shortcut:
	// they are set only while the subscription has exactly one plan item.
	StripePlan *string `gorm:"size:100" json:"stripe_plan,omitempty"`
	Quantity   *int64  `json:"quantity,omitempty"`

	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`

	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updated_at"`

	// Relations
	Items []SubscriptionItem `gorm:"foreignKey:SubscriptionID" json:"items,omitempty"`
}

// Incomplete reports whether the first payment has not resolved yet. No
// mutating operation may run in this state.
func (s *Subscription) Incomplete() bool {
	return s.StripeStatus == StatusIncomplete
}

// PastDue reports whether the latest renewal payment failed.
func (s *Subscription) PastDue() bool {
	return s.StripeStatus == StatusPastDue
}

// OnTrial reports whether the subscription is within its trial period.
func (s *Subscription) OnTrial() bool {
	return s.TrialEndsAt != nil && s.TrialEndsAt.After(time.Now())
}

// OnGracePeriod reports whether a cancellation was requested but the paid
// period has not run out yet.
func (s *Subscription) OnGracePeriod() bool {
	return s.EndsAt != nil && s.EndsAt.After(time.Now())
}

// Canceled reports whether a cancellation has been requested or completed.
func (s *Subscription) Canceled() bool {
	return s.EndsAt != nil
}

// Ended reports whether the subscription is canceled and its grace period
// has expired.
func (s *Subscription) Ended() bool {
	return s.Canceled() && !s.OnGracePeriod()
}

// Recurring reports whether the subscription is billing normally, neither
// on trial nor canceled.
func (s *Subscription) Recurring() bool {
	return !s.OnTrial() && !s.Canceled()
}

// Active is the composite predicate callers must use to gate feature
// access. The raw gateway status alone is insufficient: the cancellation
// grace period keeps a canceled subscription usable, and deactivatePastDue
// decides whether past_due customers keep access while the gateway retries
// their payment.
func (s *Subscription) Active(deactivatePastDue bool) bool {
	if s.EndsAt != nil && !s.OnGracePeriod() {
		return false
	}
	if s.StripeStatus == StatusIncomplete ||
		s.StripeStatus == StatusIncompleteExpired ||
		s.StripeStatus == StatusUnpaid {
		return false
	}
	if deactivatePastDue && s.StripeStatus == StatusPastDue {
		return false
	}
	return true
}

// Valid reports whether the subscription is active, on trial, or within
// its grace period.
func (s *Subscription) Valid(deactivatePastDue bool) bool {
	return s.Active(deactivatePastDue) || s.OnTrial() || s.OnGracePeriod()
}

// HasIncompletePayment reports whether the latest payment for the
// subscription needs caller attention.
func (s *Subscription) HasIncompletePayment() bool {
	return s.PastDue() || s.Incomplete()
}

// HasMultiplePlans reports whether the subscription bills more than one
// plan. The top-level plan shortcut is nil exactly in that case.
func (s *Subscription) HasMultiplePlans() bool {
	return s.StripePlan == nil
}

// HasSinglePlan reports whether the subscription bills exactly one plan.
func (s *Subscription) HasSinglePlan() bool {
	return !s.HasMultiplePlans()
}

// HasPlan reports whether the subscription bills the given plan.
func (s *Subscription) HasPlan(plan string) bool {
	if s.HasMultiplePlans() {
		for i := range s.Items {
			if s.Items[i].StripePlan == plan {
				return true
			}
		}
		return false
	}
	return *s.StripePlan == plan
}

// FindItem returns the plan item for the given plan, or nil.
func (s *Subscription) FindItem(plan string) *SubscriptionItem {
	for i := range s.Items {
		if s.Items[i].StripePlan == plan {
			return &s.Items[i]
		}
	}
	return nil
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}
