package model

import "time"

// SubscriptionItem is one (plan, quantity) line within a subscription,
// mirroring a gateway subscription item. (subscription, plan) is unique.
type SubscriptionItem struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SubscriptionID int64  `gorm:"not null;uniqueIndex:idx_subscription_plan,priority:1" json:"subscription_id"`
	StripeID       string `gorm:"uniqueIndex;not null;size:100" json:"stripe_id"`
	StripePlan     string `gorm:"not null;size:100;uniqueIndex:idx_subscription_plan,priority:2" json:"stripe_plan"`
	Quantity       int64  `gorm:"not null;default:1" json:"quantity"`

	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionItem) TableName() string {
	return "subscription_items"
}
