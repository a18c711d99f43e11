package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/subware/billing-service/internal/domain/model"
)

// SubscriptionRepository persists subscriptions and their plan items.
// Lookup methods return (nil, nil) when no row matches.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *model.Subscription) error
	Update(ctx context.Context, subscription *model.Subscription) error
	Delete(ctx context.Context, id int64) error

	GetByID(ctx context.Context, id int64) (*model.Subscription, error)
	GetByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error)
	GetByCustomerAndName(ctx context.Context, customerID uuid.UUID, name string) (*model.Subscription, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Subscription, error)

	CreateItem(ctx context.Context, item *model.SubscriptionItem) error
	UpdateItem(ctx context.Context, item *model.SubscriptionItem) error
	DeleteItem(ctx context.Context, id int64) error
	// DeleteItemsNotInPlans removes items of the subscription whose plan is
	// not in the given set. Used to reconcile local items after a swap.
	DeleteItemsNotInPlans(ctx context.Context, subscriptionID int64, plans []string) error
}
