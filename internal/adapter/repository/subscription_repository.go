package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	if err := r.db.WithContext(ctx).Omit("Items").Create(subscription).Error; err != nil {
		r.logger.Error("Failed to create subscription",
			zap.String("stripe_id", subscription.StripeID),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, subscription *model.Subscription) error {
	err := r.db.WithContext(ctx).
		Omit("Items").
		Select("stripe_status", "stripe_plan", "quantity", "trial_ends_at", "ends_at", "updated_at").
		Where("id = ?", subscription.ID).
		Updates(subscription).Error
	if err != nil {
		r.logger.Error("Failed to update subscription",
			zap.Int64("id", subscription.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Subscription{}, id).Error; err != nil {
		r.logger.Error("Failed to delete subscription",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by id",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("stripe_id = ?", stripeID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by stripe id",
			zap.String("stripe_id", stripeID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByCustomerAndName(ctx context.Context, customerID uuid.UUID, name string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ? AND name = ?", customerID, name).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by customer and name",
			zap.String("customer_id", customerID.String()),
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Subscription, error) {
	var subs []model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

func (r *subscriptionRepository) CreateItem(ctx context.Context, item *model.SubscriptionItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		r.logger.Error("Failed to create subscription item",
			zap.String("stripe_id", item.StripeID),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription item: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) UpdateItem(ctx context.Context, item *model.SubscriptionItem) error {
	err := r.db.WithContext(ctx).
		Select("stripe_id", "stripe_plan", "quantity", "updated_at").
		Where("id = ?", item.ID).
		Updates(item).Error
	if err != nil {
		r.logger.Error("Failed to update subscription item",
			zap.Int64("id", item.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update subscription item: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) DeleteItem(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.SubscriptionItem{}, id).Error; err != nil {
		r.logger.Error("Failed to delete subscription item",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete subscription item: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) DeleteItemsNotInPlans(ctx context.Context, subscriptionID int64, plans []string) error {
	query := r.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID)
	if len(plans) > 0 {
		query = query.Where("stripe_plan NOT IN ?", plans)
	}
	if err := query.Delete(&model.SubscriptionItem{}).Error; err != nil {
		r.logger.Error("Failed to prune subscription items",
			zap.Int64("subscription_id", subscriptionID),
			zap.Error(err))
		return fmt.Errorf("failed to prune subscription items: %w", err)
	}
	return nil
}
