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

type customerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB, logger *zap.Logger) repository.CustomerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	if err := r.db.WithContext(ctx).Omit("Subscriptions").Create(customer).Error; err != nil {
		r.logger.Error("Failed to create customer",
			zap.String("id", customer.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	err := r.db.WithContext(ctx).
		Omit("Subscriptions").
		Select("email", "stripe_id", "card_brand", "card_last_four", "trial_ends_at",
			"default_tax_rates", "plan_tax_rates", "tax_percent", "updated_at").
		Where("id = ?", customer.ID).
		Updates(customer).Error
	if err != nil {
		r.logger.Error("Failed to update customer",
			zap.String("id", customer.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer by id",
			zap.String("id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

func (r *customerRepository) GetByStripeID(ctx context.Context, stripeID string) (*model.Customer, error) {
	var customer model.Customer

	err := r.db.WithContext(ctx).
		Where("stripe_id = ?", stripeID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get customer by stripe id",
			zap.String("stripe_id", stripeID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}
