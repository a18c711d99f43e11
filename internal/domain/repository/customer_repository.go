package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/subware/billing-service/internal/domain/model"
)

// CustomerRepository persists billable customers.
// Lookup methods return (nil, nil) when no row matches.
type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetByStripeID(ctx context.Context, stripeID string) (*model.Customer, error)
}
