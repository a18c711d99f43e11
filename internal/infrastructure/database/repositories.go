package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/subware/billing-service/internal/adapter/repository"
	domainRepo "github.com/subware/billing-service/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Subscription domainRepo.SubscriptionRepository
	Customer     domainRepo.CustomerRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Customer:     repository.NewCustomerRepository(db, logger),
	}
}
