package usecase_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/subware/billing-service/internal/domain/gateway"
	"github.com/subware/billing-service/internal/domain/model"
)

// MockGateway is a mock implementation of gateway.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateSubscription(ctx context.Context, params gateway.SubscriptionCreateParams) (*gateway.Subscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGateway) GetSubscription(ctx context.Context, id string) (*gateway.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGateway) UpdateSubscription(ctx context.Context, id string, params gateway.SubscriptionUpdateParams) (*gateway.Subscription, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, id string, params gateway.SubscriptionCancelParams) (*gateway.Subscription, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGateway) CreateSubscriptionItem(ctx context.Context, subscriptionID string, params gateway.ItemCreateParams) (*gateway.Item, error) {
	args := m.Called(ctx, subscriptionID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Item), args.Error(1)
}

func (m *MockGateway) UpdateSubscriptionItem(ctx context.Context, itemID string, params gateway.ItemUpdateParams) (*gateway.Item, error) {
	args := m.Called(ctx, itemID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Item), args.Error(1)
}

func (m *MockGateway) DeleteSubscriptionItem(ctx context.Context, itemID string, params gateway.ItemDeleteParams) error {
	args := m.Called(ctx, itemID, params)
	return args.Error(0)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, params gateway.PaymentIntentCreateParams) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockGateway) CreateSetupIntent(ctx context.Context, customerID string) (*gateway.SetupIntent, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SetupIntent), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, params gateway.RefundParams) (*gateway.Refund, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

func (m *MockGateway) CreateCustomer(ctx context.Context, params gateway.CustomerCreateParams) (*gateway.Customer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Customer), args.Error(1)
}

func (m *MockGateway) GetCustomer(ctx context.Context, id string) (*gateway.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Customer), args.Error(1)
}

func (m *MockGateway) UpdateCustomer(ctx context.Context, id string, params gateway.CustomerUpdateParams) (*gateway.Customer, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Customer), args.Error(1)
}

func (m *MockGateway) ListPaymentMethods(ctx context.Context, customerID string, limit int64) ([]*gateway.PaymentMethod, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*gateway.PaymentMethod), args.Error(1)
}

func (m *MockGateway) GetPaymentMethod(ctx context.Context, id string) (*gateway.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentMethod), args.Error(1)
}

func (m *MockGateway) AttachPaymentMethod(ctx context.Context, id, customerID string) (*gateway.PaymentMethod, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentMethod), args.Error(1)
}

func (m *MockGateway) DetachPaymentMethod(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateInvoice(ctx context.Context, params gateway.InvoiceCreateParams) (*gateway.Invoice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) PayInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) SendInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) GetInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) UpcomingInvoice(ctx context.Context, customerID string) (*gateway.Invoice, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) ListInvoices(ctx context.Context, params gateway.InvoiceListParams) ([]*gateway.Invoice, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) VoidInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Invoice), args.Error(1)
}

func (m *MockGateway) CreateInvoiceItem(ctx context.Context, params gateway.InvoiceItemParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockGateway) CreateBillingPortalSession(ctx context.Context, params gateway.PortalSessionParams) (*gateway.PortalSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PortalSession), args.Error(1)
}

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, subscription *model.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error) {
	args := m.Called(ctx, stripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByCustomerAndName(ctx context.Context, customerID uuid.UUID, name string) (*model.Subscription, error) {
	args := m.Called(ctx, customerID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CreateItem(ctx context.Context, item *model.SubscriptionItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UpdateItem(ctx context.Context, item *model.SubscriptionItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) DeleteItem(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) DeleteItemsNotInPlans(ctx context.Context, subscriptionID int64, plans []string) error {
	args := m.Called(ctx, subscriptionID, plans)
	return args.Error(0)
}

// MockCustomerRepository is a mock implementation of CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Update(ctx context.Context, customer *model.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByStripeID(ctx context.Context, stripeID string) (*model.Customer, error) {
	args := m.Called(ctx, stripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}
