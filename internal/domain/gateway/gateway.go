package gateway

import (
	"context"
	"errors"
)

// Gateway is the synchronous request/response capability the billing
// engine needs from the remote payment gateway. Implementations translate
// these typed payloads to the provider SDK and project responses back into
// the plain structs in this package.
type Gateway interface {
	// Subscriptions
	CreateSubscription(ctx context.Context, params SubscriptionCreateParams) (*Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, id string, params SubscriptionUpdateParams) (*Subscription, error)
	CancelSubscription(ctx context.Context, id string, params SubscriptionCancelParams) (*Subscription, error)

	// Subscription items
	CreateSubscriptionItem(ctx context.Context, subscriptionID string, params ItemCreateParams) (*Item, error)
	UpdateSubscriptionItem(ctx context.Context, itemID string, params ItemUpdateParams) (*Item, error)
	DeleteSubscriptionItem(ctx context.Context, itemID string, params ItemDeleteParams) error

	// Payments
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CreatePaymentIntent(ctx context.Context, params PaymentIntentCreateParams) (*PaymentIntent, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)

	// Customers
	CreateCustomer(ctx context.Context, params CustomerCreateParams) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	UpdateCustomer(ctx context.Context, id string, params CustomerUpdateParams) (*Customer, error)

	// Payment methods
	ListPaymentMethods(ctx context.Context, customerID string, limit int64) ([]*PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, id, customerID string) (*PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) error

	// Invoices
	CreateInvoice(ctx context.Context, params InvoiceCreateParams) (*Invoice, error)
	PayInvoice(ctx context.Context, id string) (*Invoice, error)
	SendInvoice(ctx context.Context, id string) (*Invoice, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	UpcomingInvoice(ctx context.Context, customerID string) (*Invoice, error)
	ListInvoices(ctx context.Context, params InvoiceListParams) ([]*Invoice, error)
	VoidInvoice(ctx context.Context, id string) (*Invoice, error)
	CreateInvoiceItem(ctx context.Context, params InvoiceItemParams) error

	// Billing portal
	CreateBillingPortalSession(ctx context.Context, params PortalSessionParams) (*PortalSession, error)
}

// Error classifications for failed gateway calls.
const (
	ErrTypeInvalidRequest = "invalid_request"
	ErrTypeCard           = "card"
	ErrTypeAuthentication = "authentication"
	ErrTypeAPI            = "api"
)

// Error is a classified failure from the remote gateway.
type Error struct {
	Type    string
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Message + " (" + e.Code + ")"
	}
	return e.Message
}

// IsInvalidRequest reports whether err is a gateway invalid-request error.
func IsInvalidRequest(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Type == ErrTypeInvalidRequest
}

// IsCardError reports whether err is a gateway card-declined error.
func IsCardError(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Type == ErrTypeCard
}
