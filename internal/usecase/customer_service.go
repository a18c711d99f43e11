package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/config"
	domainerrors "github.com/subware/billing-service/internal/domain/errors"
	"github.com/subware/billing-service/internal/domain/gateway"
	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
)

// CustomerService manages the billable entity's gateway identity, payment
// methods, invoices and one-off charges.
type CustomerService struct {
	customerRepo repository.CustomerRepository
	gateway      gateway.Gateway
	billing      config.BillingConfig
	logger       *zap.Logger
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	gw gateway.Gateway,
	billing config.BillingConfig,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		gateway:      gw,
		billing:      billing,
		logger:       logger,
	}
}

// CreateAsStripeCustomer registers the customer at the gateway. Fails
// when a gateway identity already exists.
func (s *CustomerService) CreateAsStripeCustomer(ctx context.Context, customer *model.Customer) (*gateway.Customer, error) {
	if customer.HasStripeID() {
		return nil, domainerrors.ErrCustomerAlreadyCreated
	}

	created, err := s.gateway.CreateCustomer(ctx, gateway.CustomerCreateParams{
		Email:    customer.Email,
		Metadata: map[string]string{"customer_id": customer.ID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway customer: %w", err)
	}

	stripeID := created.ID
	customer.StripeID = &stripeID
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to persist customer gateway id: %w", err)
	}

	s.logger.Info("gateway customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("stripe_id", stripeID))
	return created, nil
}

// CreateOrGetStripeCustomer returns the gateway customer, registering it
// first when needed.
func (s *CustomerService) CreateOrGetStripeCustomer(ctx context.Context, customer *model.Customer) (*gateway.Customer, error) {
	if customer.HasStripeID() {
		remote, err := s.gateway.GetCustomer(ctx, *customer.StripeID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch gateway customer: %w", err)
		}
		return remote, nil
	}
	return s.CreateAsStripeCustomer(ctx, customer)
}

// UpdateStripeCustomer pushes the given fields to the gateway customer.
func (s *CustomerService) UpdateStripeCustomer(ctx context.Context, customer *model.Customer, params gateway.CustomerUpdateParams) (*gateway.Customer, error) {
	if !customer.HasStripeID() {
		return nil, domainerrors.ErrCustomerNotCreated
	}
	updated, err := s.gateway.UpdateCustomer(ctx, *customer.StripeID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update gateway customer: %w", err)
	}
	return updated, nil
}

// AsStripeCustomer fetches the gateway customer. Fails when none exists.
func (s *CustomerService) AsStripeCustomer(ctx context.Context, customer *model.Customer) (*gateway.Customer, error) {
	if !customer.HasStripeID() {
		return nil, domainerrors.ErrCustomerNotCreated
	}
	remote, err := s.gateway.GetCustomer(ctx, *customer.StripeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gateway customer: %w", err)
	}
	return remote, nil
}

// ApplyCoupon applies a coupon at the customer level.
func (s *CustomerService) ApplyCoupon(ctx context.Context, customer *model.Customer, coupon string) error {
	if !customer.HasStripeID() {
		return domainerrors.ErrCustomerNotCreated
	}
	_, err := s.gateway.UpdateCustomer(ctx, *customer.StripeID, gateway.CustomerUpdateParams{
		Coupon: &coupon,
	})
	if err != nil {
		return fmt.Errorf("failed to apply coupon: %w", err)
	}
	return nil
}

// IsTaxExempt reports whether the gateway marks the customer tax exempt.
func (s *CustomerService) IsTaxExempt(ctx context.Context, customer *model.Customer) (bool, error) {
	remote, err := s.AsStripeCustomer(ctx, customer)
	if err != nil {
		return false, err
	}
	return remote.TaxExempt == "exempt", nil
}

// ReverseChargeApplies reports whether the reverse charge applies to the
// customer.
func (s *CustomerService) ReverseChargeApplies(ctx context.Context, customer *model.Customer) (bool, error) {
	remote, err := s.AsStripeCustomer(ctx, customer)
	if err != nil {
		return false, err
	}
	return remote.TaxExempt == "reverse", nil
}

// BillingPortalURL creates a billing portal session and returns its URL.
func (s *CustomerService) BillingPortalURL(ctx context.Context, customer *model.Customer, returnURL string) (string, error) {
	if !customer.HasStripeID() {
		return "", domainerrors.ErrCustomerNotCreated
	}
	session, err := s.gateway.CreateBillingPortalSession(ctx, gateway.PortalSessionParams{
		CustomerID: *customer.StripeID,
		ReturnURL:  returnURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create billing portal session: %w", err)
	}
	return session.URL, nil
}

// PaymentMethods lists the customer's card payment methods.
func (s *CustomerService) PaymentMethods(ctx context.Context, customer *model.Customer, limit int64) ([]*gateway.PaymentMethod, error) {
	if !customer.HasStripeID() {
		return nil, nil
	}
	methods, err := s.gateway.ListPaymentMethods(ctx, *customer.StripeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

// AddPaymentMethod attaches a payment method to the customer.
func (s *CustomerService) AddPaymentMethod(ctx context.Context, customer *model.Customer, paymentMethodID string) (*gateway.PaymentMethod, error) {
	if !customer.HasStripeID() {
		return nil, domainerrors.ErrCustomerNotCreated
	}
	attached, err := s.gateway.AttachPaymentMethod(ctx, paymentMethodID, *customer.StripeID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach payment method: %w", err)
	}
	return attached, nil
}

// RemovePaymentMethod detaches a payment method. When it was the default,
// the locally mirrored card details are cleared.
func (s *CustomerService) RemovePaymentMethod(ctx context.Context, customer *model.Customer, paymentMethodID string) error {
	method, err := s.FindPaymentMethod(ctx, customer, paymentMethodID)
	if err != nil {
		return err
	}

	remote, err := s.AsStripeCustomer(ctx, customer)
	if err != nil {
		return err
	}

	if err := s.gateway.DetachPaymentMethod(ctx, method.ID); err != nil {
		return fmt.Errorf("failed to detach payment method: %w", err)
	}

	if remote.DefaultPaymentMethodID == method.ID {
		customer.CardBrand = nil
		customer.CardLastFour = nil
		if err := s.customerRepo.Update(ctx, customer); err != nil {
			return fmt.Errorf("failed to clear mirrored card details: %w", err)
		}
	}
	return nil
}

// UpdateDefaultPaymentMethod attaches the payment method, makes it the
// gateway default, and mirrors its card details locally.
func (s *CustomerService) UpdateDefaultPaymentMethod(ctx context.Context, customer *model.Customer, paymentMethodID string) (*gateway.PaymentMethod, error) {
	method, err := s.AddPaymentMethod(ctx, customer, paymentMethodID)
	if err != nil {
		return nil, err
	}

	id := method.ID
	_, err = s.gateway.UpdateCustomer(ctx, *customer.StripeID, gateway.CustomerUpdateParams{
		DefaultPaymentMethodID: &id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set default payment method: %w", err)
	}

	s.fillPaymentMethodDetails(customer, method)
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to persist mirrored card details: %w", err)
	}
	return method, nil
}

// RefreshDefaultPaymentMethod re-mirrors the gateway's default payment
// method into the local card-display fields, clearing them when the
// default is gone. The webhook reconciler calls this on customer updates.
func (s *CustomerService) RefreshDefaultPaymentMethod(ctx context.Context, customer *model.Customer) error {
	remote, err := s.AsStripeCustomer(ctx, customer)
	if err != nil {
		return err
	}

	if remote.DefaultPaymentMethod != nil {
		s.fillPaymentMethodDetails(customer, remote.DefaultPaymentMethod)
	} else {
		customer.CardBrand = nil
		customer.CardLastFour = nil
	}
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return fmt.Errorf("failed to persist mirrored card details: %w", err)
	}
	return nil
}

func (s *CustomerService) fillPaymentMethodDetails(customer *model.Customer, method *gateway.PaymentMethod) {
	if method.Type != "card" {
		return
	}
	brand := method.CardBrand
	lastFour := method.CardLastFour
	customer.CardBrand = &brand
	customer.CardLastFour = &lastFour
}

// FindPaymentMethod retrieves a payment method and verifies it belongs to
// the customer.
func (s *CustomerService) FindPaymentMethod(ctx context.Context, customer *model.Customer, paymentMethodID string) (*gateway.PaymentMethod, error) {
	if !customer.HasStripeID() {
		return nil, domainerrors.ErrCustomerNotCreated
	}
	method, err := s.gateway.GetPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment method: %w", err)
	}
	if method.CustomerID != *customer.StripeID {
		return nil, domainerrors.ErrInvalidPaymentMethodOwner
	}
	return method, nil
}

// CreateSetupIntent opens a setup intent for collecting a payment method.
func (s *CustomerService) CreateSetupIntent(ctx context.Context, customer *model.Customer) (*gateway.SetupIntent, error) {
	customerID := ""
	if customer.HasStripeID() {
		customerID = *customer.StripeID
	}
	intent, err := s.gateway.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create setup intent: %w", err)
	}
	return intent, nil
}

// Charge performs a one-off charge against the given payment method,
// confirming immediately. The returned error is an
// IncompletePaymentError when the payment needs further action; the
// Payment is returned either way.
func (s *CustomerService) Charge(ctx context.Context, customer *model.Customer, amount int64, paymentMethodID string) (*Payment, error) {
	params := gateway.PaymentIntentCreateParams{
		Amount:             amount,
		Currency:           s.billing.DefaultCurrency(),
		PaymentMethodID:    paymentMethodID,
		Confirm:            true,
		ConfirmationMethod: "automatic",
	}
	if customer.HasStripeID() {
		params.CustomerID = *customer.StripeID
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	payment := NewPayment(intent)
	if err := payment.Validate(); err != nil {
		return payment, err
	}
	return payment, nil
}

// FindPayment retrieves the payment behind the given payment intent id.
func (s *CustomerService) FindPayment(ctx context.Context, paymentIntentID string) (*Payment, error) {
	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return NewPayment(intent), nil
}

// Refund refunds the payment behind the given payment intent.
func (s *CustomerService) Refund(ctx context.Context, paymentIntentID string) (*gateway.Refund, error) {
	refund, err := s.gateway.CreateRefund(ctx, gateway.RefundParams{
		PaymentIntentID: paymentIntentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}
	return refund, nil
}

// Tab puts an amount on the customer's upcoming invoice as a pending
// invoice item.
func (s *CustomerService) Tab(ctx context.Context, customer *model.Customer, description string, amount int64) error {
	if !customer.HasStripeID() {
		return domainerrors.ErrCustomerNotCreated
	}
	err := s.gateway.CreateInvoiceItem(ctx, gateway.InvoiceItemParams{
		CustomerID:  *customer.StripeID,
		Amount:      amount,
		Currency:    s.billing.DefaultCurrency(),
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice item: %w", err)
	}
	return nil
}

// Invoice collects the customer's pending invoice items into an invoice
// and settles it by its collection method. A card decline surfaces as an
// IncompletePaymentError; "nothing to invoice" returns (nil, nil).
func (s *CustomerService) Invoice(ctx context.Context, customer *model.Customer) (*gateway.Invoice, error) {
	if !customer.HasStripeID() {
		return nil, domainerrors.ErrCustomerNotCreated
	}

	invoice, err := s.gateway.CreateInvoice(ctx, gateway.InvoiceCreateParams{
		CustomerID: *customer.StripeID,
	})
	if err != nil {
		if gateway.IsInvalidRequest(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	if invoice.CollectionMethod == "send_invoice" {
		sent, err := s.gateway.SendInvoice(ctx, invoice.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to send invoice: %w", err)
		}
		return sent, nil
	}

	paid, err := s.gateway.PayInvoice(ctx, invoice.ID)
	if err != nil {
		if gateway.IsCardError(err) && invoice.PaymentIntentID != "" {
			intent, piErr := s.gateway.GetPaymentIntent(ctx, invoice.PaymentIntentID)
			if piErr == nil {
				if vErr := NewPayment(intent).Validate(); vErr != nil {
					return invoice, vErr
				}
			}
		}
		return nil, fmt.Errorf("failed to pay invoice: %w", err)
	}
	return paid, nil
}

// UpcomingInvoice previews the customer's next invoice, or (nil, nil)
// when there is none.
func (s *CustomerService) UpcomingInvoice(ctx context.Context, customer *model.Customer) (*gateway.Invoice, error) {
	if !customer.HasStripeID() {
		return nil, nil
	}
	invoice, err := s.gateway.UpcomingInvoice(ctx, *customer.StripeID)
	if err != nil {
		if gateway.IsInvalidRequest(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to preview upcoming invoice: %w", err)
	}
	return invoice, nil
}

// FindInvoice retrieves an invoice by id. Any retrieval failure reads as
// not found; an ownership mismatch is an access error.
func (s *CustomerService) FindInvoice(ctx context.Context, customer *model.Customer, invoiceID string) (*gateway.Invoice, error) {
	invoice, err := s.gateway.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil
	}
	if !customer.HasStripeID() || invoice.CustomerID != *customer.StripeID {
		return nil, domainerrors.ErrInvalidInvoiceOwner
	}
	return invoice, nil
}

// Invoices lists the customer's invoices.
func (s *CustomerService) Invoices(ctx context.Context, customer *model.Customer, limit int64) ([]*gateway.Invoice, error) {
	if !customer.HasStripeID() {
		return nil, nil
	}
	invoices, err := s.gateway.ListInvoices(ctx, gateway.InvoiceListParams{
		CustomerID: *customer.StripeID,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}
