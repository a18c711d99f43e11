package usecase

import (
	domainerrors "github.com/subware/billing-service/internal/domain/errors"
	"github.com/subware/billing-service/internal/domain/gateway"
)

// Payment wraps a gateway payment intent with settlement predicates.
type Payment struct {
	Intent *gateway.PaymentIntent
}

func NewPayment(intent *gateway.PaymentIntent) *Payment {
	return &Payment{Intent: intent}
}

func (p *Payment) RequiresPaymentMethod() bool {
	return p.Intent.Status == gateway.PaymentStatusRequiresPaymentMethod
}

func (p *Payment) RequiresAction() bool {
	return p.Intent.Status == gateway.PaymentStatusRequiresAction
}

func (p *Payment) IsCanceled() bool {
	return p.Intent.Status == gateway.PaymentStatusCanceled
}

func (p *Payment) IsSucceeded() bool {
	return p.Intent.Status == gateway.PaymentStatusSucceeded
}

// Validate returns an IncompletePaymentError when the payment still needs
// customer involvement, nil otherwise.
func (p *Payment) Validate() error {
	if p.RequiresPaymentMethod() || p.RequiresAction() {
		return &domainerrors.IncompletePaymentError{Payment: p.Intent}
	}
	return nil
}
