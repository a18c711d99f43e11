package errors

import (
	"errors"
	"fmt"

	"github.com/subware/billing-service/internal/domain/gateway"
)

// IncompletePaymentError is returned when a subscription mutation produced a
// payment that needs further customer involvement before it settles. The
// subscription state has already been persisted by the time this is returned.
type IncompletePaymentError struct {
	Payment *gateway.PaymentIntent
}

func (e *IncompletePaymentError) Error() string {
	switch e.Payment.Status {
	case gateway.PaymentStatusRequiresAction:
		return fmt.Sprintf("payment %s requires additional customer action before it can be completed", e.Payment.ID)
	case gateway.PaymentStatusRequiresPaymentMethod:
		return fmt.Sprintf("payment %s was attempted but failed: a valid payment method is required", e.Payment.ID)
	default:
		return fmt.Sprintf("payment %s is incomplete with status %s", e.Payment.ID, e.Payment.Status)
	}
}

// AsIncompletePayment unwraps err into an IncompletePaymentError if it is one.
func AsIncompletePayment(err error) (*IncompletePaymentError, bool) {
	var ipe *IncompletePaymentError
	if errors.As(err, &ipe) {
		return ipe, true
	}
	return nil, false
}
