package errors

import "errors"

var (
	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrPlanNotFound indicates that the subscription has no item for the given plan
	ErrPlanNotFound = errors.New("no subscription item found for plan")

	// ErrSubscriptionIncomplete indicates a mutation was attempted while the
	// subscription's first payment has not resolved
	ErrSubscriptionIncomplete = errors.New("subscription cannot be updated because its payment is incomplete")

	// ErrDuplicatePlan indicates the plan is already attached to the subscription
	ErrDuplicatePlan = errors.New("plan is already attached to the subscription")

	// ErrCannotDeleteLastPlan indicates an attempt to remove the only remaining plan
	ErrCannotDeleteLastPlan = errors.New("the last plan on a subscription cannot be removed")

	// ErrPlanRequired indicates a quantity operation on a multi-plan
	// subscription without naming the target plan
	ErrPlanRequired = errors.New("a plan argument is required because the subscription has multiple plans")

	// ErrNotOnGracePeriod indicates a resume outside the cancellation grace period
	ErrNotOnGracePeriod = errors.New("unable to resume a subscription that is not within its grace period")

	// ErrTrialDateNotInFuture indicates a trial extension to a non-future date
	ErrTrialDateNotInFuture = errors.New("extending a trial requires a date in the future")

	// ErrNoPlansProvided indicates a swap with an empty target plan set
	ErrNoPlansProvided = errors.New("at least one plan is required when swapping")

	// ErrCustomerAlreadyCreated indicates the entity already has a gateway customer
	ErrCustomerAlreadyCreated = errors.New("entity is already a gateway customer")

	// ErrCustomerNotCreated indicates the entity has no gateway customer yet
	ErrCustomerNotCreated = errors.New("entity is not a gateway customer yet")

	// ErrInvalidInvoiceOwner indicates an invoice whose recorded customer does
	// not match the owning entity's gateway identity
	ErrInvalidInvoiceOwner = errors.New("invoice does not belong to this customer")

	// ErrInvalidPaymentMethodOwner indicates a payment method whose recorded
	// customer does not match the owning entity's gateway identity
	ErrInvalidPaymentMethodOwner = errors.New("payment method does not belong to this customer")
)
