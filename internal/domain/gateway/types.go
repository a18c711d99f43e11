package gateway

// Plain projections of gateway objects. Only the fields the billing engine
// actually consumes are decoded at the boundary; nothing forwards ad hoc
// field access to the underlying SDK response.

// Subscription projects a remote gateway subscription.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	PlanID            string // top-level plan id, empty for multi-plan subscriptions
	Quantity          int64
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  int64 // unix seconds
	TrialEnd          int64 // unix seconds, zero when no trial

	// Items is nil when the source payload carried no item list at all,
	// and empty but non-nil when it carried an empty one.
	Items []Item

	// LatestPaymentIntent is populated when the call expanded the latest
	// invoice's payment intent.
	LatestPaymentIntent *PaymentIntent
}

// Item projects a remote subscription item.
type Item struct {
	ID       string
	PlanID   string
	Quantity int64
}

// Payment intent statuses the engine classifies.
const (
	PaymentStatusRequiresPaymentMethod = "requires_payment_method"
	PaymentStatusRequiresAction        = "requires_action"
	PaymentStatusCanceled              = "canceled"
	PaymentStatusSucceeded             = "succeeded"
)

// PaymentIntent projects one payment attempt's outcome.
type PaymentIntent struct {
	ID           string
	Amount       int64
	Currency     string
	Status       string
	ClientSecret string
}

// Customer projects a remote gateway customer.
type Customer struct {
	ID                     string
	Email                  string
	DefaultPaymentMethodID string
	DefaultPaymentMethod   *PaymentMethod
	TaxExempt              string
}

// PaymentMethod projects a remote payment method (card details only).
type PaymentMethod struct {
	ID           string
	CustomerID   string
	Type         string
	CardBrand    string
	CardLastFour string
}

// Invoice projects a remote invoice.
type Invoice struct {
	ID               string
	CustomerID       string
	SubscriptionID   string
	Status           string
	CollectionMethod string
	Currency         string
	Total            int64
	Subtotal         int64
	Tax              int64
	StartingBalance  int64
	Paid             bool
	PaymentIntentID  string
	Created          int64
}

// SetupIntent projects a remote setup intent.
type SetupIntent struct {
	ID           string
	ClientSecret string
}

// Refund projects a remote refund.
type Refund struct {
	ID     string
	Status string
}

// PortalSession projects a billing portal session.
type PortalSession struct {
	URL string
}

// ItemParams describes one subscription item in a create or update
// payload. Deleted marks an explicit tombstone: omitting an item would
// leave it untouched on the gateway, so removals must be spelled out.
type ItemParams struct {
	ID       string
	Plan     string
	Quantity int64
	TaxRates []string
	Deleted  bool
}

// SubscriptionCreateParams is the payload for creating a subscription.
type SubscriptionCreateParams struct {
	CustomerID         string
	Items              []ItemParams
	Coupon             string
	Metadata           map[string]string
	BillingCycleAnchor int64 // unix seconds, zero when unset
	TrialEnd           int64 // unix seconds, zero when unset
	TrialEndNow        bool  // end any trial immediately; wins over TrialEnd
	PaymentBehavior    string
	ProrationBehavior  string
	DefaultTaxRates    []string
	TaxPercent         float64 // flat percentage, sent only when > 0 and no DefaultTaxRates
	OffSession         bool
}

// SubscriptionUpdateParams is the payload for updating a subscription.
// Quantity has no top-level field: the gateway bills quantities per item,
// so a quantity change is expressed through Items.
type SubscriptionUpdateParams struct {
	Items              []ItemParams
	PaymentBehavior    string
	ProrationBehavior  string
	CancelAtPeriodEnd  *bool
	BillingCycleAnchor int64
	TrialEnd           int64
	TrialEndNow        bool

	// ExpandLatestPayment asks the gateway to include the latest invoice's
	// payment intent in the response.
	ExpandLatestPayment bool
}

// SubscriptionCancelParams is the payload for an immediate cancellation.
type SubscriptionCancelParams struct {
	InvoiceNow bool
	Prorate    bool
}

// ItemCreateParams is the payload for adding an item to an existing
// subscription.
type ItemCreateParams struct {
	Plan              string
	Quantity          int64
	TaxRates          []string
	PaymentBehavior   string
	ProrationBehavior string
}

// ItemUpdateParams is the payload for updating a subscription item.
type ItemUpdateParams struct {
	Plan              string
	Quantity          *int64
	TaxRates          []string
	PaymentBehavior   string
	ProrationBehavior string
}

// ItemDeleteParams is the payload for deleting a subscription item.
type ItemDeleteParams struct {
	ProrationBehavior string
}

// CustomerCreateParams is the payload for creating a customer.
type CustomerCreateParams struct {
	Email    string
	Metadata map[string]string
}

// CustomerUpdateParams is the payload for updating a customer. Nil fields
// are left untouched.
type CustomerUpdateParams struct {
	Coupon                 *string
	DefaultPaymentMethodID *string
}

// PaymentIntentCreateParams is the payload for an ad hoc charge.
type PaymentIntentCreateParams struct {
	Amount             int64
	Currency           string
	CustomerID         string
	PaymentMethodID    string
	Confirm            bool
	ConfirmationMethod string
	Metadata           map[string]string
}

// InvoiceCreateParams is the payload for creating an invoice.
type InvoiceCreateParams struct {
	CustomerID     string
	SubscriptionID string
	Description    string
}

// InvoiceItemParams is the payload for adding a pending invoice item.
type InvoiceItemParams struct {
	CustomerID  string
	Amount      int64
	Currency    string
	Description string
}

// InvoiceListParams filters an invoice listing.
type InvoiceListParams struct {
	CustomerID string
	Limit      int64
}

// RefundParams is the payload for refunding a payment.
type RefundParams struct {
	PaymentIntentID string
}

// PortalSessionParams is the payload for a billing portal session.
type PortalSessionParams struct {
	CustomerID string
	ReturnURL  string
}
