package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/invoice"
	"github.com/stripe/stripe-go/v79/invoiceitem"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/paymentmethod"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/setupintent"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/subscriptionitem"
	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/domain/gateway"
)

// Gateway implements the domain gateway port on the Stripe SDK. All SDK
// types stay inside this package; responses are projected into the plain
// structs the engine consumes.
type Gateway struct {
	logger *zap.Logger
}

// NewGateway configures the Stripe client with the secret key and returns
// the gateway.
func NewGateway(secretKey string, logger *zap.Logger) *Gateway {
	stripe.Key = secretKey
	return &Gateway{logger: logger}
}

func (g *Gateway) CreateSubscription(ctx context.Context, params gateway.SubscriptionCreateParams) (*gateway.Subscription, error) {
	p := &stripe.SubscriptionParams{
		Customer:   stripe.String(params.CustomerID),
		OffSession: stripe.Bool(params.OffSession),
	}
	p.Context = ctx
	p.AddExpand("latest_invoice.payment_intent")

	for _, item := range params.Items {
		p.Items = append(p.Items, itemParams(item))
	}
	if params.Coupon != "" {
		p.Coupon = stripe.String(params.Coupon)
	}
	for key, value := range params.Metadata {
		p.AddMetadata(key, value)
	}
	if params.BillingCycleAnchor != 0 {
		p.BillingCycleAnchor = stripe.Int64(params.BillingCycleAnchor)
	}
	if params.TrialEndNow {
		p.TrialEndNow = stripe.Bool(true)
	} else if params.TrialEnd != 0 {
		p.TrialEnd = stripe.Int64(params.TrialEnd)
	}
	if params.PaymentBehavior != "" {
		p.PaymentBehavior = stripe.String(params.PaymentBehavior)
	}
	if params.ProrationBehavior != "" {
		p.ProrationBehavior = stripe.String(params.ProrationBehavior)
	}
	if len(params.DefaultTaxRates) > 0 {
		p.DefaultTaxRates = stripe.StringSlice(params.DefaultTaxRates)
	} else if params.TaxPercent > 0 {
		// tax_percent is gone from the typed params but still accepted on
		// the wire for accounts created before tax rates existed.
		p.AddExtra("tax_percent", fmt.Sprintf("%g", params.TaxPercent))
	}

	sub, err := subscription.New(p)
	if err != nil {
		return nil, g.wrap("create subscription", err)
	}
	return projectSubscription(sub), nil
}

func (g *Gateway) GetSubscription(ctx context.Context, id string) (*gateway.Subscription, error) {
	p := &stripe.SubscriptionParams{}
	p.Context = ctx
	p.AddExpand("latest_invoice.payment_intent")

	sub, err := subscription.Get(id, p)
	if err != nil {
		return nil, g.wrap("get subscription", err)
	}
	return projectSubscription(sub), nil
}

func (g *Gateway) UpdateSubscription(ctx context.Context, id string, params gateway.SubscriptionUpdateParams) (*gateway.Subscription, error) {
	p := &stripe.SubscriptionParams{}
	p.Context = ctx
	if params.ExpandLatestPayment {
		p.AddExpand("latest_invoice.payment_intent")
	}

	for _, item := range params.Items {
		p.Items = append(p.Items, itemParams(item))
	}
	if params.CancelAtPeriodEnd != nil {
		p.CancelAtPeriodEnd = stripe.Bool(*params.CancelAtPeriodEnd)
	}
	if params.BillingCycleAnchor != 0 {
		p.BillingCycleAnchor = stripe.Int64(params.BillingCycleAnchor)
	}
	if params.TrialEndNow {
		p.TrialEndNow = stripe.Bool(true)
	} else if params.TrialEnd != 0 {
		p.TrialEnd = stripe.Int64(params.TrialEnd)
	}
	if params.PaymentBehavior != "" {
		p.PaymentBehavior = stripe.String(params.PaymentBehavior)
	}
	if params.ProrationBehavior != "" {
		p.ProrationBehavior = stripe.String(params.ProrationBehavior)
	}

	sub, err := subscription.Update(id, p)
	if err != nil {
		return nil, g.wrap("update subscription", err)
	}
	return projectSubscription(sub), nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, id string, params gateway.SubscriptionCancelParams) (*gateway.Subscription, error) {
	p := &stripe.SubscriptionCancelParams{
		InvoiceNow: stripe.Bool(params.InvoiceNow),
		Prorate:    stripe.Bool(params.Prorate),
	}
	p.Context = ctx

	sub, err := subscription.Cancel(id, p)
	if err != nil {
		return nil, g.wrap("cancel subscription", err)
	}
	return projectSubscription(sub), nil
}

func (g *Gateway) CreateSubscriptionItem(ctx context.Context, subscriptionID string, params gateway.ItemCreateParams) (*gateway.Item, error) {
	p := &stripe.SubscriptionItemParams{
		Subscription: stripe.String(subscriptionID),
		Plan:         stripe.String(params.Plan),
		Quantity:     stripe.Int64(params.Quantity),
	}
	p.Context = ctx
	if len(params.TaxRates) > 0 {
		p.TaxRates = stripe.StringSlice(params.TaxRates)
	}
	if params.PaymentBehavior != "" {
		p.PaymentBehavior = stripe.String(params.PaymentBehavior)
	}
	if params.ProrationBehavior != "" {
		p.ProrationBehavior = stripe.String(params.ProrationBehavior)
	}

	item, err := subscriptionitem.New(p)
	if err != nil {
		return nil, g.wrap("create subscription item", err)
	}
	return projectItem(item), nil
}

func (g *Gateway) UpdateSubscriptionItem(ctx context.Context, itemID string, params gateway.ItemUpdateParams) (*gateway.Item, error) {
	p := &stripe.SubscriptionItemParams{}
	p.Context = ctx
	if params.Plan != "" {
		p.Plan = stripe.String(params.Plan)
	}
	if params.Quantity != nil {
		p.Quantity = stripe.Int64(*params.Quantity)
	}
	if len(params.TaxRates) > 0 {
		p.TaxRates = stripe.StringSlice(params.TaxRates)
	}
	if params.PaymentBehavior != "" {
		p.PaymentBehavior = stripe.String(params.PaymentBehavior)
	}
	if params.ProrationBehavior != "" {
		p.ProrationBehavior = stripe.String(params.ProrationBehavior)
	}

	item, err := subscriptionitem.Update(itemID, p)
	if err != nil {
		return nil, g.wrap("update subscription item", err)
	}
	return projectItem(item), nil
}

func (g *Gateway) DeleteSubscriptionItem(ctx context.Context, itemID string, params gateway.ItemDeleteParams) error {
	p := &stripe.SubscriptionItemParams{}
	p.Context = ctx
	if params.ProrationBehavior != "" {
		p.ProrationBehavior = stripe.String(params.ProrationBehavior)
	}

	if _, err := subscriptionitem.Del(itemID, p); err != nil {
		return g.wrap("delete subscription item", err)
	}
	return nil
}

func (g *Gateway) GetPaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	p := &stripe.PaymentIntentParams{}
	p.Context = ctx

	intent, err := paymentintent.Get(id, p)
	if err != nil {
		return nil, g.wrap("get payment intent", err)
	}
	return projectPaymentIntent(intent), nil
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, params gateway.PaymentIntentCreateParams) (*gateway.PaymentIntent, error) {
	p := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.Amount),
		Currency: stripe.String(params.Currency),
		Confirm:  stripe.Bool(params.Confirm),
	}
	p.Context = ctx
	if params.CustomerID != "" {
		p.Customer = stripe.String(params.CustomerID)
	}
	if params.PaymentMethodID != "" {
		p.PaymentMethod = stripe.String(params.PaymentMethodID)
	}
	if params.ConfirmationMethod != "" {
		p.ConfirmationMethod = stripe.String(params.ConfirmationMethod)
	}
	for key, value := range params.Metadata {
		p.AddMetadata(key, value)
	}

	intent, err := paymentintent.New(p)
	if err != nil {
		return nil, g.wrap("create payment intent", err)
	}
	return projectPaymentIntent(intent), nil
}

func (g *Gateway) CreateSetupIntent(ctx context.Context, customerID string) (*gateway.SetupIntent, error) {
	p := &stripe.SetupIntentParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	p.Context = ctx
	if customerID != "" {
		p.Customer = stripe.String(customerID)
	}

	intent, err := setupintent.New(p)
	if err != nil {
		return nil, g.wrap("create setup intent", err)
	}
	return &gateway.SetupIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *Gateway) CreateRefund(ctx context.Context, params gateway.RefundParams) (*gateway.Refund, error) {
	p := &stripe.RefundParams{
		PaymentIntent: stripe.String(params.PaymentIntentID),
	}
	p.Context = ctx

	r, err := refund.New(p)
	if err != nil {
		return nil, g.wrap("create refund", err)
	}
	return &gateway.Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, params gateway.CustomerCreateParams) (*gateway.Customer, error) {
	p := &stripe.CustomerParams{}
	p.Context = ctx
	if params.Email != "" {
		p.Email = stripe.String(params.Email)
	}
	for key, value := range params.Metadata {
		p.AddMetadata(key, value)
	}

	c, err := customer.New(p)
	if err != nil {
		return nil, g.wrap("create customer", err)
	}
	return projectCustomer(c), nil
}

func (g *Gateway) GetCustomer(ctx context.Context, id string) (*gateway.Customer, error) {
	p := &stripe.CustomerParams{}
	p.Context = ctx
	p.AddExpand("invoice_settings.default_payment_method")

	c, err := customer.Get(id, p)
	if err != nil {
		return nil, g.wrap("get customer", err)
	}
	return projectCustomer(c), nil
}

func (g *Gateway) UpdateCustomer(ctx context.Context, id string, params gateway.CustomerUpdateParams) (*gateway.Customer, error) {
	p := &stripe.CustomerParams{}
	p.Context = ctx
	if params.Coupon != nil {
		p.Coupon = stripe.String(*params.Coupon)
	}
	if params.DefaultPaymentMethodID != nil {
		p.InvoiceSettings = &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(*params.DefaultPaymentMethodID),
		}
	}

	c, err := customer.Update(id, p)
	if err != nil {
		return nil, g.wrap("update customer", err)
	}
	return projectCustomer(c), nil
}

func (g *Gateway) ListPaymentMethods(ctx context.Context, customerID string, limit int64) ([]*gateway.PaymentMethod, error) {
	p := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	p.Context = ctx
	if limit > 0 {
		p.Limit = stripe.Int64(limit)
	}

	var methods []*gateway.PaymentMethod
	iter := paymentmethod.List(p)
	for iter.Next() {
		methods = append(methods, projectPaymentMethod(iter.PaymentMethod()))
	}
	if err := iter.Err(); err != nil {
		return nil, g.wrap("list payment methods", err)
	}
	return methods, nil
}

func (g *Gateway) GetPaymentMethod(ctx context.Context, id string) (*gateway.PaymentMethod, error) {
	p := &stripe.PaymentMethodParams{}
	p.Context = ctx

	pm, err := paymentmethod.Get(id, p)
	if err != nil {
		return nil, g.wrap("get payment method", err)
	}
	return projectPaymentMethod(pm), nil
}

func (g *Gateway) AttachPaymentMethod(ctx context.Context, id, customerID string) (*gateway.PaymentMethod, error) {
	p := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	p.Context = ctx

	pm, err := paymentmethod.Attach(id, p)
	if err != nil {
		return nil, g.wrap("attach payment method", err)
	}
	return projectPaymentMethod(pm), nil
}

func (g *Gateway) DetachPaymentMethod(ctx context.Context, id string) error {
	p := &stripe.PaymentMethodDetachParams{}
	p.Context = ctx

	if _, err := paymentmethod.Detach(id, p); err != nil {
		return g.wrap("detach payment method", err)
	}
	return nil
}

func (g *Gateway) CreateInvoice(ctx context.Context, params gateway.InvoiceCreateParams) (*gateway.Invoice, error) {
	p := &stripe.InvoiceParams{
		Customer: stripe.String(params.CustomerID),
	}
	p.Context = ctx
	if params.SubscriptionID != "" {
		p.Subscription = stripe.String(params.SubscriptionID)
	}
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}

	inv, err := invoice.New(p)
	if err != nil {
		return nil, g.wrap("create invoice", err)
	}
	return projectInvoice(inv), nil
}

func (g *Gateway) PayInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	p := &stripe.InvoicePayParams{}
	p.Context = ctx

	inv, err := invoice.Pay(id, p)
	if err != nil {
		return nil, g.wrap("pay invoice", err)
	}
	return projectInvoice(inv), nil
}

func (g *Gateway) SendInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	p := &stripe.InvoiceSendInvoiceParams{}
	p.Context = ctx

	inv, err := invoice.SendInvoice(id, p)
	if err != nil {
		return nil, g.wrap("send invoice", err)
	}
	return projectInvoice(inv), nil
}

func (g *Gateway) GetInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	p := &stripe.InvoiceParams{}
	p.Context = ctx

	inv, err := invoice.Get(id, p)
	if err != nil {
		return nil, g.wrap("get invoice", err)
	}
	return projectInvoice(inv), nil
}

func (g *Gateway) UpcomingInvoice(ctx context.Context, customerID string) (*gateway.Invoice, error) {
	p := &stripe.InvoiceUpcomingParams{
		Customer: stripe.String(customerID),
	}
	p.Context = ctx

	inv, err := invoice.Upcoming(p)
	if err != nil {
		return nil, g.wrap("preview upcoming invoice", err)
	}
	return projectInvoice(inv), nil
}

func (g *Gateway) ListInvoices(ctx context.Context, params gateway.InvoiceListParams) ([]*gateway.Invoice, error) {
	p := &stripe.InvoiceListParams{
		Customer: stripe.String(params.CustomerID),
	}
	p.Context = ctx
	if params.Limit > 0 {
		p.Limit = stripe.Int64(params.Limit)
	}

	var invoices []*gateway.Invoice
	iter := invoice.List(p)
	for iter.Next() {
		invoices = append(invoices, projectInvoice(iter.Invoice()))
	}
	if err := iter.Err(); err != nil {
		return nil, g.wrap("list invoices", err)
	}
	return invoices, nil
}

func (g *Gateway) VoidInvoice(ctx context.Context, id string) (*gateway.Invoice, error) {
	p := &stripe.InvoiceVoidInvoiceParams{}
	p.Context = ctx

	inv, err := invoice.VoidInvoice(id, p)
	if err != nil {
		return nil, g.wrap("void invoice", err)
	}
	return projectInvoice(inv), nil
}

func (g *Gateway) CreateInvoiceItem(ctx context.Context, params gateway.InvoiceItemParams) error {
	p := &stripe.InvoiceItemParams{
		Customer: stripe.String(params.CustomerID),
		Amount:   stripe.Int64(params.Amount),
		Currency: stripe.String(params.Currency),
	}
	p.Context = ctx
	if params.Description != "" {
		p.Description = stripe.String(params.Description)
	}

	if _, err := invoiceitem.New(p); err != nil {
		return g.wrap("create invoice item", err)
	}
	return nil
}

func (g *Gateway) CreateBillingPortalSession(ctx context.Context, params gateway.PortalSessionParams) (*gateway.PortalSession, error) {
	p := &stripe.BillingPortalSessionParams{
		Customer: stripe.String(params.CustomerID),
	}
	p.Context = ctx
	if params.ReturnURL != "" {
		p.ReturnURL = stripe.String(params.ReturnURL)
	}

	session, err := portalsession.New(p)
	if err != nil {
		return nil, g.wrap("create billing portal session", err)
	}
	return &gateway.PortalSession{URL: session.URL}, nil
}

func itemParams(item gateway.ItemParams) *stripe.SubscriptionItemsParams {
	p := &stripe.SubscriptionItemsParams{}
	if item.ID != "" {
		p.ID = stripe.String(item.ID)
	}
	if item.Deleted {
		p.Deleted = stripe.Bool(true)
		return p
	}
	// Plan is omitted on quantity-only updates addressed by item id.
	if item.Plan != "" {
		p.Plan = stripe.String(item.Plan)
	}
	if item.Quantity > 0 {
		p.Quantity = stripe.Int64(item.Quantity)
	}
	if len(item.TaxRates) > 0 {
		p.TaxRates = stripe.StringSlice(item.TaxRates)
	}
	return p
}

// wrap classifies an SDK error into the domain gateway error taxonomy.
func (g *Gateway) wrap(op string, err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("stripe: %s: %w", op, err)
	}

	// The SDK has no dedicated authentication error type; a rejected API
	// key surfaces as a plain 401.
	errType := gateway.ErrTypeAPI
	switch {
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		errType = gateway.ErrTypeInvalidRequest
	case stripeErr.Type == stripe.ErrorTypeCard:
		errType = gateway.ErrTypeCard
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized:
		errType = gateway.ErrTypeAuthentication
	}

	g.logger.Warn("stripe call failed",
		zap.String("op", op),
		zap.String("type", string(stripeErr.Type)),
		zap.String("code", string(stripeErr.Code)))

	return &gateway.Error{
		Type:    errType,
		Code:    string(stripeErr.Code),
		Message: stripeErr.Msg,
	}
}
