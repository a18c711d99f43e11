package stripe

import (
	"github.com/stripe/stripe-go/v79"

	"github.com/subware/billing-service/internal/domain/gateway"
)

// ProjectSubscription decodes a Stripe subscription into the plain domain
// projection. The webhook handler uses it on event payloads; the gateway
// uses it on API responses. The top-level plan shortcut is derived from
// the item list: it is set only when exactly one item exists.
func ProjectSubscription(sub *stripe.Subscription) *gateway.Subscription {
	out := &gateway.Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		TrialEnd:          sub.TrialEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}

	// Items stays nil when the payload omitted the item list entirely;
	// a present-but-empty list projects to an empty non-nil slice so the
	// reconciler can tell the two apart.
	if sub.Items != nil {
		out.Items = make([]gateway.Item, 0, len(sub.Items.Data))
		for _, item := range sub.Items.Data {
			out.Items = append(out.Items, *projectItem(item))
		}
	}
	if len(out.Items) == 1 {
		out.PlanID = out.Items[0].PlanID
		out.Quantity = out.Items[0].Quantity
	}

	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.LatestPaymentIntent = projectPaymentIntent(sub.LatestInvoice.PaymentIntent)
	}
	return out
}

func projectSubscription(sub *stripe.Subscription) *gateway.Subscription {
	return ProjectSubscription(sub)
}

func projectItem(item *stripe.SubscriptionItem) *gateway.Item {
	out := &gateway.Item{
		ID:       item.ID,
		Quantity: item.Quantity,
	}
	if item.Plan != nil {
		out.PlanID = item.Plan.ID
	} else if item.Price != nil {
		out.PlanID = item.Price.ID
	}
	return out
}

func projectPaymentIntent(intent *stripe.PaymentIntent) *gateway.PaymentIntent {
	return &gateway.PaymentIntent{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}
}

func projectCustomer(c *stripe.Customer) *gateway.Customer {
	out := &gateway.Customer{
		ID:        c.ID,
		Email:     c.Email,
		TaxExempt: string(c.TaxExempt),
	}
	if c.InvoiceSettings != nil && c.InvoiceSettings.DefaultPaymentMethod != nil {
		pm := c.InvoiceSettings.DefaultPaymentMethod
		out.DefaultPaymentMethodID = pm.ID
		// Card details are present only when the retrieval expanded the
		// default payment method.
		if pm.Card != nil {
			out.DefaultPaymentMethod = projectPaymentMethod(pm)
		}
	}
	return out
}

func projectPaymentMethod(pm *stripe.PaymentMethod) *gateway.PaymentMethod {
	out := &gateway.PaymentMethod{
		ID:   pm.ID,
		Type: string(pm.Type),
	}
	if pm.Customer != nil {
		out.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		out.CardBrand = string(pm.Card.Brand)
		out.CardLastFour = pm.Card.Last4
	}
	return out
}

func projectInvoice(inv *stripe.Invoice) *gateway.Invoice {
	out := &gateway.Invoice{
		ID:               inv.ID,
		Status:           string(inv.Status),
		CollectionMethod: string(inv.CollectionMethod),
		Currency:         string(inv.Currency),
		Total:            inv.Total,
		Subtotal:         inv.Subtotal,
		Tax:              inv.Tax,
		StartingBalance:  inv.StartingBalance,
		Paid:             inv.Paid,
		Created:          inv.Created,
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	if inv.PaymentIntent != nil {
		out.PaymentIntentID = inv.PaymentIntent.ID
	}
	return out
}
