package config

import "time"

// BillingConfig carries the gateway credentials and billing behavior knobs.
type BillingConfig struct {
	StripeSecretKey     string `yaml:"stripe_secret_key" validate:"required"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	// WebhookTolerance bounds the age of a signed webhook payload.
	// Zero falls back to the gateway default of five minutes.
	WebhookTolerance time.Duration `yaml:"webhook_tolerance"`
	// Currency is the default currency for one-off charges and invoices
	Currency string `yaml:"currency"`
	// DeactivatePastDue treats past_due subscriptions as inactive when true
	DeactivatePastDue bool `yaml:"deactivate_past_due"`
}

// DefaultCurrency returns the configured currency or usd.
func (c *BillingConfig) DefaultCurrency() string {
	if c.Currency == "" {
		return "usd"
	}
	return c.Currency
}
