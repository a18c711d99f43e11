package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is the billable entity: the local account that owns
// subscriptions and is charged through the payment gateway.
type Customer struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"size:255" json:"email"`
	StripeID     *string    `gorm:"unique;size:100" json:"stripe_id,omitempty"`
	CardBrand    *string    `gorm:"size:50" json:"card_brand,omitempty"`
	CardLastFour *string    `gorm:"size:4" json:"card_last_four,omitempty"`
	TrialEndsAt  *time.Time `json:"trial_ends_at,omitempty"`

	// Tax configuration supplied externally. DefaultTaxRates apply to the
	// whole subscription, PlanTaxRates to individual plan items. When
	// DefaultTaxRates is non-empty the flat TaxPercent is never sent.
	DefaultTaxRates StringList      `gorm:"type:jsonb" json:"default_tax_rates,omitempty"`
	PlanTaxRates    PlanTaxRateMap  `gorm:"type:jsonb" json:"plan_tax_rates,omitempty"`
	TaxPercent      decimal.Decimal `gorm:"type:numeric(5,2);default:0" json:"tax_percent"`

	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updated_at"`

	// Relations
	Subscriptions []Subscription `gorm:"foreignKey:CustomerID" json:"subscriptions,omitempty"`
}

// HasStripeID reports whether the customer has been created at the gateway.
func (c *Customer) HasStripeID() bool {
	return c.StripeID != nil && *c.StripeID != ""
}

// OnGenericTrial reports whether the customer is on a trial at the account
// level, before any subscription exists.
func (c *Customer) OnGenericTrial() bool {
	return c.TrialEndsAt != nil && c.TrialEndsAt.After(time.Now())
}

// HasDefaultPaymentMethod reports whether card details are mirrored locally.
func (c *Customer) HasDefaultPaymentMethod() bool {
	return c.CardBrand != nil && *c.CardBrand != ""
}

// PlanTaxRatesFor returns the tax rate ids configured for the given plan,
// or nil when none are configured.
func (c *Customer) PlanTaxRatesFor(plan string) []string {
	if len(c.PlanTaxRates) == 0 {
		return nil
	}
	return c.PlanTaxRates[plan]
}

// TableName specifies the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// StringList represents a JSONB array of strings
type StringList []string

// Value implements driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		*l = nil
		return nil
	}
}

// PlanTaxRateMap represents a JSONB mapping of plan id to tax rate ids
type PlanTaxRateMap map[string][]string

// Value implements driver.Valuer interface
func (m PlanTaxRateMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface
func (m *PlanTaxRateMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		*m = make(PlanTaxRateMap)
		return nil
	}
}
