// Package promo validates promo codes against the current cart and computes
// the resulting discount. Discounts are presentation-level: they are quoted
// against a cart snapshot and never written into it.
package promo

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/falcon-storefront/internal/cart"
)

// ErrInvalidCode is returned for codes that match neither a built-in rule
// nor the bulk code set.
var ErrInvalidCode = errors.New("invalid promo code")

var hundred = decimal.NewFromInt(100)

// Rule is a percentage discount attached to a promo code.
type Rule struct {
	Code        string
	Percent     decimal.Decimal
	Description string
}

// Discount is a quoted discount amount for a specific cart state.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Built-in codes. These are the stub rules the storefront launched with.
var builtinRules = map[string]Rule{
	"SAVE10": {Code: "SAVE10", Percent: decimal.NewFromInt(10), Description: "10% off your order"},
	"SAVE20": {Code: "SAVE20", Percent: decimal.NewFromInt(20), Description: "20% off your order"},
}

// bulkRule applies to any code found in the bulk code set.
var bulkRule = Rule{Percent: decimal.NewFromInt(10), Description: "Valid promo code: 10% off"}

// Validator resolves promo codes case-insensitively against the built-in
// rules and an optional bulk code set.
type Validator struct {
	codes *CodeSet
}

// NewValidator creates a Validator. codes may be nil when no bulk set is
// configured.
func NewValidator(codes *CodeSet) *Validator {
	return &Validator{codes: codes}
}

// Quote validates the code and computes its discount over the cart's total
// amount, rounded to 2 decimal places and clamped to the total.
func (v *Validator) Quote(code string, c cart.Cart) (*Discount, error) {
	rule, ok := v.resolve(code)
	if !ok {
		return nil, ErrInvalidCode
	}

	amount := c.TotalAmount.Mul(rule.Percent).Div(hundred).Round(2)
	if amount.GreaterThan(c.TotalAmount) {
		amount = c.TotalAmount
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return &Discount{
		Code:        rule.Code,
		Amount:      amount,
		Description: rule.Description,
	}, nil
}

func (v *Validator) resolve(code string) (Rule, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Rule{}, false
	}
	if rule, ok := builtinRules[normalized]; ok {
		return rule, true
	}
	if v.codes != nil && v.codes.Contains(normalized) {
		rule := bulkRule
		rule.Code = normalized
		return rule, true
	}
	return Rule{}, false
}
