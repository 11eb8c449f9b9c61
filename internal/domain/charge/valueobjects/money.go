package valueobjects

import (
	"fmt"

	"pixgate/internal/shared/errors"
)

// Money represents a monetary amount stored in minor units (centavos).
// All arithmetic and comparison happen on the integer minor-unit value;
// floating point is only used at the presentation boundary.
type Money struct {
	cents    int64
	currency string
}

// DefaultCurrency is the currency used when none is specified.
const DefaultCurrency = "BRL"

// NewMoney creates Money from minor units (e.g. 1050 = R$10.50).
func NewMoney(cents int64, currency string) (Money, error) {
	if cents <= 0 {
		return Money{}, errors.NewValidationError("amount must be positive", fmt.Sprintf("got %d", cents))
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{cents: cents, currency: currency}, nil
}

// NewMoneyFromDecimal creates Money from a major-unit decimal value
// (e.g. 10.50 = 1050 centavos). Rounds half up to the nearest centavo.
func NewMoneyFromDecimal(amount float64, currency string) (Money, error) {
	cents := int64(amount*100 + 0.5)
	return NewMoney(cents, currency)
}

// ReconstructMoney recreates Money from persisted values without validation.
func ReconstructMoney(cents int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{cents: cents, currency: currency}
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return m.cents
}

// Currency returns the ISO currency code.
func (m Money) Currency() string {
	return m.currency
}

// Decimal returns the amount in major units for display and gateway payloads.
func (m Money) Decimal() float64 {
	return float64(m.cents) / 100
}

// Equals reports whether two amounts match exactly in minor units and currency.
func (m Money) Equals(other Money) bool {
	return m.cents == other.cents && m.currency == other.currency
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.cents == 0
}

// String formats the amount for logs, e.g. "BRL 10.50".
func (m Money) String() string {
	return fmt.Sprintf("%s %d.%02d", m.currency, m.cents/100, m.cents%100)
}
