package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/govalues/decimal"
)

// MoneyScale is the number of fractional digits money is rounded to.
const MoneyScale = 2

var hundred = decimal.MustNew(100, 0)

// Money is an immutable non-negative amount in a single ISO-4217 currency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney validates the currency code and rejects negative or over-precise amounts.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}
	if amount.Sign() < 0 {
		return Money{}, Invalid("amount", "amount must not be negative")
	}
	if amount.Scale() > MoneyScale {
		return Money{}, Invalid("amount", "amount must have at most %d decimal places", MoneyScale)
	}
	return Money{amount: amount, currency: currency}, nil
}

// ParseMoney parses a decimal string such as "150.00".
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.Parse(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, Invalid("amount", "amount %q is not a decimal number", amount)
	}
	return NewMoney(d, currency)
}

// MustMoney is ParseMoney for literals; it panics on invalid input.
func MustMoney(amount, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns a zero amount in currency.
func ZeroMoney(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(currency)}
}

func validateCurrency(code string) error {
	if len(code) != 3 {
		return Invalid("currency", "currency must be a 3-letter ISO code")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Invalid("currency", "currency must be a 3-letter ISO code")
		}
	}
	return nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.Sign() > 0 }

// IsSet reports whether m was constructed, as opposed to the zero Money value.
func (m Money) IsSet() bool { return m.currency != "" }

func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	sum, err := m.amount.Add(other.amount)
	if err != nil {
		return Money{}, Invalid("amount", "amount overflow")
	}
	return Money{amount: sum, currency: m.currency}, nil
}

// Sub returns m - other; a negative result is rejected.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	diff, err := m.amount.Sub(other.amount)
	if err != nil {
		return Money{}, Invalid("amount", "amount overflow")
	}
	if diff.Sign() < 0 {
		return Money{}, Invalid("amount", "result would be negative")
	}
	return Money{amount: diff, currency: m.currency}, nil
}

// Compare returns -1, 0 or +1. Currencies must match.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal compares amount numerically, so 10.0 USD equals 10.00 USD.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Cmp(other.amount) == 0
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON revalidates the pair; money never crosses a boundary unchecked.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Percentage is a value in the closed range 0..100.
type Percentage struct {
	value decimal.Decimal
}

func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.Sign() < 0 || value.Cmp(hundred) > 0 {
		return Percentage{}, Invalid("percentage", "percentage must be between 0 and 100")
	}
	return Percentage{value: value}, nil
}

func ParsePercentage(value string) (Percentage, error) {
	d, err := decimal.Parse(strings.TrimSpace(value))
	if err != nil {
		return Percentage{}, Invalid("percentage", "percentage %q is not a decimal number", value)
	}
	return NewPercentage(d)
}

func (p Percentage) Value() decimal.Decimal { return p.value }
func (p Percentage) String() string         { return p.value.String() + "%" }

// Of applies the percentage to m, rounding half to even at MoneyScale.
func (p Percentage) Of(m Money) (Money, error) {
	product, err := m.amount.Mul(p.value)
	if err != nil {
		return Money{}, Invalid("amount", "amount overflow")
	}
	share, err := product.Quo(hundred)
	if err != nil {
		return Money{}, Invalid("amount", "amount overflow")
	}
	return Money{amount: share.Round(MoneyScale), currency: m.currency}, nil
}

// DiscountOf is the share of original that price takes off it, rounded to
// two places. price must not exceed original.
func DiscountOf(original, price Money) (Percentage, error) {
	if !original.IsPositive() {
		return Percentage{}, Invalid("original_price", "original price must be greater than zero")
	}
	off, err := original.Sub(price)
	if err != nil {
		return Percentage{}, err
	}
	ratio, err := off.amount.Quo(original.amount)
	if err != nil {
		return Percentage{}, Invalid("amount", "amount overflow")
	}
	share, err := ratio.Mul(hundred)
	if err != nil {
		return Percentage{}, Invalid("amount", "amount overflow")
	}
	return NewPercentage(share.Round(2))
}

func (p Percentage) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value.String())
}

func (p *Percentage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = string(data)
	}
	parsed, err := ParsePercentage(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
