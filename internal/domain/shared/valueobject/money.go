package valueobject

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	JPY Currency = "JPY" // Japanese Yen
	CAD Currency = "CAD" // Canadian Dollar
	AUD Currency = "AUD" // Australian Dollar
	CHF Currency = "CHF" // Swiss Franc
	CNY Currency = "CNY" // Chinese Yuan
	INR Currency = "INR" // Indian Rupee
)

// SupportedCurrencies lists every currency the platform accepts
var SupportedCurrencies = []Currency{USD, EUR, GBP, JPY, CAD, AUD, CHF, CNY, INR}

// IsValid checks if the currency is on the supported allow-list
func (c Currency) IsValid() bool {
	for _, cur := range SupportedCurrencies {
		if c == cur {
			return true
		}
	}
	return false
}

// String returns the string representation of the currency
func (c Currency) String() string {
	return string(c)
}

// currencyFormat drives locale-correct display formatting.
// The language tag controls digit grouping (including the Indian
// lakh/crore system for INR); symbol placement follows the currency's
// home-locale convention.
type currencyFormat struct {
	tag        language.Tag
	symbol     string
	decimalSep string
	suffix     bool
}

var currencyFormats = map[Currency]currencyFormat{
	USD: {tag: language.AmericanEnglish, symbol: "$", decimalSep: "."},
	EUR: {tag: language.German, symbol: "€", decimalSep: ",", suffix: true},
	GBP: {tag: language.BritishEnglish, symbol: "£", decimalSep: "."},
	JPY: {tag: language.Japanese, symbol: "¥", decimalSep: "."},
	CAD: {tag: language.MustParse("en-CA"), symbol: "CA$", decimalSep: "."},
	AUD: {tag: language.MustParse("en-AU"), symbol: "A$", decimalSep: "."},
	CHF: {tag: language.MustParse("de-CH"), symbol: "CHF ", decimalSep: "."},
	CNY: {tag: language.SimplifiedChinese, symbol: "¥", decimalSep: "."},
	INR: {tag: language.MustParse("en-IN"), symbol: "₹", decimalSep: "."},
}

// Money is a value object representing monetary amounts.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency.
// The amount must carry at most two fractional digits.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, shared.NewRequiredFieldError("Currency is required")
	}
	if !currency.IsValid() {
		return Money{}, shared.NewInvalidValueError(fmt.Sprintf("Unsupported currency: %s", currency))
	}
	if !amount.Equal(amount.Round(2)) {
		return Money{}, shared.NewInvalidValueError("Amount cannot have more than 2 decimal places")
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromFloat creates Money from a float64 value
func NewMoneyFromFloat(amount float64, currency Currency) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, shared.NewInvalidValueError("Amount must be a finite number")
	}
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, shared.NewInvalidValueError(fmt.Sprintf("Invalid amount string: %s", amount))
	}
	return NewMoney(d, currency)
}

// MustNewMoney creates Money and panics on invalid input. Intended for
// amounts already produced by Money or TaxRate arithmetic, where the
// invariants are known to hold.
func MustNewMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts, rounded to 2 places.
// Returns an error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot add money with different currencies: %s and %s", m.currency, other.currency))
	}
	return Money{
		amount:   m.amount.Add(other.amount).Round(2),
		currency: m.currency,
	}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference, rounded to 2 places.
// Returns an error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot subtract money with different currencies: %s and %s", m.currency, other.currency))
	}
	return Money{
		amount:   m.amount.Sub(other.amount).Round(2),
		currency: m.currency,
	}, nil
}

// Multiply returns a new Money multiplied by the given factor, rounded to 2 places
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{
		amount:   m.amount.Mul(factor).Round(2),
		currency: m.currency,
	}
}

// MultiplyByInt returns a new Money multiplied by an integer
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Divide returns a new Money divided by the given divisor, rounded to 2 places.
// Returns an error if divisor is zero.
func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, shared.NewInvalidValueError("Cannot divide by zero")
	}
	return Money{
		amount:   m.amount.Div(divisor).Round(2),
		currency: m.currency,
	}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{
		amount:   m.amount.Neg(),
		currency: m.currency,
	}
}

// Equals returns true if both Money values have the same amount.
// Returns an error if currencies don't match.
func (m Money) Equals(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot compare money with different currencies: %s and %s", m.currency, other.currency))
	}
	return m.amount.Equal(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other.
// Returns an error if currencies don't match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot compare money with different currencies: %s and %s", m.currency, other.currency))
	}
	return m.amount.GreaterThan(other.amount), nil
}

// LessThan returns true if this Money is less than the other.
// Returns an error if currencies don't match.
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot compare money with different currencies: %s and %s", m.currency, other.currency))
	}
	return m.amount.LessThan(other.amount), nil
}

// String returns a plain string representation of the Money, e.g. "USD 150.00"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(2))
}

// DisplayString returns a locale- and currency-correct formatted string,
// e.g. "$1,234.56", "1.234,56 €", "-₹1,23,456.78".
func (m Money) DisplayString() string {
	f, ok := currencyFormats[m.currency]
	if !ok {
		return m.String()
	}

	abs := m.amount.Abs().Round(2)
	intPart := abs.IntPart()
	cents := abs.Sub(decimal.NewFromInt(intPart)).Mul(decimal.NewFromInt(100)).IntPart()

	p := message.NewPrinter(f.tag)
	digits := p.Sprintf("%d", intPart) + f.decimalSep + fmt.Sprintf("%02d", cents)

	var s string
	if f.suffix {
		s = digits + " " + f.symbol
	} else {
		s = f.symbol + digits
	}
	if m.amount.IsNegative() {
		s = "-" + s
	}
	return s
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Values are validated through
// the NewMoney factory so a deserialized Money holds the same invariants
// as a constructed one.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	parsed, err := NewMoney(amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
