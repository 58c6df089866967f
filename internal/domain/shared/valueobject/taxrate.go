package valueobject

import (
	"fmt"
	"strings"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TaxClassification identifies the kind of tax a rate represents
type TaxClassification string

const (
	SalesTax    TaxClassification = "SALES_TAX"
	VAT         TaxClassification = "VAT"
	GST         TaxClassification = "GST"
	StateTax    TaxClassification = "STATE_TAX"
	CityTax     TaxClassification = "CITY_TAX"
	NoTax       TaxClassification = "NO_TAX"
	CombinedTax TaxClassification = "COMBINED_TAX"
)

// IsValid checks if the classification is a recognized value
func (c TaxClassification) IsValid() bool {
	switch c {
	case SalesTax, VAT, GST, StateTax, CityTax, NoTax, CombinedTax:
		return true
	}
	return false
}

// String returns the string representation of the classification
func (c TaxClassification) String() string {
	return string(c)
}

// DisplayName returns the classification in words, e.g. "Sales Tax"
func (c TaxClassification) DisplayName() string {
	switch c {
	case VAT, GST:
		return string(c)
	}
	parts := strings.Split(string(c), "_")
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

// TaxRate is a value object representing a tax percentage with its
// classification. It is immutable.
type TaxRate struct {
	rate           decimal.Decimal
	classification TaxClassification
}

// NewTaxRate creates a new TaxRate. The rate is a percentage in [0, 100].
func NewTaxRate(rate decimal.Decimal, classification TaxClassification) (TaxRate, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return TaxRate{}, shared.NewInvalidValueError("Tax rate must be between 0 and 100")
	}
	if !classification.IsValid() {
		return TaxRate{}, shared.NewInvalidValueError(fmt.Sprintf("Unrecognized tax classification: %s", classification))
	}
	return TaxRate{
		rate:           rate,
		classification: classification,
	}, nil
}

// NewTaxRateFromFloat creates a TaxRate from a float64 percentage
func NewTaxRateFromFloat(rate float64, classification TaxClassification) (TaxRate, error) {
	return NewTaxRate(decimal.NewFromFloat(rate), classification)
}

// ZeroTaxRate returns the distinguished "No Tax" rate
func ZeroTaxRate() TaxRate {
	return TaxRate{rate: decimal.Zero, classification: NoTax}
}

// Rate returns the percentage value
func (t TaxRate) Rate() decimal.Decimal {
	return t.rate
}

// Classification returns the tax classification
func (t TaxRate) Classification() TaxClassification {
	return t.classification
}

// CalculateTax returns the tax amount for the given base, rounded to 2 places
func (t TaxRate) CalculateTax(base decimal.Decimal) decimal.Decimal {
	return base.Mul(t.rate).Div(decimal.NewFromInt(100)).Round(2)
}

// DecimalRate returns the rate as a fraction (rate/100)
func (t TaxRate) DecimalRate() decimal.Decimal {
	return t.rate.Div(decimal.NewFromInt(100))
}

// IsZero returns true if the rate is zero
func (t TaxRate) IsZero() bool {
	return t.rate.IsZero()
}

// GreaterThan returns true if this rate is greater than the other
func (t TaxRate) GreaterThan(other TaxRate) bool {
	return t.rate.GreaterThan(other.rate)
}

// LessThan returns true if this rate is less than the other
func (t TaxRate) LessThan(other TaxRate) bool {
	return t.rate.LessThan(other.rate)
}

// DisplayString returns the rate formatted for display,
// e.g. "Sales Tax (8.5%)" or "No Tax (0%)" when zero.
func (t TaxRate) DisplayString() string {
	if t.IsZero() {
		return "No Tax (0%)"
	}
	return fmt.Sprintf("%s (%s%%)", t.classification.DisplayName(), t.rate.String())
}
