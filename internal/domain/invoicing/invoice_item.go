package invoicing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceItem is one billable line on an invoice. It is immutable: the
// Update* methods return a new item carrying the same id, so a shared
// reference can never observe a half-applied change.
type InvoiceItem struct {
	id          uuid.UUID
	description string
	quantity    decimal.Decimal
	unitPrice   valueobject.Money
	taxRate     valueobject.TaxRate
}

// NewInvoiceItem creates a new invoice item with a generated id
func NewInvoiceItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate valueobject.TaxRate) (InvoiceItem, error) {
	return newInvoiceItem(uuid.New(), description, quantity, unitPrice, taxRate)
}

// ReconstructInvoiceItem rebuilds an item from persisted state. The same
// validation applies as on first construction, so a reloaded item holds
// the same invariants.
func ReconstructInvoiceItem(id uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate valueobject.TaxRate) (InvoiceItem, error) {
	if id == uuid.Nil {
		return InvoiceItem{}, shared.NewRequiredFieldError("Item id is required")
	}
	return newInvoiceItem(id, description, quantity, unitPrice, taxRate)
}

func newInvoiceItem(id uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate valueobject.TaxRate) (InvoiceItem, error) {
	if strings.TrimSpace(description) == "" {
		return InvoiceItem{}, shared.NewRequiredFieldError("Item description is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return InvoiceItem{}, shared.NewInvalidValueError("Item quantity must be positive")
	}
	if !unitPrice.IsPositive() {
		return InvoiceItem{}, shared.NewInvalidValueError("Item unit price must be positive")
	}
	return InvoiceItem{
		id:          id,
		description: description,
		quantity:    quantity,
		unitPrice:   unitPrice,
		taxRate:     taxRate,
	}, nil
}

// ID returns the item identifier
func (i InvoiceItem) ID() uuid.UUID {
	return i.id
}

// Description returns the item description
func (i InvoiceItem) Description() string {
	return i.description
}

// Quantity returns the billed quantity
func (i InvoiceItem) Quantity() decimal.Decimal {
	return i.quantity
}

// UnitPrice returns the price per unit
func (i InvoiceItem) UnitPrice() valueobject.Money {
	return i.unitPrice
}

// TaxRate returns the tax rate applied to this item
func (i InvoiceItem) TaxRate() valueobject.TaxRate {
	return i.taxRate
}

// Subtotal returns unit price times quantity
func (i InvoiceItem) Subtotal() valueobject.Money {
	return i.unitPrice.Multiply(i.quantity)
}

// TaxAmount returns the tax due on the subtotal, in the item's currency
func (i InvoiceItem) TaxAmount() valueobject.Money {
	subtotal := i.Subtotal()
	return valueobject.MustNewMoney(i.taxRate.CalculateTax(subtotal.Amount()), subtotal.Currency())
}

// Total returns subtotal plus tax
func (i InvoiceItem) Total() valueobject.Money {
	return i.Subtotal().MustAdd(i.TaxAmount())
}

// UpdateDescription returns a new item with the description changed
func (i InvoiceItem) UpdateDescription(description string) (InvoiceItem, error) {
	return newInvoiceItem(i.id, description, i.quantity, i.unitPrice, i.taxRate)
}

// UpdateQuantity returns a new item with the quantity changed
func (i InvoiceItem) UpdateQuantity(quantity decimal.Decimal) (InvoiceItem, error) {
	return newInvoiceItem(i.id, i.description, quantity, i.unitPrice, i.taxRate)
}

// UpdateUnitPrice returns a new item with the unit price changed
func (i InvoiceItem) UpdateUnitPrice(unitPrice valueobject.Money) (InvoiceItem, error) {
	return newInvoiceItem(i.id, i.description, i.quantity, unitPrice, i.taxRate)
}

// UpdateTaxRate returns a new item with the tax rate changed
func (i InvoiceItem) UpdateTaxRate(taxRate valueobject.TaxRate) (InvoiceItem, error) {
	return newInvoiceItem(i.id, i.description, i.quantity, i.unitPrice, taxRate)
}
