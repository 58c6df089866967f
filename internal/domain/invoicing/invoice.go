package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusFinalized     InvoiceStatus = "FINALIZED"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverpaid      InvoiceStatus = "OVERPAID"
	InvoiceStatusVoid          InvoiceStatus = "VOID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusFinalized, InvoiceStatusSent,
		InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverpaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusFinalized || target == InvoiceStatusVoid
	case InvoiceStatusFinalized:
		return target == InvoiceStatusSent || target == InvoiceStatusVoid
	case InvoiceStatusSent:
		return target == InvoiceStatusPartiallyPaid || target == InvoiceStatusPaid ||
			target == InvoiceStatusOverpaid || target == InvoiceStatusVoid
	case InvoiceStatusPartiallyPaid:
		// Further payments keep the invoice partially paid until the
		// cumulative amount reaches or exceeds the total.
		return target == InvoiceStatusPartiallyPaid || target == InvoiceStatusPaid ||
			target == InvoiceStatusOverpaid || target == InvoiceStatusVoid
	case InvoiceStatusOverpaid:
		return target == InvoiceStatusVoid
	case InvoiceStatusPaid, InvoiceStatusVoid:
		return false // Terminal states
	}
	return false
}

// CanModifyItems returns true if the item list is still open for changes
func (s InvoiceStatus) CanModifyItems() bool {
	return s == InvoiceStatusDraft
}

// CanRecordPayment returns true if payments can be recorded in this status
func (s InvoiceStatus) CanRecordPayment() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPartiallyPaid
}

// InvoiceType distinguishes one-off invoices from recurring ones
type InvoiceType string

const (
	InvoiceTypeStandard  InvoiceType = "STANDARD"
	InvoiceTypeRecurring InvoiceType = "RECURRING"
)

// IsValid checks if the invoice type is valid
func (t InvoiceType) IsValid() bool {
	return t == InvoiceTypeStandard || t == InvoiceTypeRecurring
}

// String returns the string representation of InvoiceType
func (t InvoiceType) String() string {
	return string(t)
}

// Frequency is the billing cadence of a recurring invoice
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnually  Frequency = "ANNUALLY"
)

// IsValid checks if the frequency is a recognized value
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// prorationReferenceDays is the fixed reference month used by Prorate.
// A documented business simplification: every month counts as 30 days.
const prorationReferenceDays = 30

// Invoice is the aggregate root for a single invoice. It owns its ordered
// item list and enforces the lifecycle state machine; totals are always
// derived from the items, never stored.
type Invoice struct {
	shared.BaseAggregateRoot
	Number      InvoiceNumber
	ClientID    uuid.UUID
	IssuedBy    uuid.UUID
	ProjectID   *uuid.UUID
	Type        InvoiceType
	Currency    valueobject.Currency
	DueDate     time.Time
	Frequency   *Frequency
	Notes       string
	Items       []InvoiceItem
	Status      InvoiceStatus
	FinalizedAt *time.Time
	SentAt      *time.Time
	PaidAt      *time.Time
	VoidedAt    *time.Time
	PaidAmount  decimal.Decimal
	VoidReason  string
}

// NewInvoice creates a new draft invoice
func NewInvoice(
	number InvoiceNumber,
	clientID uuid.UUID,
	issuedBy uuid.UUID,
	projectID *uuid.UUID,
	invoiceType InvoiceType,
	currency valueobject.Currency,
	dueDate time.Time,
	frequency *Frequency,
	notes string,
) (*Invoice, error) {
	if number.IsZero() {
		return nil, shared.NewRequiredFieldError("Invoice number is required")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewRequiredFieldError("Client ID is required")
	}
	if issuedBy == uuid.Nil {
		return nil, shared.NewRequiredFieldError("Issuing user ID is required")
	}
	if !invoiceType.IsValid() {
		return nil, shared.NewInvalidValueError(fmt.Sprintf("Unrecognized invoice type: %s", invoiceType))
	}
	if !currency.IsValid() {
		return nil, shared.NewInvalidValueError(fmt.Sprintf("Unsupported currency: %s", currency))
	}
	if !dueDate.After(time.Now()) {
		return nil, shared.NewBusinessRuleViolationError("Due date must be in the future")
	}
	if invoiceType == InvoiceTypeRecurring {
		if frequency == nil {
			return nil, shared.NewBusinessRuleViolationError("Recurring invoices require a frequency")
		}
		if !frequency.IsValid() {
			return nil, shared.NewInvalidValueError(fmt.Sprintf("Unrecognized frequency: %s", *frequency))
		}
	} else if frequency != nil {
		return nil, shared.NewInvalidValueError("Frequency is only valid for recurring invoices")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		ClientID:          clientID,
		IssuedBy:          issuedBy,
		ProjectID:         projectID,
		Type:              invoiceType,
		Currency:          currency,
		DueDate:           dueDate,
		Frequency:         frequency,
		Notes:             notes,
		Items:             make([]InvoiceItem, 0),
		Status:            InvoiceStatusDraft,
		PaidAmount:        decimal.Zero,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AddItem adds a new line item to the invoice.
// Only allowed while the invoice is in DRAFT status.
func (inv *Invoice) AddItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money, taxRate valueobject.TaxRate) (*InvoiceItem, error) {
	if !inv.Status.CanModifyItems() {
		return nil, shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot add items to an invoice in %s status", inv.Status))
	}
	if unitPrice.Currency() != inv.Currency {
		return nil, shared.NewBusinessRuleViolationError(fmt.Sprintf("Item currency %s does not match invoice currency %s", unitPrice.Currency(), inv.Currency))
	}

	item, err := NewInvoiceItem(description, quantity, unitPrice, taxRate)
	if err != nil {
		return nil, err
	}

	inv.Items = append(inv.Items, item)
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return &item, nil
}

// RemoveItem removes a line item from the invoice.
// Only allowed while the invoice is in DRAFT status.
func (inv *Invoice) RemoveItem(itemID uuid.UUID) error {
	if !inv.Status.CanModifyItems() {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot remove items from an invoice in %s status", inv.Status))
	}

	for idx, item := range inv.Items {
		if item.ID() == itemID {
			inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
			inv.UpdatedAt = time.Now()
			inv.IncrementVersion()
			return nil
		}
	}

	return shared.NewBusinessRuleViolationError("Invoice item not found")
}

// replaceItem swaps in an updated copy of an existing item. The update
// functions on InvoiceItem return new values, so nothing is changed
// until the copy has validated.
func (inv *Invoice) replaceItem(itemID uuid.UUID, update func(InvoiceItem) (InvoiceItem, error)) error {
	if !inv.Status.CanModifyItems() {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot update items on an invoice in %s status", inv.Status))
	}

	for idx := range inv.Items {
		if inv.Items[idx].ID() == itemID {
			updated, err := update(inv.Items[idx])
			if err != nil {
				return err
			}
			inv.Items[idx] = updated
			inv.UpdatedAt = time.Now()
			inv.IncrementVersion()
			return nil
		}
	}

	return shared.NewBusinessRuleViolationError("Invoice item not found")
}

// UpdateItemDescription changes the description of an existing item
func (inv *Invoice) UpdateItemDescription(itemID uuid.UUID, description string) error {
	return inv.replaceItem(itemID, func(item InvoiceItem) (InvoiceItem, error) {
		return item.UpdateDescription(description)
	})
}

// UpdateItemQuantity changes the quantity of an existing item
func (inv *Invoice) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
	return inv.replaceItem(itemID, func(item InvoiceItem) (InvoiceItem, error) {
		return item.UpdateQuantity(quantity)
	})
}

// UpdateItemUnitPrice changes the unit price of an existing item
func (inv *Invoice) UpdateItemUnitPrice(itemID uuid.UUID, unitPrice valueobject.Money) error {
	if unitPrice.Currency() != inv.Currency {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Item currency %s does not match invoice currency %s", unitPrice.Currency(), inv.Currency))
	}
	return inv.replaceItem(itemID, func(item InvoiceItem) (InvoiceItem, error) {
		return item.UpdateUnitPrice(unitPrice)
	})
}

// UpdateItemTaxRate changes the tax rate of an existing item
func (inv *Invoice) UpdateItemTaxRate(itemID uuid.UUID, taxRate valueobject.TaxRate) error {
	return inv.replaceItem(itemID, func(item InvoiceItem) (InvoiceItem, error) {
		return item.UpdateTaxRate(taxRate)
	})
}

// Subtotal returns the sum of all item subtotals. An invoice with no
// items has a zero subtotal in the invoice currency.
func (inv *Invoice) Subtotal() valueobject.Money {
	total := valueobject.Zero(inv.Currency)
	for _, item := range inv.Items {
		total = total.MustAdd(item.Subtotal())
	}
	return total
}

// TotalTax returns the sum of all item tax amounts
func (inv *Invoice) TotalTax() valueobject.Money {
	total := valueobject.Zero(inv.Currency)
	for _, item := range inv.Items {
		total = total.MustAdd(item.TaxAmount())
	}
	return total
}

// Total returns subtotal plus tax across all items
func (inv *Invoice) Total() valueobject.Money {
	return inv.Subtotal().MustAdd(inv.TotalTax())
}

// Finalize locks the item list, transitioning from DRAFT to FINALIZED.
// Requires at least one item.
func (inv *Invoice) Finalize() error {
	if !inv.Status.CanTransitionTo(InvoiceStatusFinalized) {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot finalize an invoice in %s status", inv.Status))
	}
	if len(inv.Items) == 0 {
		return shared.NewBusinessRuleViolationError("Cannot finalize an invoice without items")
	}

	now := time.Now()
	inv.Status = InvoiceStatusFinalized
	inv.FinalizedAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceFinalizedEvent(inv))

	return nil
}

// Send marks the invoice as sent to the client, FINALIZED to SENT only
func (inv *Invoice) Send() error {
	if !inv.Status.CanTransitionTo(InvoiceStatusSent) {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot send an invoice in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv))

	return nil
}

// RecordPayment applies a payment to the invoice. Permitted from SENT or
// PARTIALLY_PAID. The cumulative paid amount against the derived total
// decides the resulting status: equal means PAID, less means
// PARTIALLY_PAID, greater means OVERPAID.
func (inv *Invoice) RecordPayment(amount valueobject.Money) error {
	if !inv.Status.CanRecordPayment() {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot record a payment on an invoice in %s status", inv.Status))
	}
	if amount.Currency() != inv.Currency {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Payment currency %s does not match invoice currency %s", amount.Currency(), inv.Currency))
	}
	if !amount.IsPositive() {
		return shared.NewInvalidValueError("Payment amount must be positive")
	}

	now := time.Now()
	cumulative := inv.PaidAmount.Add(amount.Amount())
	total := inv.Total().Amount()

	inv.PaidAmount = cumulative
	switch {
	case cumulative.Equal(total):
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	case cumulative.LessThan(total):
		inv.Status = InvoiceStatusPartiallyPaid
	default:
		inv.Status = InvoiceStatusOverpaid
	}
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePaymentRecordedEvent(inv, amount))
	if inv.Status == InvoiceStatusPaid {
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}

	return nil
}

// MarkAsPaid records a payment that must exactly settle the invoice total
func (inv *Invoice) MarkAsPaid(amount valueobject.Money) error {
	if amount.Currency() != inv.Currency {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Payment currency %s does not match invoice currency %s", amount.Currency(), inv.Currency))
	}
	if !amount.Amount().Equal(inv.Total().Amount()) {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Payment of %s does not settle the invoice total %s", amount, inv.Total()))
	}
	return inv.RecordPayment(amount)
}

// Void cancels the invoice. Disallowed once the invoice is PAID or
// already VOID.
func (inv *Invoice) Void(reason string) error {
	if inv.Status == InvoiceStatusVoid || inv.Status == InvoiceStatusPaid {
		return shared.NewBusinessRuleViolationError(fmt.Sprintf("Cannot void an invoice in %s status", inv.Status))
	}
	if reason == "" {
		return shared.NewRequiredFieldError("Void reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusVoid
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv))

	return nil
}

// Prorate produces a new standard draft invoice covering a partial
// billing period of this recurring invoice. Item unit prices are scaled
// by the day count over a fixed 30-day reference month; tax rates carry
// over unchanged. The source invoice is not mutated.
func (inv *Invoice) Prorate(startDate, endDate time.Time) (*Invoice, error) {
	if inv.Type != InvoiceTypeRecurring {
		return nil, shared.NewBusinessRuleViolationError("Only recurring invoices can be prorated")
	}
	if !startDate.Before(endDate) {
		return nil, shared.NewBusinessRuleViolationError("Proration start date must precede end date")
	}

	days := decimal.NewFromFloat(endDate.Sub(startDate).Hours() / 24)
	factor := days.Div(decimal.NewFromInt(prorationReferenceDays))

	number, err := GenerateInvoiceNumber(inv.Number.Prefix())
	if err != nil {
		return nil, err
	}

	prorated, err := NewInvoice(
		number,
		inv.ClientID,
		inv.IssuedBy,
		inv.ProjectID,
		InvoiceTypeStandard,
		inv.Currency,
		time.Now().AddDate(0, 0, 30),
		nil,
		fmt.Sprintf("Prorated from %s for %s to %s", inv.Number, startDate.Format("2006-01-02"), endDate.Format("2006-01-02")),
	)
	if err != nil {
		return nil, err
	}

	for _, item := range inv.Items {
		if _, err := prorated.AddItem(item.Description(), item.Quantity(), item.UnitPrice().Multiply(factor), item.TaxRate()); err != nil {
			return nil, err
		}
	}

	inv.AddDomainEvent(NewInvoiceProratedEvent(inv, prorated, startDate, endDate))

	return prorated, nil
}

// GetItem returns an item by its ID, or nil if it is not on the invoice
func (inv *Invoice) GetItem(itemID uuid.UUID) *InvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ID() == itemID {
			item := inv.Items[idx]
			return &item
		}
	}
	return nil
}

// ItemCount returns the number of line items
func (inv *Invoice) ItemCount() int {
	return len(inv.Items)
}

// PaidMoney returns the cumulative paid amount as Money
func (inv *Invoice) PaidMoney() valueobject.Money {
	return valueobject.MustNewMoney(inv.PaidAmount, inv.Currency)
}

// IsDraft returns true if the invoice is still a draft
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsVoid returns true if the invoice has been voided
func (inv *Invoice) IsVoid() bool {
	return inv.Status == InvoiceStatusVoid
}

// IsOverdue returns true if the invoice is awaiting payment past its due
// date
func (inv *Invoice) IsOverdue() bool {
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusPartiallyPaid {
		return false
	}
	return time.Now().After(inv.DueDate)
}
