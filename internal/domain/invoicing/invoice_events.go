package invoicing

import (
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
)

// Event types for the invoicing context
const (
	EventTypeInvoiceCreated         = "invoicing.invoice.created"
	EventTypeInvoiceFinalized       = "invoicing.invoice.finalized"
	EventTypeInvoiceSent            = "invoicing.invoice.sent"
	EventTypeInvoicePaymentRecorded = "invoicing.invoice.payment_recorded"
	EventTypeInvoicePaid            = "invoicing.invoice.paid"
	EventTypeInvoiceVoided          = "invoicing.invoice.voided"
	EventTypeInvoiceProrated        = "invoicing.invoice.prorated"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent is published when a new draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	ClientID      string `json:"client_id"`
	InvoiceType   string `json:"invoice_type"`
	Currency      string `json:"currency"`
}

// NewInvoiceCreatedEvent creates a new invoice created event
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, aggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.Number.String(),
		ClientID:        inv.ClientID.String(),
		InvoiceType:     inv.Type.String(),
		Currency:        string(inv.Currency),
	}
}

// InvoiceFinalizedEvent is published when an invoice leaves draft
type InvoiceFinalizedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Total         string `json:"total"`
	ItemCount     int    `json:"item_count"`
}

// NewInvoiceFinalizedEvent creates a new invoice finalized event
func NewInvoiceFinalizedEvent(inv *Invoice) *InvoiceFinalizedEvent {
	return &InvoiceFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceFinalized, aggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.Number.String(),
		Total:           inv.Total().String(),
		ItemCount:       len(inv.Items),
	}
}

// InvoiceSentEvent is published when an invoice is sent to the client
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	DueDate       time.Time `json:"due_date"`
}

// NewInvoiceSentEvent creates a new invoice sent event
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, aggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.Number.String(),
		ClientID:        inv.ClientID.String(),
		DueDate:         inv.DueDate,
	}
}

// InvoicePaymentRecordedEvent is published for every recorded payment
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Amount        string `json:"amount"`
	PaidToDate    string `json:"paid_to_date"`
	Status        string `json:"status"`
}

// NewInvoicePaymentRecordedEvent creates a new payment recorded event
func NewInvoicePaymentRecordedEvent(inv *Invoice, amount valueobject.Money) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentRecorded, aggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.Number.String(),
		Amount:          amount.String(),
		PaidToDate:      inv.PaidMoney().String(),
		Status:          inv.Status.String(),
	}
}

// InvoicePaidEvent is published when an invoice becomes fully paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string     `json:"invoice_number"`
	Total         string     `json:"total"`
	PaidAt        *time.Time `json:"paid_at"`
}

// NewInvoicePaidEvent creates a new invoice paid event
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, aggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.Number.String(),
		Total:           inv.Total().String(),
		PaidAt:          inv.PaidAt,
	}
}

// InvoiceVoidedEvent is published when an invoice is voided
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// NewInvoiceVoidedEvent creates a new invoice voided event
func NewInvoiceVoidedEvent(inv *Invoice) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, aggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.Number.String(),
		Reason:          inv.VoidReason,
	}
}

// InvoiceProratedEvent is published on the source invoice when a
// prorated invoice is derived from it
type InvoiceProratedEvent struct {
	shared.BaseDomainEvent
	SourceNumber   string    `json:"source_number"`
	ProratedNumber string    `json:"prorated_number"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// NewInvoiceProratedEvent creates a new invoice prorated event
func NewInvoiceProratedEvent(source, prorated *Invoice, startDate, endDate time.Time) *InvoiceProratedEvent {
	return &InvoiceProratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceProrated, aggregateTypeInvoice, source.ID),
		SourceNumber:    source.Number.String(),
		ProratedNumber:  prorated.Number.String(),
		PeriodStart:     startDate,
		PeriodEnd:       endDate,
	}
}
