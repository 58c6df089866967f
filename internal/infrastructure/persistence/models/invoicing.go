package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	Number      string                   `gorm:"type:varchar(20);not null;uniqueIndex"`
	ClientID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	IssuedBy    uuid.UUID                `gorm:"type:uuid;not null;index"`
	ProjectID   *uuid.UUID               `gorm:"type:uuid;index"`
	Type        invoicing.InvoiceType    `gorm:"type:varchar(20);not null;default:'STANDARD'"`
	Currency    string                   `gorm:"type:varchar(3);not null"`
	Status      invoicing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	DueDate     time.Time                `gorm:"not null;index"`
	Frequency   *string                  `gorm:"type:varchar(20)"`
	Notes       string                   `gorm:"type:text"`
	Items       []InvoiceItemModel       `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnDelete:CASCADE"`
	PaidAmount  decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	FinalizedAt *time.Time
	SentAt      *time.Time
	PaidAt      *time.Time
	VoidedAt    *time.Time
	VoidReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice aggregate.
// Items are revalidated on the way out so a corrupted row cannot
// reintroduce an invalid aggregate.
func (m *InvoiceModel) ToDomain() (*invoicing.Invoice, error) {
	number, err := invoicing.NewInvoiceNumber(m.Number)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", m.ID, err)
	}

	var frequency *invoicing.Frequency
	if m.Frequency != nil {
		f := invoicing.Frequency(*m.Frequency)
		frequency = &f
	}

	invoice := &invoicing.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Number:      number,
		ClientID:    m.ClientID,
		IssuedBy:    m.IssuedBy,
		ProjectID:   m.ProjectID,
		Type:        m.Type,
		Currency:    valueobject.Currency(m.Currency),
		Status:      m.Status,
		DueDate:     m.DueDate,
		Frequency:   frequency,
		Notes:       m.Notes,
		Items:       make([]invoicing.InvoiceItem, len(m.Items)),
		PaidAmount:  m.PaidAmount,
		FinalizedAt: m.FinalizedAt,
		SentAt:      m.SentAt,
		PaidAt:      m.PaidAt,
		VoidedAt:    m.VoidedAt,
		VoidReason:  m.VoidReason,
	}

	for i := range m.Items {
		item, err := m.Items[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", m.ID, err)
		}
		invoice.Items[i] = item
	}

	return invoice, nil
}

// FromDomain populates the persistence model from a domain Invoice aggregate.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Number = inv.Number.String()
	m.ClientID = inv.ClientID
	m.IssuedBy = inv.IssuedBy
	m.ProjectID = inv.ProjectID
	m.Type = inv.Type
	m.Currency = inv.Currency.String()
	m.Status = inv.Status
	m.DueDate = inv.DueDate
	m.Notes = inv.Notes
	m.PaidAmount = inv.PaidAmount
	m.FinalizedAt = inv.FinalizedAt
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason

	if inv.Frequency != nil {
		f := inv.Frequency.String()
		m.Frequency = &f
	} else {
		m.Frequency = nil
	}

	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = *InvoiceItemModelFromDomain(inv.ID, item, i)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for an invoice line item.
// Position preserves the item order within the invoice.
type InvoiceItemModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position          int             `gorm:"not null"`
	Description       string          `gorm:"type:varchar(500);not null"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	TaxRate           decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	TaxClassification string          `gorm:"type:varchar(20);not null;default:'NO_TAX'"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem.
func (m *InvoiceItemModel) ToDomain() (invoicing.InvoiceItem, error) {
	unitPrice, err := valueobject.NewMoney(m.UnitPrice, valueobject.Currency(m.Currency))
	if err != nil {
		return invoicing.InvoiceItem{}, fmt.Errorf("item %s: %w", m.ID, err)
	}
	taxRate, err := valueobject.NewTaxRate(m.TaxRate, valueobject.TaxClassification(m.TaxClassification))
	if err != nil {
		return invoicing.InvoiceItem{}, fmt.Errorf("item %s: %w", m.ID, err)
	}
	item, err := invoicing.ReconstructInvoiceItem(m.ID, m.Description, m.Quantity, unitPrice, taxRate)
	if err != nil {
		return invoicing.InvoiceItem{}, fmt.Errorf("item %s: %w", m.ID, err)
	}
	return item, nil
}

// InvoiceItemModelFromDomain creates a persistence model from a domain InvoiceItem.
func InvoiceItemModelFromDomain(invoiceID uuid.UUID, item invoicing.InvoiceItem, position int) *InvoiceItemModel {
	return &InvoiceItemModel{
		ID:                item.ID(),
		InvoiceID:         invoiceID,
		Position:          position,
		Description:       item.Description(),
		Quantity:          item.Quantity(),
		UnitPrice:         item.UnitPrice().Amount(),
		Currency:          item.UnitPrice().Currency().String(),
		TaxRate:           item.TaxRate().Rate(),
		TaxClassification: item.TaxRate().Classification().String(),
	}
}

// InvoiceSequenceModel backs database-coordinated invoice number
// allocation per prefix.
type InvoiceSequenceModel struct {
	Prefix    string `gorm:"type:varchar(4);primary_key"`
	NextValue int64  `gorm:"not null;default:1000"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
