package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService provides application-level invoice operations. It
// loads aggregates through the repository, runs the requested domain
// operation and persists the result under optimistic locking.
type InvoiceService struct {
	repo      invoicing.InvoiceRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo invoicing.InvoiceRepository, publisher shared.EventPublisher, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateInvoiceRequest carries the data needed to open a draft invoice
type CreateInvoiceRequest struct {
	NumberPrefix string                  `json:"number_prefix" binding:"required"`
	ClientID     uuid.UUID               `json:"client_id" binding:"required"`
	IssuedBy     uuid.UUID               `json:"issued_by" binding:"required"`
	ProjectID    *uuid.UUID              `json:"project_id"`
	Type         string                  `json:"type" binding:"required,oneof=STANDARD RECURRING"`
	Currency     string                  `json:"currency" binding:"required,currency_code"`
	DueDate      time.Time               `json:"due_date" binding:"required"`
	Frequency    *string                 `json:"frequency"`
	Notes        string                  `json:"notes"`
	Items        []AddItemRequest        `json:"items" binding:"dive"`
}

// AddItemRequest carries one line item
type AddItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxClass    string          `json:"tax_classification"`
}

// UpdateItemRequest carries a partial update to an existing line item
type UpdateItemRequest struct {
	Description *string          `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
	TaxClass    *string          `json:"tax_classification"`
}

// RecordPaymentRequest carries one payment against an invoice
type RecordPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required,currency_code"`
}

// VoidInvoiceRequest carries the reason an invoice is being voided
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ProrateInvoiceRequest carries the partial billing period
type ProrateInvoiceRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// InvoiceItemResponse represents a line item in API responses
type InvoiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxClass    string          `json:"tax_classification"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID             `json:"id"`
	Number       string                `json:"number"`
	ClientID     uuid.UUID             `json:"client_id"`
	IssuedBy     uuid.UUID             `json:"issued_by"`
	ProjectID    *uuid.UUID            `json:"project_id,omitempty"`
	Type         string                `json:"type"`
	Currency     string                `json:"currency"`
	Status       string                `json:"status"`
	DueDate      time.Time             `json:"due_date"`
	Frequency    *string               `json:"frequency,omitempty"`
	Notes        string                `json:"notes,omitempty"`
	Items        []InvoiceItemResponse `json:"items"`
	Subtotal     decimal.Decimal       `json:"subtotal"`
	TotalTax     decimal.Decimal       `json:"total_tax"`
	Total        decimal.Decimal       `json:"total"`
	TotalDisplay string                `json:"total_display"`
	PaidAmount   decimal.Decimal       `json:"paid_amount"`
	FinalizedAt  *time.Time            `json:"finalized_at,omitempty"`
	SentAt       *time.Time            `json:"sent_at,omitempty"`
	PaidAt       *time.Time            `json:"paid_at,omitempty"`
	VoidedAt     *time.Time            `json:"voided_at,omitempty"`
	VoidReason   string                `json:"void_reason,omitempty"`
	Overdue      bool                  `json:"overdue"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Version      int                   `json:"version"`
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	ClientID *uuid.UUID `form:"client_id"`
	IssuedBy *uuid.UUID `form:"issued_by"`
	Status   string     `form:"status"`
	Type     string     `form:"type"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

// CreateInvoice opens a new draft invoice, optionally with initial items
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	number, err := s.repo.NextInvoiceNumber(ctx, req.NumberPrefix)
	if err != nil {
		return nil, err
	}

	var frequency *invoicing.Frequency
	if req.Frequency != nil {
		f := invoicing.Frequency(*req.Frequency)
		frequency = &f
	}

	invoice, err := invoicing.NewInvoice(
		number,
		req.ClientID,
		req.IssuedBy,
		req.ProjectID,
		invoicing.InvoiceType(req.Type),
		valueobject.Currency(req.Currency),
		req.DueDate,
		frequency,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		if err := s.addItem(invoice, item); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number.String()),
		zap.String("client_id", invoice.ClientID.String()))

	return toInvoiceResponse(invoice), nil
}

func (s *InvoiceService) addItem(invoice *invoicing.Invoice, req AddItemRequest) error {
	unitPrice, err := valueobject.NewMoney(req.UnitPrice, invoice.Currency)
	if err != nil {
		return err
	}
	taxRate, err := buildTaxRate(req.TaxRate, req.TaxClass)
	if err != nil {
		return err
	}
	_, err = invoice.AddItem(req.Description, req.Quantity, unitPrice, taxRate)
	return err
}

func buildTaxRate(rate decimal.Decimal, class string) (valueobject.TaxRate, error) {
	if rate.IsZero() && class == "" {
		return valueobject.ZeroTaxRate(), nil
	}
	if class == "" {
		class = string(valueobject.SalesTax)
	}
	return valueobject.NewTaxRate(rate, valueobject.TaxClassification(class))
}

// GetInvoice loads one invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

// GetInvoiceByNumber loads one invoice by its invoice number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	parsed, err := invoicing.NewInvoiceNumber(number)
	if err != nil {
		return nil, err
	}
	invoice, err := s.repo.FindByNumber(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.ErrNotFound
	}
	return toInvoiceResponse(invoice), nil
}

// ListInvoices lists invoices with filtering and pagination
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilter) (*shared.Paginated[*InvoiceResponse], error) {
	domainFilter := invoicing.InvoiceFilter{
		ClientID: filter.ClientID,
		IssuedBy: filter.IssuedBy,
	}
	domainFilter.Filter = shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := invoicing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewInvalidValueError("Unrecognized invoice status: " + filter.Status)
		}
		domainFilter.Status = &status
	}
	if filter.Type != "" {
		invType := invoicing.InvoiceType(filter.Type)
		if !invType.IsValid() {
			return nil, shared.NewInvalidValueError("Unrecognized invoice type: " + filter.Type)
		}
		domainFilter.Type = &invType
	}

	page, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return mapPage(page), nil
}

// ListOverdueInvoices lists invoices awaiting payment past their due date
func (s *InvoiceService) ListOverdueInvoices(ctx context.Context, page, pageSize int) (*shared.Paginated[*InvoiceResponse], error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}
	result, err := s.repo.FindOverdue(ctx, time.Now(), filter)
	if err != nil {
		return nil, err
	}
	return mapPage(result), nil
}

// ListDraftsByUser lists a user's draft invoices
func (s *InvoiceService) ListDraftsByUser(ctx context.Context, issuedBy uuid.UUID, page, pageSize int) (*shared.Paginated[*InvoiceResponse], error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}
	result, err := s.repo.FindDraftsByUser(ctx, issuedBy, filter)
	if err != nil {
		return nil, err
	}
	return mapPage(result), nil
}

// AddInvoiceItem appends a line item to a draft invoice
func (s *InvoiceService) AddInvoiceItem(ctx context.Context, invoiceID uuid.UUID, req AddItemRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		return s.addItem(invoice, req)
	})
}

// UpdateInvoiceItem applies a partial update to a line item
func (s *InvoiceService) UpdateInvoiceItem(ctx context.Context, invoiceID, itemID uuid.UUID, req UpdateItemRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		if req.Description != nil {
			if err := invoice.UpdateItemDescription(itemID, *req.Description); err != nil {
				return err
			}
		}
		if req.Quantity != nil {
			if err := invoice.UpdateItemQuantity(itemID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.UnitPrice != nil {
			unitPrice, err := valueobject.NewMoney(*req.UnitPrice, invoice.Currency)
			if err != nil {
				return err
			}
			if err := invoice.UpdateItemUnitPrice(itemID, unitPrice); err != nil {
				return err
			}
		}
		if req.TaxRate != nil || req.TaxClass != nil {
			current := invoice.GetItem(itemID)
			if current == nil {
				return shared.NewBusinessRuleViolationError("Invoice item not found")
			}
			rate := current.TaxRate().Rate()
			class := current.TaxRate().Classification()
			if req.TaxRate != nil {
				rate = *req.TaxRate
			}
			if req.TaxClass != nil {
				class = valueobject.TaxClassification(*req.TaxClass)
			}
			taxRate, err := valueobject.NewTaxRate(rate, class)
			if err != nil {
				return err
			}
			if err := invoice.UpdateItemTaxRate(itemID, taxRate); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveInvoiceItem removes a line item from a draft invoice
func (s *InvoiceService) RemoveInvoiceItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		return invoice.RemoveItem(itemID)
	})
}

// FinalizeInvoice locks the invoice item list
func (s *InvoiceService) FinalizeInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		return invoice.Finalize()
	})
}

// SendInvoice marks the invoice as sent to the client
func (s *InvoiceService) SendInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		return invoice.Send()
	})
}

// RecordPayment applies one payment to the invoice
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	amount, err := valueobject.NewMoney(req.Amount, valueobject.Currency(req.Currency))
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		if err := invoice.RecordPayment(amount); err != nil {
			return err
		}
		s.logger.Info("payment recorded",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("amount", amount.String()),
			zap.String("status", invoice.Status.String()))
		return nil
	})
}

// VoidInvoice voids the invoice with a reason
func (s *InvoiceService) VoidInvoice(ctx context.Context, invoiceID uuid.UUID, req VoidInvoiceRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, invoiceID, func(invoice *invoicing.Invoice) error {
		return invoice.Void(req.Reason)
	})
}

// ProrateInvoice derives a standard draft invoice covering a partial
// period of a recurring invoice, saves it, and returns the new draft
func (s *InvoiceService) ProrateInvoice(ctx context.Context, invoiceID uuid.UUID, req ProrateInvoiceRequest) (*InvoiceResponse, error) {
	source, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	prorated, err := source.Prorate(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	// Replace the process-local number with a repository-allocated one so
	// proration stays safe across instances.
	number, err := s.repo.NextInvoiceNumber(ctx, source.Number.Prefix())
	if err != nil {
		return nil, err
	}
	prorated.Number = number

	if err := s.repo.Save(ctx, prorated); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, prorated)
	s.publishEvents(ctx, source)

	s.logger.Info("invoice prorated",
		zap.String("source_id", source.ID.String()),
		zap.String("prorated_number", prorated.Number.String()))

	return toInvoiceResponse(prorated), nil
}

// DeleteInvoice removes a draft invoice entirely
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	invoice, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !invoice.IsDraft() {
		return shared.NewBusinessRuleViolationError("Only draft invoices can be deleted; void the invoice instead")
	}
	return s.repo.Delete(ctx, invoiceID)
}

func (s *InvoiceService) loadInvoice(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.ErrNotFound
	}
	return invoice, nil
}

// mutate loads the invoice, applies op, and saves under the version the
// aggregate was loaded with.
func (s *InvoiceService) mutate(ctx context.Context, id uuid.UUID, op func(*invoicing.Invoice) error) (*InvoiceResponse, error) {
	invoice, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	loadedVersion := invoice.GetVersion()

	if err := op(invoice); err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithLock(ctx, invoice, loadedVersion); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	return toInvoiceResponse(invoice), nil
}

// publishEvents drains and publishes the aggregate's pending events.
// Publish failures are logged, not surfaced: the state change has
// already been committed.
func (s *InvoiceService) publishEvents(ctx context.Context, invoice *invoicing.Invoice) {
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Error("failed to publish invoice events",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
	invoice.ClearDomainEvents()
}

func toItemResponse(item invoicing.InvoiceItem) InvoiceItemResponse {
	return InvoiceItemResponse{
		ID:          item.ID(),
		Description: item.Description(),
		Quantity:    item.Quantity(),
		UnitPrice:   item.UnitPrice().Amount(),
		TaxRate:     item.TaxRate().Rate(),
		TaxClass:    item.TaxRate().Classification().String(),
		Subtotal:    item.Subtotal().Amount(),
		TaxAmount:   item.TaxAmount().Amount(),
		Total:       item.Total().Amount(),
	}
}

func toInvoiceResponse(invoice *invoicing.Invoice) *InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, toItemResponse(item))
	}

	var frequency *string
	if invoice.Frequency != nil {
		f := invoice.Frequency.String()
		frequency = &f
	}

	total := invoice.Total()
	return &InvoiceResponse{
		ID:           invoice.ID,
		Number:       invoice.Number.String(),
		ClientID:     invoice.ClientID,
		IssuedBy:     invoice.IssuedBy,
		ProjectID:    invoice.ProjectID,
		Type:         invoice.Type.String(),
		Currency:     invoice.Currency.String(),
		Status:       invoice.Status.String(),
		DueDate:      invoice.DueDate,
		Frequency:    frequency,
		Notes:        invoice.Notes,
		Items:        items,
		Subtotal:     invoice.Subtotal().Amount(),
		TotalTax:     invoice.TotalTax().Amount(),
		Total:        total.Amount(),
		TotalDisplay: total.DisplayString(),
		PaidAmount:   invoice.PaidAmount,
		FinalizedAt:  invoice.FinalizedAt,
		SentAt:       invoice.SentAt,
		PaidAt:       invoice.PaidAt,
		VoidedAt:     invoice.VoidedAt,
		VoidReason:   invoice.VoidReason,
		Overdue:      invoice.IsOverdue(),
		CreatedAt:    invoice.CreatedAt,
		UpdatedAt:    invoice.UpdatedAt,
		Version:      invoice.GetVersion(),
	}
}

func mapPage(page *shared.Paginated[*invoicing.Invoice]) *shared.Paginated[*InvoiceResponse] {
	responses := make([]*InvoiceResponse, 0, len(page.Items))
	for _, invoice := range page.Items {
		responses = append(responses, toInvoiceResponse(invoice))
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result
}
