package invoicing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	domain "github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inMemoryInvoiceRepository is a test double backed by a map. It keeps
// the stored version alongside each aggregate so optimistic locking can
// be exercised without a database.
type inMemoryInvoiceRepository struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]*domain.Invoice
	sequences map[string]int64
}

func newInMemoryInvoiceRepository() *inMemoryInvoiceRepository {
	return &inMemoryInvoiceRepository{
		invoices:  make(map[uuid.UUID]*domain.Invoice),
		sequences: make(map[string]int64),
	}
}

func (r *inMemoryInvoiceRepository) Save(_ context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *inMemoryInvoiceRepository) SaveWithLock(_ context.Context, invoice *domain.Invoice, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.invoices[invoice.ID]
	if ok && stored != invoice && stored.GetVersion() != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *inMemoryInvoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id], nil
}

func (r *inMemoryInvoiceRepository) FindByNumber(_ context.Context, number domain.InvoiceNumber) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, invoice := range r.invoices {
		if invoice.Number.Equals(number) {
			return invoice, nil
		}
	}
	return nil, nil
}

func (r *inMemoryInvoiceRepository) FindByClientID(_ context.Context, clientID uuid.UUID, filter shared.Filter) (*shared.Paginated[*domain.Invoice], error) {
	return r.collect(filter, func(invoice *domain.Invoice) bool {
		return invoice.ClientID == clientID
	})
}

func (r *inMemoryInvoiceRepository) FindByStatus(_ context.Context, status domain.InvoiceStatus, filter shared.Filter) (*shared.Paginated[*domain.Invoice], error) {
	return r.collect(filter, func(invoice *domain.Invoice) bool {
		return invoice.Status == status
	})
}

func (r *inMemoryInvoiceRepository) FindOverdue(_ context.Context, asOf time.Time, filter shared.Filter) (*shared.Paginated[*domain.Invoice], error) {
	return r.collect(filter, func(invoice *domain.Invoice) bool {
		return (invoice.Status == domain.InvoiceStatusSent || invoice.Status == domain.InvoiceStatusPartiallyPaid) &&
			invoice.DueDate.Before(asOf)
	})
}

func (r *inMemoryInvoiceRepository) FindDraftsByUser(_ context.Context, issuedBy uuid.UUID, filter shared.Filter) (*shared.Paginated[*domain.Invoice], error) {
	return r.collect(filter, func(invoice *domain.Invoice) bool {
		return invoice.Status == domain.InvoiceStatusDraft && invoice.IssuedBy == issuedBy
	})
}

func (r *inMemoryInvoiceRepository) List(_ context.Context, filter domain.InvoiceFilter) (*shared.Paginated[*domain.Invoice], error) {
	return r.collect(filter.Filter, func(invoice *domain.Invoice) bool {
		if filter.ClientID != nil && invoice.ClientID != *filter.ClientID {
			return false
		}
		if filter.Status != nil && invoice.Status != *filter.Status {
			return false
		}
		if filter.Type != nil && invoice.Type != *filter.Type {
			return false
		}
		return true
	})
}

func (r *inMemoryInvoiceRepository) collect(filter shared.Filter, match func(*domain.Invoice) bool) (*shared.Paginated[*domain.Invoice], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*domain.Invoice, 0)
	for _, invoice := range r.invoices {
		if match(invoice) {
			matched = append(matched, invoice)
		}
	}
	page := shared.NewPaginated(matched, int64(len(matched)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *inMemoryInvoiceRepository) ExistsByNumber(_ context.Context, number domain.InvoiceNumber) (bool, error) {
	invoice, _ := r.FindByNumber(context.Background(), number)
	return invoice != nil, nil
}

func (r *inMemoryInvoiceRepository) NextInvoiceNumber(_ context.Context, prefix string) (domain.InvoiceNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences[prefix]++
	return domain.FormatInvoiceNumber(prefix, 1000+r.sequences[prefix])
}

func (r *inMemoryInvoiceRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

func newTestService() (*InvoiceService, *inMemoryInvoiceRepository, *capturingPublisher) {
	repo := newInMemoryInvoiceRepository()
	publisher := &capturingPublisher{}
	return NewInvoiceService(repo, publisher, zap.NewNop()), repo, publisher
}

func createRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		NumberPrefix: "INV",
		ClientID:     uuid.New(),
		IssuedBy:     uuid.New(),
		Type:         "STANDARD",
		Currency:     "USD",
		DueDate:      time.Now().AddDate(0, 0, 30),
		Items: []AddItemRequest{
			{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), TaxRate: decimal.NewFromInt(10)},
			{Description: "Support", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), TaxRate: decimal.NewFromInt(10)},
		},
	}
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	resp, err := svc.CreateInvoice(ctx, createRequest())
	require.NoError(t, err)

	assert.Equal(t, "INV-001001", resp.Number)
	assert.Equal(t, "DRAFT", resp.Status)
	assert.Len(t, resp.Items, 2)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, resp.TotalTax.Equal(decimal.NewFromInt(25)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(275)))
	assert.Equal(t, "$275.00", resp.TotalDisplay)
	assert.Contains(t, publisher.eventTypes(), domain.EventTypeInvoiceCreated)

	second, err := svc.CreateInvoice(ctx, createRequest())
	require.NoError(t, err)
	assert.Equal(t, "INV-001002", second.Number)
}

func TestInvoiceService_CreateInvoice_InvalidItem(t *testing.T) {
	svc, repo, _ := newTestService()
	req := createRequest()
	req.Items[0].Quantity = decimal.Zero

	_, err := svc.CreateInvoice(context.Background(), req)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeInvalidValue, domainErr.Code)
	assert.Empty(t, repo.invoices)
}

func TestInvoiceService_Lifecycle(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, createRequest())
	require.NoError(t, err)
	id := created.ID

	finalized, err := svc.FinalizeInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "FINALIZED", finalized.Status)
	assert.NotNil(t, finalized.FinalizedAt)

	sent, err := svc.SendInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "SENT", sent.Status)

	partial, err := svc.RecordPayment(ctx, id, RecordPaymentRequest{Amount: decimal.NewFromInt(100), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_PAID", partial.Status)
	assert.True(t, partial.PaidAmount.Equal(decimal.NewFromInt(100)))

	paid, err := svc.RecordPayment(ctx, id, RecordPaymentRequest{Amount: decimal.NewFromInt(175), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "PAID", paid.Status)
	assert.NotNil(t, paid.PaidAt)

	types := publisher.eventTypes()
	assert.Contains(t, types, domain.EventTypeInvoiceFinalized)
	assert.Contains(t, types, domain.EventTypeInvoiceSent)
	assert.Contains(t, types, domain.EventTypeInvoicePaid)
}

func TestInvoiceService_ItemManagement(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, createRequest())
	require.NoError(t, err)
	id := created.ID

	withItem, err := svc.AddInvoiceItem(ctx, id, AddItemRequest{
		Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25),
	})
	require.NoError(t, err)
	require.Len(t, withItem.Items, 3)
	itemID := withItem.Items[2].ID

	qty := decimal.NewFromInt(4)
	updated, err := svc.UpdateInvoiceItem(ctx, id, itemID, UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, updated.Items[2].Subtotal.Equal(decimal.NewFromInt(100)))

	removed, err := svc.RemoveInvoiceItem(ctx, id, itemID)
	require.NoError(t, err)
	assert.Len(t, removed.Items, 2)
}

func TestInvoiceService_Void(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, createRequest())
	require.NoError(t, err)

	voided, err := svc.VoidInvoice(ctx, created.ID, VoidInvoiceRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, "VOID", voided.Status)
	assert.Equal(t, "duplicate", voided.VoidReason)

	_, err = svc.VoidInvoice(ctx, created.ID, VoidInvoiceRequest{Reason: "again"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeBusinessRuleViolation, domainErr.Code)
}

func TestInvoiceService_Prorate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	freq := "MONTHLY"
	req := createRequest()
	req.NumberPrefix = "REC"
	req.Type = "RECURRING"
	req.Frequency = &freq
	req.Items = []AddItemRequest{
		{Description: "Monthly subscription", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(299.00)},
	}

	created, err := svc.CreateInvoice(ctx, req)
	require.NoError(t, err)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	prorated, err := svc.ProrateInvoice(ctx, created.ID, ProrateInvoiceRequest{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 15),
	})
	require.NoError(t, err)

	assert.Equal(t, "STANDARD", prorated.Type)
	assert.Equal(t, "DRAFT", prorated.Status)
	assert.Equal(t, "REC-001002", prorated.Number)
	diff := prorated.Subtotal.Sub(decimal.NewFromFloat(149.50)).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.01)))

	// the new draft is persisted and loadable
	loaded, err := svc.GetInvoiceByNumber(ctx, "REC-001002")
	require.NoError(t, err)
	assert.Equal(t, prorated.ID, loaded.ID)
}

func TestInvoiceService_Delete(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, createRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteInvoice(ctx, created.ID))
	assert.Empty(t, repo.invoices)

	t.Run("non-draft cannot be deleted", func(t *testing.T) {
		created, err := svc.CreateInvoice(ctx, createRequest())
		require.NoError(t, err)
		_, err = svc.FinalizeInvoice(ctx, created.ID)
		require.NoError(t, err)

		err = svc.DeleteInvoice(ctx, created.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeBusinessRuleViolation, domainErr.Code)
	})
}

func TestInvoiceService_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.GetInvoice(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
