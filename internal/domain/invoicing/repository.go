package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// InvoiceFilter carries the optional criteria for invoice list queries
type InvoiceFilter struct {
	shared.Filter
	ClientID *uuid.UUID
	IssuedBy *uuid.UUID
	Status   *InvoiceStatus
	Type     *InvoiceType
	DueFrom  *time.Time
	DueTo    *time.Time
}

// InvoiceRepository is the persistence contract for the invoice
// aggregate. Implementations must store and reload aggregates without
// loss: items keep their identity and order, and derived totals are
// never persisted.
type InvoiceRepository interface {
	// Save persists a new or updated invoice together with its items
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock persists the invoice only if the stored version still
	// matches expectedVersion, returning shared.ErrConcurrencyConflict
	// otherwise
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error

	// FindByID loads an invoice by its aggregate ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber loads an invoice by its invoice number
	FindByNumber(ctx context.Context, number InvoiceNumber) (*Invoice, error)

	// FindByClientID returns all invoices for a client
	FindByClientID(ctx context.Context, clientID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Invoice], error)

	// FindByStatus returns all invoices in the given status
	FindByStatus(ctx context.Context, status InvoiceStatus, filter shared.Filter) (*shared.Paginated[*Invoice], error)

	// FindOverdue returns SENT and PARTIALLY_PAID invoices whose due
	// date is before the given time
	FindOverdue(ctx context.Context, asOf time.Time, filter shared.Filter) (*shared.Paginated[*Invoice], error)

	// FindDraftsByUser returns draft invoices issued by the given user
	FindDraftsByUser(ctx context.Context, issuedBy uuid.UUID, filter shared.Filter) (*shared.Paginated[*Invoice], error)

	// List returns invoices matching the combined filter
	List(ctx context.Context, filter InvoiceFilter) (*shared.Paginated[*Invoice], error)

	// ExistsByNumber reports whether an invoice with the number exists
	ExistsByNumber(ctx context.Context, number InvoiceNumber) (bool, error)

	// NextInvoiceNumber allocates the next invoice number for a prefix.
	// Unlike GenerateInvoiceNumber this is safe across instances.
	NextInvoiceNumber(ctx context.Context, prefix string) (InvoiceNumber, error)

	// Delete removes a draft invoice. Non-draft invoices must be voided
	// instead.
	Delete(ctx context.Context, id uuid.UUID) error
}
