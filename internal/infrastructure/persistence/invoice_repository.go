package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// sequenceSeed is the first value handed out for a fresh prefix, so the
// first allocated number reads e.g. "INV-001000".
const sequenceSeed = 1000

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save creates or updates an invoice together with its items.
// The item rows are rewritten wholesale; item identity is preserved
// through their ids.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return err
		}
		return r.replaceItems(tx, invoice.ID, model.Items)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock persists the invoice only if the stored version still
// matches expectedVersion.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice, expectedVersion int) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, expectedVersion).
			Select("*").Omit("Items", "id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return r.replaceItems(tx, invoice.ID, model.Items)
	})
}

// replaceItems rewrites the item rows for an invoice
func (r *GormInvoiceRepository) replaceItems(tx *gorm.DB, invoiceID uuid.UUID, items []models.InvoiceItemModel) error {
	if err := tx.Delete(&models.InvoiceItemModel{}, "invoice_id = ?", invoiceID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

// FindByID loads an invoice by its aggregate ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.withItems(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByNumber loads an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number invoicing.InvoiceNumber) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.withItems(r.db.WithContext(ctx)).
		First(&model, "number = ?", number.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByClientID returns all invoices for a client
func (r *GormInvoiceRepository) FindByClientID(ctx context.Context, clientID uuid.UUID, filter shared.Filter) (*shared.Paginated[*invoicing.Invoice], error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("client_id = ?", clientID)
	return r.paginate(query, filter)
}

// FindByStatus returns all invoices in the given status
func (r *GormInvoiceRepository) FindByStatus(ctx context.Context, status invoicing.InvoiceStatus, filter shared.Filter) (*shared.Paginated[*invoicing.Invoice], error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("status = ?", status)
	return r.paginate(query, filter)
}

// FindOverdue returns invoices awaiting payment whose due date has passed
func (r *GormInvoiceRepository) FindOverdue(ctx context.Context, asOf time.Time, filter shared.Filter) (*shared.Paginated[*invoicing.Invoice], error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("due_date < ? AND status IN ?", asOf,
			[]invoicing.InvoiceStatus{invoicing.InvoiceStatusSent, invoicing.InvoiceStatusPartiallyPaid})
	return r.paginate(query, filter)
}

// FindDraftsByUser returns draft invoices issued by the given user
func (r *GormInvoiceRepository) FindDraftsByUser(ctx context.Context, issuedBy uuid.UUID, filter shared.Filter) (*shared.Paginated[*invoicing.Invoice], error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("issued_by = ? AND status = ?", issuedBy, invoicing.InvoiceStatusDraft)
	return r.paginate(query, filter)
}

// List returns invoices matching the combined filter
func (r *GormInvoiceRepository) List(ctx context.Context, filter invoicing.InvoiceFilter) (*shared.Paginated[*invoicing.Invoice], error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.IssuedBy != nil {
		query = query.Where("issued_by = ?", *filter.IssuedBy)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Search != "" {
		query = query.Where("number LIKE ?", "%"+filter.Search+"%")
	}
	return r.paginate(query, filter.Filter)
}

// ExistsByNumber reports whether an invoice with the number exists
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, number invoicing.InvoiceNumber) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("number = ?", number.String()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextInvoiceNumber allocates the next invoice number for a prefix from
// the invoice_sequences table. The increment runs inside a transaction
// so concurrent instances never hand out the same number.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context, prefix string) (invoicing.InvoiceNumber, error) {
	number, err := r.allocateNumber(ctx, prefix)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Two callers raced to seed a fresh prefix; the row exists now,
		// so a second attempt takes the update path.
		return r.allocateNumber(ctx, prefix)
	}
	return number, err
}

func (r *GormInvoiceRepository) allocateNumber(ctx context.Context, prefix string) (invoicing.InvoiceNumber, error) {
	var number invoicing.InvoiceNumber
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The UPDATE takes the row lock; on a fresh prefix fall back to
		// inserting the seed row.
		result := tx.Model(&models.InvoiceSequenceModel{}).
			Where("prefix = ?", prefix).
			Update("next_value", gorm.Expr("next_value + 1"))
		if result.Error != nil {
			return result.Error
		}

		var allocated int64
		if result.RowsAffected == 0 {
			seq := models.InvoiceSequenceModel{Prefix: prefix, NextValue: sequenceSeed + 1}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
			allocated = sequenceSeed
		} else {
			var seq models.InvoiceSequenceModel
			if err := tx.First(&seq, "prefix = ?", prefix).Error; err != nil {
				return err
			}
			allocated = seq.NextValue - 1
		}

		n, err := invoicing.FormatInvoiceNumber(prefix, allocated)
		if err != nil {
			return err
		}
		number = n
		return nil
	})
	return number, err
}

// Delete removes an invoice and its items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.InvoiceItemModel{}, "invoice_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// withItems preloads the ordered item rows
func (r *GormInvoiceRepository) withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// paginate applies ordering and pagination, then maps the rows to
// domain aggregates.
func (r *GormInvoiceRepository) paginate(query *gorm.DB, filter shared.Filter) (*shared.Paginated[*invoicing.Invoice], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := "created_at"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}
	query = query.Order(orderBy + " " + orderDir)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rows []models.InvoiceModel
	if err := r.withItems(query).Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]*invoicing.Invoice, len(rows))
	for i := range rows {
		invoice, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		invoices[i] = invoice
	}

	page := shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
