package event

import (
	"context"

	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceAuditHandler writes a structured audit line for every invoice
// lifecycle event.
type InvoiceAuditHandler struct {
	logger *zap.Logger
}

// NewInvoiceAuditHandler creates a new audit handler
func NewInvoiceAuditHandler(logger *zap.Logger) *InvoiceAuditHandler {
	return &InvoiceAuditHandler{logger: logger.Named("audit")}
}

// Handle logs the event
func (h *InvoiceAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("invoice event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns the invoice lifecycle events this handler audits
func (h *InvoiceAuditHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoiceFinalized,
		invoicing.EventTypeInvoiceSent,
		invoicing.EventTypeInvoicePaymentRecorded,
		invoicing.EventTypeInvoicePaid,
		invoicing.EventTypeInvoiceVoided,
		invoicing.EventTypeInvoiceProrated,
	}
}

var _ shared.EventHandler = (*InvoiceAuditHandler)(nil)
