package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoicingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoicingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// Create opens a new draft invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoicingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Get returns a single invoice by ID
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// GetByNumber returns a single invoice by its invoice number
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoiceByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// List returns invoices matching the query filters
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter invoicingapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListOverdue returns invoices awaiting payment past their due date
func (h *InvoiceHandler) ListOverdue(c *gin.Context) {
	var req listQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.invoiceService.ListOverdueInvoices(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListDrafts returns draft invoices issued by a user
func (h *InvoiceHandler) ListDrafts(c *gin.Context) {
	issuedBy, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID format")
		return
	}

	var req listQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.invoiceService.ListDraftsByUser(c.Request.Context(), issuedBy, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// AddItem appends a line item to a draft invoice
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req invoicingapp.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.AddInvoiceItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// UpdateItem updates fields of a line item on a draft invoice
func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req invoicingapp.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoiceItem(c.Request.Context(), id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// RemoveItem deletes a line item from a draft invoice
func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	invoice, err := h.invoiceService.RemoveInvoiceItem(c.Request.Context(), id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Finalize locks the invoice content and moves it to FINALIZED
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	h.transition(c, h.invoiceService.FinalizeInvoice)
}

// Send marks the invoice as sent to the client
func (h *InvoiceHandler) Send(c *gin.Context) {
	h.transition(c, h.invoiceService.SendInvoice)
}

// RecordPayment applies a payment against the invoice
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req invoicingapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Void cancels the invoice with a reason
func (h *InvoiceHandler) Void(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req invoicingapp.VoidInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.VoidInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Prorate creates a prorated draft from a recurring invoice
func (h *InvoiceHandler) Prorate(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req invoicingapp.ProrateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.ProrateInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Delete removes a draft invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers all invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/overdue", h.ListOverdue)
		invoices.GET("/number/:number", h.GetByNumber)
		invoices.GET("/:id", h.Get)
		invoices.DELETE("/:id", h.Delete)

		invoices.POST("/:id/items", h.AddItem)
		invoices.PUT("/:id/items/:itemId", h.UpdateItem)
		invoices.DELETE("/:id/items/:itemId", h.RemoveItem)

		invoices.POST("/:id/finalize", h.Finalize)
		invoices.POST("/:id/send", h.Send)
		invoices.POST("/:id/payments", h.RecordPayment)
		invoices.POST("/:id/void", h.Void)
		invoices.POST("/:id/prorate", h.Prorate)
	}

	rg.GET("/users/:userId/draft-invoices", h.ListDrafts)
}

// listQuery carries plain pagination parameters
type listQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// invoiceID parses the :id path parameter, writing the error response on failure
func (h *InvoiceHandler) invoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return uuid.Nil, false
	}
	return id, true
}

// transition runs a single-step lifecycle operation
func (h *InvoiceHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*invoicingapp.InvoiceResponse, error)) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := op(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
