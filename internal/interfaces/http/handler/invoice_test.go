package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	database := &persistence.Database{DB: db}
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { _ = database.Close() })

	repo := persistence.NewGormInvoiceRepository(db)
	service := invoicingapp.NewInvoiceService(repo, noopPublisher{}, zap.NewNop())

	middleware.SetupValidator()
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewInvoiceHandler(service).RegisterRoutes(api)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, "response body: %s", w.Body.String())
	return resp.Data
}

func createInvoiceRequest() map[string]any {
	return map[string]any{
		"number_prefix": "INV",
		"client_id":     uuid.New().String(),
		"issued_by":     uuid.New().String(),
		"type":          "STANDARD",
		"currency":      "USD",
		"due_date":      time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		"items": []map[string]any{
			{
				"description":        "Design work",
				"quantity":           "2",
				"unit_price":         "100.00",
				"tax_rate":           "10",
				"tax_classification": "SALES_TAX",
			},
		},
	}
}

func TestInvoiceHandler_CreateAndGet(t *testing.T) {
	engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", createInvoiceRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "INV-001000", data["number"])
	assert.Equal(t, "DRAFT", data["status"])
	assert.Equal(t, "220.00", data["total"])

	id := data["id"].(string)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "INV-001000", decodeData(t, w)["number"])

	w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices/number/INV-001000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodeData(t, w)["id"])
}

func TestInvoiceHandler_CreateValidation(t *testing.T) {
	engine := newTestServer(t)

	t.Run("missing required fields", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported currency", func(t *testing.T) {
		req := createInvoiceRequest()
		req["currency"] = "XXX"
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown invoice type", func(t *testing.T) {
		req := createInvoiceRequest()
		req["type"] = "WEIRD"
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("due date in the past", func(t *testing.T) {
		req := createInvoiceRequest()
		req["due_date"] = time.Now().Add(-time.Hour).Format(time.RFC3339)
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestInvoiceHandler_Lifecycle(t *testing.T) {
	engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", createInvoiceRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeData(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/finalize", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "FINALIZED", decodeData(t, w)["status"])

	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/send", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SENT", decodeData(t, w)["status"])

	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/payments", id), map[string]any{
		"amount":   "100.00",
		"currency": "USD",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PARTIALLY_PAID", decodeData(t, w)["status"])

	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/payments", id), map[string]any{
		"amount":   "120.00",
		"currency": "USD",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PAID", decodeData(t, w)["status"])

	// Paid invoices cannot be voided
	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/void", id), map[string]any{
		"reason": "duplicate",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInvoiceHandler_ItemManagement(t *testing.T) {
	engine := newTestServer(t)

	req := createInvoiceRequest()
	req["items"] = []map[string]any{}
	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", req)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeData(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/items", id), map[string]any{
		"description": "Hosting",
		"quantity":    "1",
		"unit_price":  "50.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	items := data["items"].([]any)
	require.Len(t, items, 1)
	itemID := items[0].(map[string]any)["id"].(string)
	assert.Equal(t, "50.00", data["total"])

	w = doJSON(t, engine, http.MethodPut, fmt.Sprintf("/api/v1/invoices/%s/items/%s", id, itemID), map[string]any{
		"quantity": "3",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "150.00", decodeData(t, w)["total"])

	w = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/api/v1/invoices/%s/items/%s", id, itemID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", decodeData(t, w)["total"])

	// Finalizing an empty invoice is rejected
	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/finalize", id), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInvoiceHandler_List(t *testing.T) {
	engine := newTestServer(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", createInvoiceRequest())
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices?status=DRAFT&page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool  `json:"success"`
		Data    []any `json:"data"`
		Meta    struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	t.Run("invalid status filter", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices?status=BOGUS", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInvoiceHandler_Prorate(t *testing.T) {
	engine := newTestServer(t)

	req := createInvoiceRequest()
	req["number_prefix"] = "REC"
	req["type"] = "RECURRING"
	req["frequency"] = "MONTHLY"
	req["items"] = []map[string]any{
		{
			"description": "Subscription",
			"quantity":    "1",
			"unit_price":  "299.00",
		},
	}
	w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeData(t, w)["id"].(string)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/prorate", id), map[string]any{
		"start_date": start.Format(time.RFC3339),
		"end_date":   start.Add(15 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "REC-001001", data["number"])
	assert.Equal(t, "149.50", data["total"])
}

func TestInvoiceHandler_Errors(t *testing.T) {
	engine := newTestServer(t)

	t.Run("malformed invoice id", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown invoice number", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/invoices/number/ZZ-999999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete non-draft", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", createInvoiceRequest())
		require.Equal(t, http.StatusCreated, w.Code)
		id := decodeData(t, w)["id"].(string)

		w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/finalize", id), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, engine, http.MethodDelete, "/api/v1/invoices/"+id, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/void", id), map[string]any{"reason": "test"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete draft", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/invoices", createInvoiceRequest())
		require.Equal(t, http.StatusCreated, w.Code)
		id := decodeData(t, w)["id"].(string)

		w = doJSON(t, engine, http.MethodDelete, "/api/v1/invoices/"+id, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
