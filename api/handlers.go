/*
handlers.go - HTTP API handlers for the shirt ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response and JSON
  serialization, and delegates every rule to *ledger.Ledger.

ENDPOINTS:
  Products:
    GET    /api/products                 List all products
    POST   /api/products                 Register a purchased product
    GET    /api/products/available       Products still in stock
    GET    /api/products/{id}            Product details
    GET    /api/products/{id}/image      Raw image bytes
    GET    /api/products/{id}/sale       The sale that sold it

  Customers:
    GET    /api/customers                List customers
    POST   /api/customers                Register customer
    GET    /api/customers/{id}           Customer details
    PUT    /api/customers/{id}           Update customer
    GET    /api/customers/{id}/balance   What the customer owes
    GET    /api/customers/{id}/statement Sales, payments and totals
    GET    /api/customers/{id}/sales     Purchase history
    GET    /api/customers/{id}/payments  Payment history

  Sales & payments:
    GET    /api/sales                    List sales
    POST   /api/sales                    Register sale (marks product sold)
    POST   /api/payments                 Register payment

  Management:
    GET    /api/summary                  Spent, received, profit, stock
    GET    /api/reports/{stock,sales,summary}.csv
    GET    /api/audit                    Audit trail

ERROR HANDLING:
  Ledger errors map to HTTP status by kind (ledger.KindOf):
  - 400: Validation (body carries the field and the rule violated)
  - 404: Referenced product/customer not found
  - 409: Conflict (product already sold)
  - 500: Storage failure, with a generic "try again" message only

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/shirt-ledger/ledger"
	"github.com/warp/shirt-ledger/report"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; product photos arrive base64 encoded.
const maxBodyBytes = 16 << 20

// storageFailureMessage is shown for every storage error; details go to the log.
const storageFailureMessage = "Storage failure: please try again or check the database"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears all ledger data. Both store implementations provide it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Pinger checks that the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger  *ledger.Ledger
	Reports *report.Reporter
	Metrics *Metrics

	store  Resetter
	pinger Pinger
	log    *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the ledger. store is used only by
// the demo scenario loader to wipe data.
func NewHandler(l *ledger.Ledger, store Resetter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		Ledger:  l,
		Reports: report.New(l),
		Metrics: NewMetrics(),
		store:   store,
		log:     log,
	}
	if p, ok := store.(Pinger); ok {
		h.pinger = p
	}
	return h
}

// Health reports liveness. A store that can be pinged must answer,
// otherwise the response is 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.log.Error("health check failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
				Error: storageFailureMessage,
				Code:  ledger.KindStorage.String(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns every product, sold or not.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Ledger.ListProducts(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "list_products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// ListAvailableProducts returns the products that can still be sold.
// GET /api/products/available
func (h *Handler) ListAvailableProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Ledger.ListAvailableProducts(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "list_available_products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// CreateProduct registers a purchased product.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeBody(w, r, &req) {
		return
	}

	candidate, err := req.toProduct()
	if err == nil {
		candidate, err = h.Ledger.RegisterProduct(r.Context(), candidate)
	}
	h.Metrics.Observe("register_product", err)
	if err != nil {
		h.writeLedgerError(w, r, "register_product", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductDTO(candidate))
}

// GetProduct returns one product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.Ledger.GetProduct(r.Context(), ledger.ProductID(id))
	if err != nil {
		h.writeLedgerError(w, r, "get_product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product))
}

// GetProductImage streams the stored photo bytes unchanged.
// GET /api/products/{id}/image
func (h *Handler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.Ledger.GetProduct(r.Context(), ledger.ProductID(id))
	if err != nil {
		h.writeLedgerError(w, r, "get_product_image", err)
		return
	}
	if !product.HasImage() {
		writeError(w, http.StatusNotFound, "Product has no image", nil)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(product.Image))
	w.Header().Set("Content-Length", strconv.Itoa(len(product.Image)))
	w.WriteHeader(http.StatusOK)
	w.Write(product.Image)
}

func (h *Handler) GetProductSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.Ledger.ProductSale(r.Context(), ledger.ProductID(id))
	if err != nil {
		h.writeLedgerError(w, r, "product_sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Ledger.ListCustomers(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "list_customers", err)
		return
	}
	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer registers a customer. Only the name is required.
// POST /api/customers
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, err := h.Ledger.RegisterCustomer(r.Context(), req.toCustomer(0))
	h.Metrics.Observe("register_customer", err)
	if err != nil {
		h.writeLedgerError(w, r, "register_customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	customer, err := h.Ledger.GetCustomer(r.Context(), ledger.CustomerID(id))
	if err != nil {
		h.writeLedgerError(w, r, "get_customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// UpdateCustomer replaces a customer's details.
// PUT /api/customers/{id}
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, err := h.Ledger.UpdateCustomer(r.Context(), req.toCustomer(ledger.CustomerID(id)))
	h.Metrics.Observe("update_customer", err)
	if err != nil {
		h.writeLedgerError(w, r, "update_customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// GetBalance returns sales minus payments for a customer.
// GET /api/customers/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	customerID := ledger.CustomerID(id)
	balance, err := h.Ledger.Balance(r.Context(), customerID)
	if err != nil {
		h.writeLedgerError(w, r, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(customerID, balance))
}

// GetStatement returns the customer's full account.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.Ledger.Statement(r.Context(), ledger.CustomerID(id))
	if err != nil {
		h.writeLedgerError(w, r, "statement", err)
		return
	}
	writeJSON(w, http.StatusOK, StatementDTO{
		Customer:  toCustomerDTO(st.Customer),
		Sales:     toSaleDTOs(st.Sales),
		Payments:  toPaymentDTOs(st.Payments),
		TotalSold: st.TotalSold.String(),
		TotalPaid: st.TotalPaid.String(),
		Balance:   st.Balance.String(),
	})
}

func (h *Handler) GetCustomerSales(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sales, err := h.Ledger.SalesByCustomer(r.Context(), ledger.CustomerID(id))
	if err != nil {
		h.writeLedgerError(w, r, "sales_by_customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTOs(sales))
}

func (h *Handler) GetCustomerPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payments, err := h.Ledger.PaymentsByCustomer(r.Context(), ledger.CustomerID(id))
	if err != nil {
		h.writeLedgerError(w, r, "payments_by_customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// =============================================================================
// SALE & PAYMENT HANDLERS
// =============================================================================

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Ledger.ListSales(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "list_sales", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTOs(sales))
}

// CreateSale sells a product to a customer.
// POST /api/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sale, err := req.toSale()
	if err == nil {
		sale, err = h.Ledger.RegisterSale(r.Context(), sale)
	}
	h.Metrics.Observe("register_sale", err)
	if err != nil {
		h.writeLedgerError(w, r, "register_sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// CreatePayment records money received from a customer.
// POST /api/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payment, err := req.toPayment()
	if err == nil {
		payment, err = h.Ledger.RegisterPayment(r.Context(), payment)
	}
	h.Metrics.Observe("register_payment", err)
	if err != nil {
		h.writeLedgerError(w, r, "register_payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// =============================================================================
// MANAGEMENT HANDLERS
// =============================================================================

// GetSummary returns the management panel figures.
// GET /api/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Ledger.Summary(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		TotalSpent:    sum.TotalSpent.String(),
		TotalReceived: sum.TotalReceived.String(),
		Profit:        sum.Profit.String(),
		StockValue:    sum.StockValue.String(),
		ProductCount:  sum.ProductCount,
		SoldCount:     sum.SoldCount,
		Stock:         toProductDTOs(sum.Stock),
	})
}

// ListAudit returns the audit trail, oldest first.
// GET /api/audit?action=sale_registered&entity=sale&entity_id=3&limit=50
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.AuditFilter{Entity: q.Get("entity")}
	if action := q.Get("action"); action != "" {
		a := ledger.AuditAction(action)
		filter.Action = &a
	}
	if entityID := q.Get("entity_id"); entityID != "" {
		n, err := strconv.ParseInt(entityID, 10, 64)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "entity_id must be a positive integer",
				Code:  ledger.KindValidation.String(),
				Field: "entity_id",
			})
			return
		}
		filter.EntityID = n
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = n
	}

	entries, err := h.Ledger.AuditTrail(r.Context(), filter)
	if err != nil {
		h.writeLedgerError(w, r, "audit", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) StockCSV(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, "stock.csv", h.Reports.WriteStock)
}

func (h *Handler) SalesCSV(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, "sales.csv", h.Reports.WriteSales)
}

func (h *Handler) SummaryCSV(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, "summary.csv", h.Reports.WriteSummary)
}

// writeCSV renders into memory first so a failure can still become a
// JSON error instead of a truncated file.
func (h *Handler) writeCSV(w http.ResponseWriter, r *http.Request, filename string, render func(context.Context, io.Writer) error) {
	var buf bytes.Buffer
	if err := render(r.Context(), &buf); err != nil {
		h.writeLedgerError(w, r, "report_"+strings.TrimSuffix(filename, ".csv"), err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps a ledger error kind to its HTTP status.
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := ledger.KindOf(err)
	switch kind {
	case ledger.KindValidation:
		resp := ErrorResponse{Error: err.Error(), Code: kind.String()}
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			resp.Error = verr.Message
			resp.Field = verr.Field
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case ledger.KindNotFound:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: kind.String()})
	case ledger.KindConflict:
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: kind.String()})
	default:
		h.log.Error("request failed",
			zap.String("op", op),
			zap.String("kind", kind.String()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: storageFailureMessage, Code: kind.String()})
	}
}

// decodeBody parses a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "id must be a number",
			Code:  ledger.KindValidation.String(),
			Field: "id",
		})
		return 0, false
	}
	return id, true
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
