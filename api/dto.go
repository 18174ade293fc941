/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMATS:
  Money   decimal string with two fraction digits: "25.00"
  Dates   "YYYY-MM-DD"
  Images  base64 (standard encoding) in JSON; raw bytes from /image

VALIDATION:
  Requests are parsed here (parse* helpers) only as far as turning strings
  into ledger types. Business rules are the ledger's job; a malformed
  amount or date becomes a *ledger.ValidationError naming the field.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/warp/shirt-ledger/ledger"
)

// =============================================================================
// PRODUCTS
// =============================================================================

type ProductDTO struct {
	ID            int64  `json:"id"`
	Description   string `json:"description"`
	Size          string `json:"size"`
	PurchasePrice string `json:"purchase_price"`
	PurchaseDate  string `json:"purchase_date"`
	Sold          bool   `json:"sold"`
	HasImage      bool   `json:"has_image"`
	ImageURL      string `json:"image_url,omitempty"`
}

type CreateProductRequest struct {
	Description   string `json:"description"`
	Size          string `json:"size"`
	PurchasePrice string `json:"purchase_price"`
	PurchaseDate  string `json:"purchase_date"`
	Image         string `json:"image,omitempty"` // base64
}

// =============================================================================
// CUSTOMERS
// =============================================================================

type CustomerDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomerRequest is the body of both create and update.
type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type BalanceDTO struct {
	CustomerID int64  `json:"customer_id"`
	Balance    string `json:"balance"`
	Status     string `json:"status"` // "owes", "settled" or "credit"
}

type StatementDTO struct {
	Customer  CustomerDTO  `json:"customer"`
	Sales     []SaleDTO    `json:"sales"`
	Payments  []PaymentDTO `json:"payments"`
	TotalSold string       `json:"total_sold"`
	TotalPaid string       `json:"total_paid"`
	Balance   string       `json:"balance"`
}

// =============================================================================
// SALES & PAYMENTS
// =============================================================================

type SaleDTO struct {
	ID         int64  `json:"id"`
	ProductID  int64  `json:"product_id"`
	CustomerID int64  `json:"customer_id"`
	SaleDate   string `json:"sale_date"`
	SalePrice  string `json:"sale_price"`
}

type CreateSaleRequest struct {
	ProductID  int64  `json:"product_id"`
	CustomerID int64  `json:"customer_id"`
	SaleDate   string `json:"sale_date"`
	SalePrice  string `json:"sale_price"`
}

type PaymentDTO struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	PaymentDate string `json:"payment_date"`
	Amount      string `json:"amount"`
	Note        string `json:"note,omitempty"`
}

type CreatePaymentRequest struct {
	CustomerID  int64  `json:"customer_id"`
	PaymentDate string `json:"payment_date"`
	Amount      string `json:"amount"`
	Note        string `json:"note"`
}

// =============================================================================
// SUMMARY & AUDIT
// =============================================================================

type SummaryDTO struct {
	TotalSpent    string       `json:"total_spent"`
	TotalReceived string       `json:"total_received"`
	Profit        string       `json:"profit"`
	StockValue    string       `json:"stock_value"`
	ProductCount  int          `json:"product_count"`
	SoldCount     int          `json:"sold_count"`
	Stock         []ProductDTO `json:"stock"`
}

type AuditEntryDTO struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Entity    string            `json:"entity"`
	EntityID  int64             `json:"entity_id"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProductDTO(p ledger.Product) ProductDTO {
	dto := ProductDTO{
		ID:            int64(p.ID),
		Description:   p.Description,
		Size:          p.Size,
		PurchasePrice: p.PurchasePrice.String(),
		PurchaseDate:  p.PurchaseDate.String(),
		Sold:          p.Sold,
		HasImage:      p.HasImage(),
	}
	if dto.HasImage {
		dto.ImageURL = "/api/products/" + idString(dto.ID) + "/image"
	}
	return dto
}

func toProductDTOs(products []ledger.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{
		ID:      int64(c.ID),
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
	}
}

func toSaleDTO(s ledger.Sale) SaleDTO {
	return SaleDTO{
		ID:         int64(s.ID),
		ProductID:  int64(s.ProductID),
		CustomerID: int64(s.CustomerID),
		SaleDate:   s.SaleDate.String(),
		SalePrice:  s.SalePrice.String(),
	}
}

func toSaleDTOs(sales []ledger.Sale) []SaleDTO {
	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	return dtos
}

func toPaymentDTO(p ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          int64(p.ID),
		CustomerID:  int64(p.CustomerID),
		PaymentDate: p.PaymentDate.String(),
		Amount:      p.Amount.String(),
		Note:        p.Note,
	}
}

func toPaymentDTOs(payments []ledger.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toBalanceDTO(id ledger.CustomerID, balance ledger.Money) BalanceDTO {
	status := "settled"
	switch {
	case balance.IsPositive():
		status = "owes"
	case balance.IsNegative():
		status = "credit"
	}
	return BalanceDTO{CustomerID: int64(id), Balance: balance.String(), Status: status}
}

func toAuditEntryDTO(e ledger.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Payload:   e.Payload,
	}
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

// parseMoney treats a blank amount as absent; the ledger then reports it
// with its own "must be greater than zero" rule.
func parseMoney(field, s string) (ledger.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ledger.Money{}, nil
	}
	m, err := ledger.NewMoney(s)
	if errors.Is(err, ledger.ErrAmountOutOfRange) {
		return ledger.Money{}, &ledger.ValidationError{Field: field, Message: "is out of range"}
	}
	if err != nil {
		return ledger.Money{}, &ledger.ValidationError{Field: field, Message: "must be a decimal amount such as 25.00"}
	}
	return m, nil
}

func parseDate(field, s string) (ledger.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ledger.Date{}, nil
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		return ledger.Date{}, &ledger.ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return d, nil
}

// The to* conversions leave fields unparsed once an earlier field is
// already invalid, so the ledger reports the first failing field in its
// own order.

func (req CreateProductRequest) toProduct() (ledger.Product, error) {
	p := ledger.Product{Description: req.Description, Size: req.Size}
	if strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Size) == "" {
		return p, nil
	}
	var err error
	if p.PurchasePrice, err = parseMoney("purchase_price", req.PurchasePrice); err != nil {
		return ledger.Product{}, err
	}
	if p.PurchaseDate, err = parseDate("purchase_date", req.PurchaseDate); err != nil {
		return ledger.Product{}, err
	}
	if req.Image != "" {
		p.Image, err = base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			return ledger.Product{}, &ledger.ValidationError{Field: "image", Message: "must be base64 encoded"}
		}
	}
	return p, nil
}

func (req CustomerRequest) toCustomer(id ledger.CustomerID) ledger.Customer {
	return ledger.Customer{
		ID:      id,
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
}

func (req CreateSaleRequest) toSale() (ledger.Sale, error) {
	sale := ledger.Sale{
		ProductID:  ledger.ProductID(req.ProductID),
		CustomerID: ledger.CustomerID(req.CustomerID),
	}
	if !sale.ProductID.Valid() || !sale.CustomerID.Valid() {
		return sale, nil
	}
	var err error
	if sale.SaleDate, err = parseDate("sale_date", req.SaleDate); err != nil {
		return ledger.Sale{}, err
	}
	if sale.SaleDate.IsZero() {
		return sale, nil
	}
	if sale.SalePrice, err = parseMoney("sale_price", req.SalePrice); err != nil {
		return ledger.Sale{}, err
	}
	return sale, nil
}

func (req CreatePaymentRequest) toPayment() (ledger.Payment, error) {
	payment := ledger.Payment{CustomerID: ledger.CustomerID(req.CustomerID), Note: req.Note}
	if !payment.CustomerID.Valid() {
		return payment, nil
	}
	var err error
	if payment.PaymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
		return ledger.Payment{}, err
	}
	if payment.PaymentDate.IsZero() {
		return payment, nil
	}
	if payment.Amount, err = parseMoney("amount", req.Amount); err != nil {
		return ledger.Payment{}, err
	}
	return payment, nil
}
