/*
store.go - Persistence contract required by the ledger

PURPOSE:
  Defines what the ledger needs from storage and nothing more: inserts that
  assign identities, lookups, listings, the compare-and-set on the sold
  flag and decimal sums. SQL text, connection handling and schema belong to
  the implementations.

KEY INTERFACES:
  ProductStore, CustomerStore, SaleStore, PaymentStore: per-entity CRUD + sums
  AuditLog: who-did-what trail of successful registrations
  Store:    all of the above
  TxStore:  Store + WithTx for atomic units of work

CONTRACT:
  - Get* returns (nil, nil) when the row is absent. Absence is not an error
    at this level; the ledger turns it into a NotFoundError.
  - Sum* never returns "no rows": an empty set sums to zero.
  - MarkProductSold flips sold false->true and reports whether it did.
    A second call for the same product returns false. This is the guard
    against two sales of one product.
  - Implementations wrap their own failures with NewStorageError so that
    KindOf(err) == KindStorage.

LIFECYCLE:
  The caller opens the store, injects it into ledger.New and closes it.
  The ledger never opens or closes connections.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (production)
  - ledger/store/memory.go: In-memory (tests, demo mode)
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// ENTITY STORES
// =============================================================================

type ProductStore interface {
	InsertProduct(ctx context.Context, p Product) (ProductID, error)
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	// ListAvailableProducts returns products with sold = false.
	ListAvailableProducts(ctx context.Context) ([]Product, error)

	// MarkProductSold sets sold = true only if it is currently false.
	// Returns false when the product is absent or already sold.
	MarkProductSold(ctx context.Context, id ProductID) (bool, error)

	// SumPurchasePrices sums purchase prices over all products, sold or not.
	SumPurchasePrices(ctx context.Context) (Money, error)

	// DeleteProduct exists for maintenance only. The ledger never deletes.
	DeleteProduct(ctx context.Context, id ProductID) error
}

type CustomerStore interface {
	InsertCustomer(ctx context.Context, c Customer) (CustomerID, error)
	GetCustomer(ctx context.Context, id CustomerID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	UpdateCustomer(ctx context.Context, c Customer) error
}

type SaleStore interface {
	InsertSale(ctx context.Context, s Sale) (SaleID, error)
	ListSales(ctx context.Context) ([]Sale, error)
	ListSalesByCustomer(ctx context.Context, id CustomerID) ([]Sale, error)
	GetSaleByProduct(ctx context.Context, id ProductID) (*Sale, error)

	// SumSalePrices sums sale prices, restricted to one customer when
	// customer is non-nil.
	SumSalePrices(ctx context.Context, customer *CustomerID) (Money, error)
}

type PaymentStore interface {
	InsertPayment(ctx context.Context, p Payment) (PaymentID, error)
	ListPaymentsByCustomer(ctx context.Context, id CustomerID) ([]Payment, error)

	// SumPayments sums payment amounts, restricted to one customer when
	// customer is non-nil.
	SumPayments(ctx context.Context, customer *CustomerID) (Money, error)
}

// =============================================================================
// AUDIT LOG - Separate from the entities, tracks what happened when
// =============================================================================

type AuditAction string

const (
	AuditProductRegistered  AuditAction = "product_registered"
	AuditCustomerRegistered AuditAction = "customer_registered"
	AuditCustomerUpdated    AuditAction = "customer_updated"
	AuditSaleRegistered     AuditAction = "sale_registered"
	AuditPaymentRegistered  AuditAction = "payment_registered"
)

// AuditEntry records one successful ledger mutation. Append-only.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	Action    AuditAction
	Entity    string
	EntityID  int64
	Payload   map[string]string
}

type AuditFilter struct {
	Action   *AuditAction
	Entity   string
	EntityID int64 // 0 = any
	Limit    int   // 0 = no limit
}

type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// QueryAudit returns matching entries, oldest first.
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// =============================================================================
// STORE + TRANSACTIONAL STORE
// =============================================================================

type Store interface {
	ProductStore
	CustomerStore
	SaleStore
	PaymentStore
	AuditLog
}

// TxStore wraps Store with transaction support.
// Use this when several writes must succeed or fail together (a sale).
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the Store is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
