/*
Package sqlite provides a SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Persists products, customers, sales, payments and the audit log with
  database/sql and go-sqlite3. Schema is created on New().

KEY TABLES:
  products:  id, description, size, image (BLOB), purchase_price, purchase_date, sold
  customers: id, name, phone, email, address
  sales:     id, product_id (UNIQUE, FK), customer_id (FK), sale_date, sale_price
  payments:  id, customer_id (FK), payment_date, amount, note
  audit_log: id, ts, action, entity, entity_id, payload_json

MONEY:
  Amounts are stored as TEXT with two fraction digits ("25.00") and summed
  in Go with decimal.Decimal. SQLite's SUM() would coerce them through
  REAL, and the ledger's arithmetic must stay exact.

INVARIANTS ENFORCED BY THE SCHEMA:
  - idx_sales_product (UNIQUE): a product has at most one sale
  - MarkProductSold is "UPDATE ... WHERE sold = 0": the flag flips once
  - foreign keys are on: a sale/payment can't reference a missing row

CONCURRENCY:
  The pool is limited to one connection so ":memory:" databases stay a
  single database and every statement is serialized. WithTx additionally
  holds a mutex for the whole unit of work.

ERRORS:
  Driver failures are returned as *ledger.StorageError (KindStorage),
  except a duplicate sale for a product, which is a ledger conflict.

USAGE:
  store, err := sqlite.New("./ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.New(store)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/warp/shirt-ledger/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	*queries
	db *sql.DB
	mu sync.Mutex
}

var _ ledger.TxStore = (*Store)(nil)

// conn is satisfied by both *sql.DB and *sql.Tx.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement; it runs against the pool or a transaction.
type queries struct {
	db conn
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: &queries{db: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ledger.NewStorageError("ping", s.db.PingContext(ctx))
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		size TEXT NOT NULL,
		image BLOB,
		purchase_price TEXT NOT NULL,
		purchase_date TEXT NOT NULL,
		sold INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_products_sold
		ON products(sold);

	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT
	);

	CREATE TABLE IF NOT EXISTS sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id),
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		sale_date TEXT NOT NULL,
		sale_price TEXT NOT NULL
	);

	-- A product is sold at most once
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_product
		ON sales(product_id);
	CREATE INDEX IF NOT EXISTS idx_sales_customer
		ON sales(customer_id);

	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		payment_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payments_customer
		ON payments(customer_id);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_action
		ON audit_log(action);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.NewStorageError("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}

	return ledger.NewStorageError("commit transaction", sqlTx.Commit())
}

// Reset deletes every row and restarts the id sequences. Demo use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"audit_log", "payments", "sales", "customers", "products", "sqlite_sequence"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return ledger.NewStorageError("reset "+table, err)
		}
	}
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productColumns = `id, description, size, image, purchase_price, purchase_date, sold`

func (q *queries) InsertProduct(ctx context.Context, p ledger.Product) (ledger.ProductID, error) {
	var image any
	if len(p.Image) > 0 {
		image = p.Image
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO products (description, size, image, purchase_price, purchase_date, sold)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Description, p.Size, image, p.PurchasePrice.String(), p.PurchaseDate.String(), p.Sold)
	if err != nil {
		return 0, ledger.NewStorageError("insert product", errors.WithStack(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, ledger.NewStorageError("insert product", errors.WithStack(err))
	}
	return ledger.ProductID(id), nil
}

func (q *queries) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	products, err := q.queryProducts(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return &products[0], nil
}

func (q *queries) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	return q.queryProducts(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

func (q *queries) ListAvailableProducts(ctx context.Context) ([]ledger.Product, error) {
	return q.queryProducts(ctx, "SELECT "+productColumns+" FROM products WHERE sold = 0 ORDER BY id")
}

func (q *queries) MarkProductSold(ctx context.Context, id ledger.ProductID) (bool, error) {
	res, err := q.db.ExecContext(ctx, "UPDATE products SET sold = 1 WHERE id = ? AND sold = 0", id)
	if err != nil {
		return false, ledger.NewStorageError("mark product sold", errors.WithStack(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ledger.NewStorageError("mark product sold", errors.WithStack(err))
	}
	return n == 1, nil
}

func (q *queries) SumPurchasePrices(ctx context.Context) (ledger.Money, error) {
	return q.sumColumn(ctx, "sum purchase prices", "SELECT purchase_price FROM products")
}

func (q *queries) DeleteProduct(ctx context.Context, id ledger.ProductID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	return ledger.NewStorageError("delete product", err)
}

func (q *queries) queryProducts(ctx context.Context, query string, args ...any) ([]ledger.Product, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError("query products", errors.WithStack(err))
	}
	defer rows.Close()

	products := []ledger.Product{}
	for rows.Next() {
		var (
			p             ledger.Product
			image         []byte
			purchasePrice string
			purchaseDate  string
		)
		if err := rows.Scan(&p.ID, &p.Description, &p.Size, &image, &purchasePrice, &purchaseDate, &p.Sold); err != nil {
			return nil, ledger.NewStorageError("scan product", errors.WithStack(err))
		}
		if p.PurchasePrice, err = parseMoney(purchasePrice); err != nil {
			return nil, ledger.NewStorageError("scan product", err)
		}
		if p.PurchaseDate, err = parseDate(purchaseDate); err != nil {
			return nil, ledger.NewStorageError("scan product", err)
		}
		if len(image) > 0 {
			p.Image = image
		}
		products = append(products, p)
	}

	return products, ledger.NewStorageError("query products", rows.Err())
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerColumns = `id, name, phone, email, address`

func (q *queries) InsertCustomer(ctx context.Context, c ledger.Customer) (ledger.CustomerID, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO customers (name, phone, email, address)
		VALUES (?, ?, ?, ?)
	`, c.Name, nullString(c.Phone), nullString(c.Email), nullString(c.Address))
	if err != nil {
		return 0, ledger.NewStorageError("insert customer", errors.WithStack(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, ledger.NewStorageError("insert customer", errors.WithStack(err))
	}
	return ledger.CustomerID(id), nil
}

func (q *queries) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	customers, err := q.queryCustomers(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

func (q *queries) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	return q.queryCustomers(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY id")
}

func (q *queries) UpdateCustomer(ctx context.Context, c ledger.Customer) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE customers SET name = ?, phone = ?, email = ?, address = ?
		WHERE id = ?
	`, c.Name, nullString(c.Phone), nullString(c.Email), nullString(c.Address), c.ID)
	return ledger.NewStorageError("update customer", err)
}

func (q *queries) queryCustomers(ctx context.Context, query string, args ...any) ([]ledger.Customer, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError("query customers", errors.WithStack(err))
	}
	defer rows.Close()

	customers := []ledger.Customer{}
	for rows.Next() {
		var (
			c                     ledger.Customer
			phone, email, address sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &phone, &email, &address); err != nil {
			return nil, ledger.NewStorageError("scan customer", errors.WithStack(err))
		}
		c.Phone = phone.String
		c.Email = email.String
		c.Address = address.String
		customers = append(customers, c)
	}

	return customers, ledger.NewStorageError("query customers", rows.Err())
}

// =============================================================================
// SALES
// =============================================================================

const saleColumns = `id, product_id, customer_id, sale_date, sale_price`

func (q *queries) InsertSale(ctx context.Context, s ledger.Sale) (ledger.SaleID, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO sales (product_id, customer_id, sale_date, sale_price)
		VALUES (?, ?, ?, ?)
	`, s.ProductID, s.CustomerID, s.SaleDate.String(), s.SalePrice.String())
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ledger.NewSoldConflict(s.ProductID)
		}
		return 0, ledger.NewStorageError("insert sale", errors.WithStack(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, ledger.NewStorageError("insert sale", errors.WithStack(err))
	}
	return ledger.SaleID(id), nil
}

func (q *queries) ListSales(ctx context.Context) ([]ledger.Sale, error) {
	return q.querySales(ctx, "SELECT "+saleColumns+" FROM sales ORDER BY id")
}

func (q *queries) ListSalesByCustomer(ctx context.Context, id ledger.CustomerID) ([]ledger.Sale, error) {
	return q.querySales(ctx, "SELECT "+saleColumns+" FROM sales WHERE customer_id = ? ORDER BY id", id)
}

func (q *queries) GetSaleByProduct(ctx context.Context, id ledger.ProductID) (*ledger.Sale, error) {
	sales, err := q.querySales(ctx, "SELECT "+saleColumns+" FROM sales WHERE product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, nil
	}
	return &sales[0], nil
}

func (q *queries) SumSalePrices(ctx context.Context, customer *ledger.CustomerID) (ledger.Money, error) {
	if customer == nil {
		return q.sumColumn(ctx, "sum sale prices", "SELECT sale_price FROM sales")
	}
	return q.sumColumn(ctx, "sum sale prices", "SELECT sale_price FROM sales WHERE customer_id = ?", *customer)
}

func (q *queries) querySales(ctx context.Context, query string, args ...any) ([]ledger.Sale, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError("query sales", errors.WithStack(err))
	}
	defer rows.Close()

	sales := []ledger.Sale{}
	for rows.Next() {
		var (
			s               ledger.Sale
			saleDate, price string
		)
		if err := rows.Scan(&s.ID, &s.ProductID, &s.CustomerID, &saleDate, &price); err != nil {
			return nil, ledger.NewStorageError("scan sale", errors.WithStack(err))
		}
		if s.SaleDate, err = parseDate(saleDate); err != nil {
			return nil, ledger.NewStorageError("scan sale", err)
		}
		if s.SalePrice, err = parseMoney(price); err != nil {
			return nil, ledger.NewStorageError("scan sale", err)
		}
		sales = append(sales, s)
	}

	return sales, ledger.NewStorageError("query sales", rows.Err())
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (q *queries) InsertPayment(ctx context.Context, p ledger.Payment) (ledger.PaymentID, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO payments (customer_id, payment_date, amount, note)
		VALUES (?, ?, ?, ?)
	`, p.CustomerID, p.PaymentDate.String(), p.Amount.String(), nullString(p.Note))
	if err != nil {
		return 0, ledger.NewStorageError("insert payment", errors.WithStack(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, ledger.NewStorageError("insert payment", errors.WithStack(err))
	}
	return ledger.PaymentID(id), nil
}

func (q *queries) ListPaymentsByCustomer(ctx context.Context, id ledger.CustomerID) ([]ledger.Payment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, customer_id, payment_date, amount, note
		FROM payments
		WHERE customer_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, ledger.NewStorageError("query payments", errors.WithStack(err))
	}
	defer rows.Close()

	payments := []ledger.Payment{}
	for rows.Next() {
		var (
			p                   ledger.Payment
			paymentDate, amount string
			note                sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.CustomerID, &paymentDate, &amount, &note); err != nil {
			return nil, ledger.NewStorageError("scan payment", errors.WithStack(err))
		}
		if p.PaymentDate, err = parseDate(paymentDate); err != nil {
			return nil, ledger.NewStorageError("scan payment", err)
		}
		if p.Amount, err = parseMoney(amount); err != nil {
			return nil, ledger.NewStorageError("scan payment", err)
		}
		p.Note = note.String
		payments = append(payments, p)
	}

	return payments, ledger.NewStorageError("query payments", rows.Err())
}

func (q *queries) SumPayments(ctx context.Context, customer *ledger.CustomerID) (ledger.Money, error) {
	if customer == nil {
		return q.sumColumn(ctx, "sum payments", "SELECT amount FROM payments")
	}
	return q.sumColumn(ctx, "sum payments", "SELECT amount FROM payments WHERE customer_id = ?", *customer)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (q *queries) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return ledger.NewStorageError("append audit", errors.Wrap(err, "marshal payload"))
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, ts, action, entity, entity_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.Action, entry.Entity, entry.EntityID, string(payloadJSON))
	return ledger.NewStorageError("append audit", err)
}

func (q *queries) QueryAudit(ctx context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Action != nil {
		where = append(where, "action = ?")
		args = append(args, string(*filter.Action))
	}
	if filter.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, filter.Entity)
	}
	if filter.EntityID != 0 {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	query := "SELECT id, ts, action, entity, entity_id, payload_json FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.NewStorageError("query audit", errors.WithStack(err))
	}
	defer rows.Close()

	entries := []ledger.AuditEntry{}
	for rows.Next() {
		var (
			e           ledger.AuditEntry
			ts          string
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.Action, &e.Entity, &e.EntityID, &payloadJSON); err != nil {
			return nil, ledger.NewStorageError("scan audit", errors.WithStack(err))
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, ledger.NewStorageError("scan audit", errors.Wrapf(err, "audit %s timestamp", e.ID))
		}
		e.Timestamp = parsed
		if payloadJSON.Valid && payloadJSON.String != "" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &e.Payload); err != nil {
				return nil, ledger.NewStorageError("scan audit", errors.Wrapf(err, "audit %s payload", e.ID))
			}
		}
		entries = append(entries, e)
	}

	return entries, ledger.NewStorageError("query audit", rows.Err())
}

// =============================================================================
// HELPERS
// =============================================================================

// sumColumn adds up a TEXT money column exactly. No rows sums to zero.
func (q *queries) sumColumn(ctx context.Context, op, query string, args ...any) (ledger.Money, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ledger.Money{}, ledger.NewStorageError(op, errors.WithStack(err))
	}
	defer rows.Close()

	total := ledger.ZeroMoney()
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return ledger.Money{}, ledger.NewStorageError(op, errors.WithStack(err))
		}
		m, err := parseMoney(value)
		if err != nil {
			return ledger.Money{}, ledger.NewStorageError(op, err)
		}
		total = total.Add(m)
	}
	if err := rows.Err(); err != nil {
		return ledger.Money{}, ledger.NewStorageError(op, err)
	}
	return total, nil
}

func parseMoney(s string) (ledger.Money, error) {
	m, err := ledger.NewMoney(s)
	return m, errors.WithStack(err)
}

func parseDate(s string) (ledger.Date, error) {
	d, err := ledger.ParseDate(s)
	return d, errors.WithStack(err)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
