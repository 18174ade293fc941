// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/shirt-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore with maps guarded by one RWMutex.
// Identities are assigned from per-entity sequences starting at 1.
type Memory struct {
	mu   sync.RWMutex
	data *memoryData
}

type memoryData struct {
	products  map[ledger.ProductID]ledger.Product
	customers map[ledger.CustomerID]ledger.Customer
	sales     map[ledger.SaleID]ledger.Sale
	payments  map[ledger.PaymentID]ledger.Payment
	audit     []ledger.AuditEntry

	nextProduct  int64
	nextCustomer int64
	nextSale     int64
	nextPayment  int64
}

var _ ledger.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: newMemoryData()}
}

func newMemoryData() *memoryData {
	return &memoryData{
		products:  make(map[ledger.ProductID]ledger.Product),
		customers: make(map[ledger.CustomerID]ledger.Customer),
		sales:     make(map[ledger.SaleID]ledger.Sale),
		payments:  make(map[ledger.PaymentID]ledger.Payment),
	}
}

// Close is a no-op; it lets Memory stand in wherever a closable store is expected.
func (m *Memory) Close() error { return nil }

// Ping always succeeds; there is nothing to reach.
func (m *Memory) Ping(_ context.Context) error { return nil }

// Reset drops every row and restarts the id sequences.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = newMemoryData()
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()

	if err := fn(m.data); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		products:     make(map[ledger.ProductID]ledger.Product, len(d.products)),
		customers:    make(map[ledger.CustomerID]ledger.Customer, len(d.customers)),
		sales:        make(map[ledger.SaleID]ledger.Sale, len(d.sales)),
		payments:     make(map[ledger.PaymentID]ledger.Payment, len(d.payments)),
		audit:        append([]ledger.AuditEntry(nil), d.audit...),
		nextProduct:  d.nextProduct,
		nextCustomer: d.nextCustomer,
		nextSale:     d.nextSale,
		nextPayment:  d.nextPayment,
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.sales {
		c.sales[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	return c
}

// =============================================================================
// LOCKED ENTRY POINTS (ledger.Store)
// =============================================================================

func (m *Memory) InsertProduct(ctx context.Context, p ledger.Product) (ledger.ProductID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.InsertProduct(ctx, p)
}

func (m *Memory) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetProduct(ctx, id)
}

func (m *Memory) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListProducts(ctx)
}

func (m *Memory) ListAvailableProducts(ctx context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListAvailableProducts(ctx)
}

func (m *Memory) MarkProductSold(ctx context.Context, id ledger.ProductID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.MarkProductSold(ctx, id)
}

func (m *Memory) SumPurchasePrices(ctx context.Context) (ledger.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.SumPurchasePrices(ctx)
}

func (m *Memory) DeleteProduct(ctx context.Context, id ledger.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.DeleteProduct(ctx, id)
}

func (m *Memory) InsertCustomer(ctx context.Context, c ledger.Customer) (ledger.CustomerID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.InsertCustomer(ctx, c)
}

func (m *Memory) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetCustomer(ctx, id)
}

func (m *Memory) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListCustomers(ctx)
}

func (m *Memory) UpdateCustomer(ctx context.Context, c ledger.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.UpdateCustomer(ctx, c)
}

func (m *Memory) InsertSale(ctx context.Context, s ledger.Sale) (ledger.SaleID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.InsertSale(ctx, s)
}

func (m *Memory) ListSales(ctx context.Context) ([]ledger.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListSales(ctx)
}

func (m *Memory) ListSalesByCustomer(ctx context.Context, id ledger.CustomerID) ([]ledger.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListSalesByCustomer(ctx, id)
}

func (m *Memory) GetSaleByProduct(ctx context.Context, id ledger.ProductID) (*ledger.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.GetSaleByProduct(ctx, id)
}

func (m *Memory) SumSalePrices(ctx context.Context, customer *ledger.CustomerID) (ledger.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.SumSalePrices(ctx, customer)
}

func (m *Memory) InsertPayment(ctx context.Context, p ledger.Payment) (ledger.PaymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.InsertPayment(ctx, p)
}

func (m *Memory) ListPaymentsByCustomer(ctx context.Context, id ledger.CustomerID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.ListPaymentsByCustomer(ctx, id)
}

func (m *Memory) SumPayments(ctx context.Context, customer *ledger.CustomerID) (ledger.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.SumPayments(ctx, customer)
}

func (m *Memory) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.AppendAudit(ctx, entry)
}

func (m *Memory) QueryAudit(ctx context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.QueryAudit(ctx, filter)
}

// =============================================================================
// UNLOCKED DATA (also the transactional view handed to WithTx callbacks)
// =============================================================================

func (d *memoryData) InsertProduct(_ context.Context, p ledger.Product) (ledger.ProductID, error) {
	d.nextProduct++
	p.ID = ledger.ProductID(d.nextProduct)
	p.Image = cloneBytes(p.Image)
	d.products[p.ID] = p
	return p.ID, nil
}

func (d *memoryData) GetProduct(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	p, ok := d.products[id]
	if !ok {
		return nil, nil
	}
	p.Image = cloneBytes(p.Image)
	return &p, nil
}

func (d *memoryData) ListProducts(_ context.Context) ([]ledger.Product, error) {
	return d.filterProducts(func(ledger.Product) bool { return true }), nil
}

func (d *memoryData) ListAvailableProducts(_ context.Context) ([]ledger.Product, error) {
	return d.filterProducts(func(p ledger.Product) bool { return !p.Sold }), nil
}

func (d *memoryData) filterProducts(keep func(ledger.Product) bool) []ledger.Product {
	result := []ledger.Product{}
	for _, p := range d.products {
		if keep(p) {
			p.Image = cloneBytes(p.Image)
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *memoryData) MarkProductSold(_ context.Context, id ledger.ProductID) (bool, error) {
	p, ok := d.products[id]
	if !ok || p.Sold {
		return false, nil
	}
	p.Sold = true
	d.products[id] = p
	return true, nil
}

func (d *memoryData) SumPurchasePrices(_ context.Context) (ledger.Money, error) {
	total := ledger.ZeroMoney()
	for _, p := range d.products {
		total = total.Add(p.PurchasePrice)
	}
	return total, nil
}

func (d *memoryData) DeleteProduct(_ context.Context, id ledger.ProductID) error {
	delete(d.products, id)
	return nil
}

func (d *memoryData) InsertCustomer(_ context.Context, c ledger.Customer) (ledger.CustomerID, error) {
	d.nextCustomer++
	c.ID = ledger.CustomerID(d.nextCustomer)
	d.customers[c.ID] = c
	return c.ID, nil
}

func (d *memoryData) GetCustomer(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	c, ok := d.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (d *memoryData) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	result := make([]ledger.Customer, 0, len(d.customers))
	for _, c := range d.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (d *memoryData) UpdateCustomer(_ context.Context, c ledger.Customer) error {
	if _, ok := d.customers[c.ID]; !ok {
		return nil
	}
	d.customers[c.ID] = c
	return nil
}

func (d *memoryData) InsertSale(_ context.Context, s ledger.Sale) (ledger.SaleID, error) {
	// Mirrors the unique index on sales(product_id).
	for _, existing := range d.sales {
		if existing.ProductID == s.ProductID {
			return 0, ledger.NewSoldConflict(s.ProductID)
		}
	}
	d.nextSale++
	s.ID = ledger.SaleID(d.nextSale)
	d.sales[s.ID] = s
	return s.ID, nil
}

func (d *memoryData) ListSales(_ context.Context) ([]ledger.Sale, error) {
	return d.filterSales(func(ledger.Sale) bool { return true }), nil
}

func (d *memoryData) ListSalesByCustomer(_ context.Context, id ledger.CustomerID) ([]ledger.Sale, error) {
	return d.filterSales(func(s ledger.Sale) bool { return s.CustomerID == id }), nil
}

func (d *memoryData) filterSales(keep func(ledger.Sale) bool) []ledger.Sale {
	result := []ledger.Sale{}
	for _, s := range d.sales {
		if keep(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *memoryData) GetSaleByProduct(_ context.Context, id ledger.ProductID) (*ledger.Sale, error) {
	for _, s := range d.sales {
		if s.ProductID == id {
			sale := s
			return &sale, nil
		}
	}
	return nil, nil
}

func (d *memoryData) SumSalePrices(_ context.Context, customer *ledger.CustomerID) (ledger.Money, error) {
	total := ledger.ZeroMoney()
	for _, s := range d.sales {
		if customer == nil || s.CustomerID == *customer {
			total = total.Add(s.SalePrice)
		}
	}
	return total, nil
}

func (d *memoryData) InsertPayment(_ context.Context, p ledger.Payment) (ledger.PaymentID, error) {
	d.nextPayment++
	p.ID = ledger.PaymentID(d.nextPayment)
	d.payments[p.ID] = p
	return p.ID, nil
}

func (d *memoryData) ListPaymentsByCustomer(_ context.Context, id ledger.CustomerID) ([]ledger.Payment, error) {
	result := []ledger.Payment{}
	for _, p := range d.payments {
		if p.CustomerID == id {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (d *memoryData) SumPayments(_ context.Context, customer *ledger.CustomerID) (ledger.Money, error) {
	total := ledger.ZeroMoney()
	for _, p := range d.payments {
		if customer == nil || p.CustomerID == *customer {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (d *memoryData) AppendAudit(_ context.Context, entry ledger.AuditEntry) error {
	d.audit = append(d.audit, entry)
	return nil
}

func (d *memoryData) QueryAudit(_ context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	result := []ledger.AuditEntry{}
	for _, e := range d.audit {
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		if filter.EntityID != 0 && e.EntityID != filter.EntityID {
			continue
		}
		result = append(result, e)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
