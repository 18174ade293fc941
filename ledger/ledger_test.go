/*
ledger_test.go - Behavior tests for the ledger core

ORGANIZATION:
  1. Product registration and validation
  2. Sale registration: lifecycle, not-found, conflict, atomicity
  3. Payments and customer balance
  4. Financial summary
  5. Audit trail

Every behavior test runs against both the in-memory and the SQLite store.
Tests use GIVEN/WHEN/THEN comments.
*/
package ledger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shirt-ledger/ledger"
	"github.com/warp/shirt-ledger/ledger/store"
	"github.com/warp/shirt-ledger/store/sqlite"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

type storeFactory struct {
	name string
	new  func(t *testing.T) ledger.TxStore
}

var storeFactories = []storeFactory{
	{name: "memory", new: func(t *testing.T) ledger.TxStore { return store.NewMemory() }},
	{name: "sqlite", new: func(t *testing.T) ledger.TxStore {
		s, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

// eachStore runs fn once per store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, l *ledger.Ledger, s ledger.TxStore)) {
	t.Helper()
	for _, f := range storeFactories {
		t.Run(f.name, func(t *testing.T) {
			s := f.new(t)
			fn(t, ledger.New(s), s)
		})
	}
}

var (
	march1 = ledger.NewDate(2024, time.March, 1)
	march5 = ledger.NewDate(2024, time.March, 5)
)

func validProduct(price string) ledger.Product {
	return ledger.Product{
		Description:   "Camisa polo azul",
		Size:          "M",
		PurchasePrice: ledger.MustMoney(price),
		PurchaseDate:  march1,
	}
}

func mustProduct(t *testing.T, l *ledger.Ledger, price string) ledger.Product {
	t.Helper()
	p, err := l.RegisterProduct(context.Background(), validProduct(price))
	require.NoError(t, err)
	return p
}

func mustCustomer(t *testing.T, l *ledger.Ledger, name string) ledger.Customer {
	t.Helper()
	c, err := l.RegisterCustomer(context.Background(), ledger.Customer{Name: name})
	require.NoError(t, err)
	return c
}

func sale(p ledger.ProductID, c ledger.CustomerID, price string) ledger.Sale {
	return ledger.Sale{ProductID: p, CustomerID: c, SaleDate: march5, SalePrice: ledger.MustMoney(price)}
}

func payment(c ledger.CustomerID, amount string) ledger.Payment {
	return ledger.Payment{CustomerID: c, PaymentDate: march5, Amount: ledger.MustMoney(amount)}
}

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, ledger.KindValidation, ledger.KindOf(err))
	var verr *ledger.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, field, verr.Field)
}

// =============================================================================
// 1. PRODUCT REGISTRATION
// =============================================================================

func TestRegisterProduct_StoredUnsold(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		// GIVEN: a candidate that claims to be sold already
		candidate := validProduct("25.00")
		candidate.Sold = true
		candidate.ID = 99

		// WHEN
		p, err := l.RegisterProduct(context.Background(), candidate)

		// THEN: identity is assigned and the product starts unsold
		require.NoError(t, err)
		assert.Equal(t, ledger.ProductID(1), p.ID)
		assert.False(t, p.Sold)

		stored, err := l.GetProduct(context.Background(), p.ID)
		require.NoError(t, err)
		assert.False(t, stored.Sold)
		assert.Equal(t, "25.00", stored.PurchasePrice.String())
	})
}

func TestRegisterProduct_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ledger.Product)
		field  string
	}{
		{"blank description", func(p *ledger.Product) { p.Description = "   " }, "description"},
		{"blank size", func(p *ledger.Product) { p.Size = "" }, "size"},
		{"missing price", func(p *ledger.Product) { p.PurchasePrice = ledger.Money{} }, "purchase_price"},
		{"zero price", func(p *ledger.Product) { p.PurchasePrice = ledger.ZeroMoney() }, "purchase_price"},
		{"rounds to zero", func(p *ledger.Product) { p.PurchasePrice = ledger.MustMoney("0.004") }, "purchase_price"},
		{"huge exponent", func(p *ledger.Product) { p.PurchasePrice = ledger.Money{Value: decimal.New(1, 20000000)} }, "purchase_price"},
		{"tiny exponent", func(p *ledger.Product) { p.PurchasePrice = ledger.Money{Value: decimal.New(1, -20000000)} }, "purchase_price"},
		{"negative price", func(p *ledger.Product) { p.PurchasePrice = ledger.MustMoney("-1") }, "purchase_price"},
		{"missing date", func(p *ledger.Product) { p.PurchaseDate = ledger.Date{} }, "purchase_date"},
		{"first failure wins", func(p *ledger.Product) { p.Description = ""; p.Size = "" }, "description"},
	}

	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				candidate := validProduct("10.00")
				tt.mutate(&candidate)

				_, err := l.RegisterProduct(context.Background(), candidate)
				requireField(t, err, tt.field)
			})
		}

		// THEN: nothing was persisted
		products, err := l.ListProducts(context.Background())
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestRegisterProduct_ImageRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		// GIVEN: a 1 MiB image
		image := make([]byte, 1<<20)
		for i := range image {
			image[i] = byte(255 - i%256)
		}
		candidate := validProduct("30.00")
		candidate.Image = image

		// WHEN: registered and fetched back
		p, err := l.RegisterProduct(context.Background(), candidate)
		require.NoError(t, err)
		got, err := l.GetProduct(context.Background(), p.ID)
		require.NoError(t, err)

		// THEN: byte length and content match exactly
		assert.Len(t, got.Image, len(image))
		assert.True(t, bytes.Equal(image, got.Image))
		assert.True(t, got.HasImage())
	})
}

func TestRegisterProduct_RoundsToCents(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		p := mustProduct(t, l, "19.999")
		assert.Equal(t, "20.00", p.PurchasePrice.String())
	})
}

func TestGetProduct_Errors(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		_, err := l.GetProduct(context.Background(), 0)
		requireField(t, err, "product_id")

		_, err = l.GetProduct(context.Background(), 12)
		assert.Equal(t, ledger.KindNotFound, ledger.KindOf(err))
		var nf *ledger.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "product", nf.Entity)
		assert.Equal(t, int64(12), nf.ID)
	})
}

// =============================================================================
// 2. SALE REGISTRATION
// =============================================================================

func TestRegisterSale_MarksProductSold(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()

		// GIVEN: two products in stock and a customer
		p1 := mustProduct(t, l, "25.00")
		p2 := mustProduct(t, l, "35.00")
		c := mustCustomer(t, l, "Ana")

		// WHEN: P1 is sold
		s, err := l.RegisterSale(ctx, sale(p1.ID, c.ID, "50.00"))

		// THEN: the sale exists, P1 is sold and only P2 is available
		require.NoError(t, err)
		assert.Equal(t, ledger.SaleID(1), s.ID)

		got, err := l.GetProduct(ctx, p1.ID)
		require.NoError(t, err)
		assert.True(t, got.Sold)

		available, err := l.ListAvailableProducts(ctx)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, p2.ID, available[0].ID)

		sales, err := l.SalesByCustomer(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, sales, 1)
		assert.Equal(t, "50.00", sales[0].SalePrice.String())
	})
}

func TestRegisterSale_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ledger.Sale)
		field  string
	}{
		{"zero product", func(s *ledger.Sale) { s.ProductID = 0 }, "product_id"},
		{"negative product", func(s *ledger.Sale) { s.ProductID = -3 }, "product_id"},
		{"zero customer", func(s *ledger.Sale) { s.CustomerID = 0 }, "customer_id"},
		{"missing date", func(s *ledger.Sale) { s.SaleDate = ledger.Date{} }, "sale_date"},
		{"zero price", func(s *ledger.Sale) { s.SalePrice = ledger.ZeroMoney() }, "sale_price"},
		{"missing price", func(s *ledger.Sale) { s.SalePrice = ledger.Money{} }, "sale_price"},
		{"product checked before customer", func(s *ledger.Sale) { s.ProductID = 0; s.CustomerID = 0 }, "product_id"},
	}

	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		p := mustProduct(t, l, "10.00")
		c := mustCustomer(t, l, "Ana")

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				candidate := sale(p.ID, c.ID, "20.00")
				tt.mutate(&candidate)

				_, err := l.RegisterSale(context.Background(), candidate)
				requireField(t, err, tt.field)
			})
		}

		got, err := l.GetProduct(context.Background(), p.ID)
		require.NoError(t, err)
		assert.False(t, got.Sold, "rejected sales leave the product in stock")
	})
}

func TestRegisterSale_UnknownProduct(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		c := mustCustomer(t, l, "Ana")

		// WHEN: selling a product id that was never registered
		_, err := l.RegisterSale(ctx, sale(404, c.ID, "50.00"))

		// THEN: NotFound and no sale row
		assert.Equal(t, ledger.KindNotFound, ledger.KindOf(err))
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		sales, err := l.ListSales(ctx)
		require.NoError(t, err)
		assert.Empty(t, sales)
	})
}

func TestRegisterSale_UnknownCustomer(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		p := mustProduct(t, l, "10.00")

		_, err := l.RegisterSale(ctx, sale(p.ID, 77, "50.00"))

		var nf *ledger.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "customer", nf.Entity)

		got, err := l.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.Sold)
	})
}

func TestRegisterSale_AlreadySoldConflicts(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()

		// GIVEN: P1 sold to Ana
		p := mustProduct(t, l, "25.00")
		ana := mustCustomer(t, l, "Ana")
		bia := mustCustomer(t, l, "Bia")
		_, err := l.RegisterSale(ctx, sale(p.ID, ana.ID, "50.00"))
		require.NoError(t, err)

		// WHEN: P1 is sold again to someone else
		_, err = l.RegisterSale(ctx, sale(p.ID, bia.ID, "60.00"))

		// THEN: conflict; flag and sale count unchanged
		assert.Equal(t, ledger.KindConflict, ledger.KindOf(err))
		assert.ErrorIs(t, err, ledger.ErrProductSold)
		var cerr *ledger.ConflictError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, int64(p.ID), cerr.ID)

		got, err := l.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Sold)

		sales, err := l.ListSales(ctx)
		require.NoError(t, err)
		assert.Len(t, sales, 1)

		balance, err := l.Balance(ctx, bia.ID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})
}

func TestRegisterSale_ConcurrentAttemptsOneWins(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		p := mustProduct(t, l, "25.00")
		c := mustCustomer(t, l, "Ana")

		const attempts = 8
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				_, err := l.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))
				results <- err
			}()
		}

		wins := 0
		for i := 0; i < attempts; i++ {
			err := <-results
			if err == nil {
				wins++
				continue
			}
			assert.Equal(t, ledger.KindConflict, ledger.KindOf(err))
		}
		assert.Equal(t, 1, wins)

		sales, err := l.ListSales(ctx)
		require.NoError(t, err)
		assert.Len(t, sales, 1)
	})
}

// failingStore makes one transactional step fail with a storage error.
type failingStore struct {
	ledger.TxStore
}

func (f failingStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return f.TxStore.WithTx(ctx, func(s ledger.Store) error {
		return fn(failingAudit{Store: s})
	})
}

type failingAudit struct {
	ledger.Store
}

func (failingAudit) AppendAudit(context.Context, ledger.AuditEntry) error {
	return ledger.NewStorageError("append audit", errors.New("disk full"))
}

func TestRegisterSale_StorageFailureLeavesNoPartialSale(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, s ledger.TxStore) {
		ctx := context.Background()
		p := mustProduct(t, l, "25.00")
		c := mustCustomer(t, l, "Ana")

		// GIVEN: a ledger whose audit write fails after sale + mark sold
		broken := ledger.New(failingStore{TxStore: s})

		// WHEN
		_, err := broken.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))

		// THEN: storage error, and neither the sale nor the sold flag survived
		assert.Equal(t, ledger.KindStorage, ledger.KindOf(err))
		var serr *ledger.StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "append audit", serr.Op)

		got, err := l.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.Sold)

		sales, err := l.ListSales(ctx)
		require.NoError(t, err)
		assert.Empty(t, sales)

		// and the product can still be sold normally afterwards
		_, err = l.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))
		assert.NoError(t, err)
	})
}

// =============================================================================
// 3. PAYMENTS & BALANCE
// =============================================================================

func TestBalance_SaleThenPayment(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()

		// GIVEN: customer C, products P1(25.00) and P2(35.00)
		c := mustCustomer(t, l, "Carla")
		p1 := mustProduct(t, l, "25.00")
		mustProduct(t, l, "35.00")

		// WHEN: P1 is sold to C for 50.00
		_, err := l.RegisterSale(ctx, sale(p1.ID, c.ID, "50.00"))
		require.NoError(t, err)

		// THEN: C owes 50.00
		balance, err := l.Balance(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "50.00", balance.String())

		// WHEN: C pays 20.00
		_, err = l.RegisterPayment(ctx, payment(c.ID, "20.00"))
		require.NoError(t, err)

		// THEN: C owes 30.00
		balance, err = l.Balance(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "30.00", balance.String())
	})
}

func TestBalance_ZeroAndNegative(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		c := mustCustomer(t, l, "Ana")

		// No sales, no payments
		balance, err := l.Balance(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())

		// Paid in advance
		_, err = l.RegisterPayment(ctx, payment(c.ID, "15.00"))
		require.NoError(t, err)
		balance, err = l.Balance(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "-15.00", balance.String())
		assert.True(t, balance.IsNegative())

		// Unknown customers have nothing owed
		balance, err = l.Balance(ctx, 500)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())

		_, err = l.Balance(ctx, 0)
		requireField(t, err, "customer_id")
	})
}

func TestBalance_MatchesSumsAfterMixedActivity(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		ana := mustCustomer(t, l, "Ana")
		bia := mustCustomer(t, l, "Bia")

		prices := []string{"10.10", "20.20", "30.30"}
		for i, price := range prices {
			p := mustProduct(t, l, "5.00")
			buyer := ana
			if i == 2 {
				buyer = bia
			}
			_, err := l.RegisterSale(ctx, sale(p.ID, buyer.ID, price))
			require.NoError(t, err)
		}
		for _, amount := range []string{"0.10", "0.20"} {
			_, err := l.RegisterPayment(ctx, payment(ana.ID, amount))
			require.NoError(t, err)
		}

		balance, err := l.Balance(ctx, ana.ID)
		require.NoError(t, err)
		assert.Equal(t, "30.00", balance.String())

		balance, err = l.Balance(ctx, bia.ID)
		require.NoError(t, err)
		assert.Equal(t, "30.30", balance.String())
	})
}

func TestRegisterPayment_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ledger.Payment)
		field  string
	}{
		{"zero customer", func(p *ledger.Payment) { p.CustomerID = 0 }, "customer_id"},
		{"missing date", func(p *ledger.Payment) { p.PaymentDate = ledger.Date{} }, "payment_date"},
		{"zero amount", func(p *ledger.Payment) { p.Amount = ledger.MustMoney("0.00") }, "amount"},
		{"negative amount", func(p *ledger.Payment) { p.Amount = ledger.MustMoney("-5") }, "amount"},
		{"missing amount", func(p *ledger.Payment) { p.Amount = ledger.Money{} }, "amount"},
	}

	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		c := mustCustomer(t, l, "Ana")
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				candidate := payment(c.ID, "10.00")
				tt.mutate(&candidate)

				_, err := l.RegisterPayment(context.Background(), candidate)
				requireField(t, err, tt.field)
			})
		}

		payments, err := l.PaymentsByCustomer(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})
}

func TestRegisterPayment_UnknownCustomer(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		_, err := l.RegisterPayment(context.Background(), payment(31, "10.00"))
		assert.Equal(t, ledger.KindNotFound, ledger.KindOf(err))
	})
}

func TestCustomer_RegisterAndUpdate(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()

		_, err := l.RegisterCustomer(ctx, ledger.Customer{Name: "  "})
		requireField(t, err, "name")

		c, err := l.RegisterCustomer(ctx, ledger.Customer{Name: " Ana ", Phone: "555-0101"})
		require.NoError(t, err)
		assert.Equal(t, "Ana", c.Name)

		// WHEN: updating with a blank name
		c.Name = ""
		_, err = l.UpdateCustomer(ctx, c)
		requireField(t, err, "name")

		// WHEN: updating a customer that does not exist
		_, err = l.UpdateCustomer(ctx, ledger.Customer{ID: 90, Name: "Ghost"})
		assert.Equal(t, ledger.KindNotFound, ledger.KindOf(err))

		// WHEN: a valid update
		c.Name = "Ana Souza"
		c.Email = "ana@example.com"
		_, err = l.UpdateCustomer(ctx, c)
		require.NoError(t, err)

		got, err := l.GetCustomer(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", got.Name)
		assert.Equal(t, "ana@example.com", got.Email)
		assert.Equal(t, "555-0101", got.Phone)
	})
}

func TestStatement(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		c := mustCustomer(t, l, "Ana")
		p := mustProduct(t, l, "25.00")
		_, err := l.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))
		require.NoError(t, err)
		_, err = l.RegisterPayment(ctx, payment(c.ID, "20.00"))
		require.NoError(t, err)

		st, err := l.Statement(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana", st.Customer.Name)
		assert.Len(t, st.Sales, 1)
		assert.Len(t, st.Payments, 1)
		assert.Equal(t, "50.00", st.TotalSold.String())
		assert.Equal(t, "20.00", st.TotalPaid.String())
		assert.Equal(t, "30.00", st.Balance.String())

		_, err = l.Statement(ctx, 404)
		assert.Equal(t, ledger.KindNotFound, ledger.KindOf(err))
	})
}

// =============================================================================
// 4. FINANCIAL SUMMARY
// =============================================================================

func TestSummary_EmptyIsZero(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		sum, err := l.Summary(context.Background())
		require.NoError(t, err)
		assert.True(t, sum.TotalSpent.IsZero())
		assert.True(t, sum.TotalReceived.IsZero())
		assert.True(t, sum.Profit.IsZero())
		assert.Empty(t, sum.Stock)
	})
}

func TestSummary_SpentCountsSoldAndUnsold(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()

		// GIVEN: P1(25.00) sold for 50.00, P2(35.00) still in stock
		c := mustCustomer(t, l, "Ana")
		p1 := mustProduct(t, l, "25.00")
		p2 := mustProduct(t, l, "35.00")
		_, err := l.RegisterSale(ctx, sale(p1.ID, c.ID, "50.00"))
		require.NoError(t, err)

		// THEN: spent = 60.00, received = 50.00, profit = -10.00
		spent, err := l.TotalSpent(ctx)
		require.NoError(t, err)
		assert.Equal(t, "60.00", spent.String())

		received, err := l.TotalReceived(ctx)
		require.NoError(t, err)
		assert.Equal(t, "50.00", received.String())

		profit, err := l.Profit(ctx)
		require.NoError(t, err)
		assert.Equal(t, "-10.00", profit.String())

		stock, err := l.StockProducts(ctx)
		require.NoError(t, err)
		require.Len(t, stock, 1)
		assert.Equal(t, p2.ID, stock[0].ID)

		sum, err := l.Summary(ctx)
		require.NoError(t, err)
		assert.True(t, sum.Profit.Equal(profit))
		assert.Equal(t, "35.00", sum.StockValue.String())
		assert.Equal(t, 2, sum.ProductCount)
		assert.Equal(t, 1, sum.SoldCount)
	})
}

// =============================================================================
// 5. AUDIT TRAIL
// =============================================================================

func TestAuditTrail_OnlySuccessfulMutations(t *testing.T) {
	eachStore(t, func(t *testing.T, _ *ledger.Ledger, s ledger.TxStore) {
		ctx := context.Background()
		fixed := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
		l := ledger.New(s, ledger.WithClock(func() time.Time { return fixed }))

		c := mustCustomer(t, l, "Ana")
		p := mustProduct(t, l, "25.00")
		_, err := l.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))
		require.NoError(t, err)

		// rejected operations leave no trace
		_, err = l.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))
		require.Error(t, err)
		_, err = l.RegisterPayment(ctx, payment(c.ID, "0"))
		require.Error(t, err)

		entries, err := l.AuditTrail(ctx, ledger.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, ledger.AuditCustomerRegistered, entries[0].Action)
		assert.Equal(t, ledger.AuditProductRegistered, entries[1].Action)
		assert.Equal(t, ledger.AuditSaleRegistered, entries[2].Action)
		assert.Equal(t, "25.00", entries[2].Payload["purchase_price"])
		assert.True(t, entries[2].Timestamp.Equal(fixed))
		assert.NotEmpty(t, entries[2].ID)

		action := ledger.AuditSaleRegistered
		sales, err := l.AuditTrail(ctx, ledger.AuditFilter{Action: &action})
		require.NoError(t, err)
		assert.Len(t, sales, 1)
	})
}

func TestProductSale(t *testing.T) {
	eachStore(t, func(t *testing.T, l *ledger.Ledger, _ ledger.TxStore) {
		ctx := context.Background()
		c := mustCustomer(t, l, "Ana")
		p := mustProduct(t, l, "25.00")

		_, err := l.ProductSale(ctx, p.ID)
		var nf *ledger.NotFoundError
		require.ErrorAs(t, err, &nf, "unsold product has no sale")
		assert.Equal(t, "sale", nf.Entity)

		registered, err := l.RegisterSale(ctx, sale(p.ID, c.ID, "50.00"))
		require.NoError(t, err)

		got, err := l.ProductSale(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, registered, got)
	})
}
