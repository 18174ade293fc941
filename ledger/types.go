/*
Package ledger provides the bookkeeping core of the shirt resale ledger.

PURPOSE:
  This package owns the business rules: which products, sales, payments
  and customers are acceptable, how a product moves from in-stock to sold,
  how much a customer owes and how the business is doing overall.
  Persistence is delegated to a Store (see store.go); presentation lives
  in the api package.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: exact decimal amount with two-fraction-digit semantics
  - Date: a calendar date (no time of day)
  - Product, Customer, Sale, Payment: the four persisted entities
  - Typed identifiers so a ProductID can't be passed as a CustomerID

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never float64
  2. Immutability: Sales and payments are never edited once written
  3. One-way lifecycle: a product is sold at most once and never reverts

PRODUCT LIFECYCLE:
  [registered] --> UNSOLD --(RegisterSale succeeds)--> SOLD (terminal)

SEE ALSO:
  - errors.go: Error taxonomy
  - store.go: Persistence contract
  - ledger.go: The Ledger service
*/
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact two-decimal amount
// =============================================================================

// MoneyPlaces is the number of fraction digits every stored amount carries.
const MoneyPlaces = 2

// Input bounds. Amounts are shop prices, so twelve integer digits is plenty;
// the caps also keep decimal rescaling cheap.
const (
	maxMoneyText      = 32
	maxIntegerDigits  = 12
	maxFractionDigits = 6
)

// ErrAmountOutOfRange reports an amount too large or too finely divided to be money.
var ErrAmountOutOfRange = errors.New("amount out of range")

type Money struct {
	Value decimal.Decimal
}

// NewMoney parses a decimal string such as "25.00" or "1234.5".
func NewMoney(s string) (Money, error) {
	if len(s) > maxMoneyText {
		return Money{}, fmt.Errorf("amount of %d characters: %w", len(s), ErrAmountOutOfRange)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	m := Money{Value: d}
	if !m.InRange() {
		return Money{}, fmt.Errorf("amount %q: %w", s, ErrAmountOutOfRange)
	}
	return m, nil
}

// MustMoney is NewMoney for literals. Panics on malformed input.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func MoneyFromCents(cents int64) Money {
	return Money{Value: decimal.New(cents, -MoneyPlaces)}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money               { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) Cmp(o Money) int          { return m.Value.Cmp(o.Value) }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }

// InRange reports whether the amount has at most twelve integer digits and
// six fraction digits. Round and String are only cheap on such amounts.
func (m Money) InRange() bool {
	exp := int(m.Value.Exponent())
	if exp < -maxFractionDigits || exp > maxIntegerDigits {
		return false
	}
	coef := m.Value.Coefficient()
	if coef.Sign() == 0 {
		return true
	}
	return len(coef.Abs(coef).String())+exp <= maxIntegerDigits
}

// Round returns the amount rounded half-away-from-zero to MoneyPlaces digits.
func (m Money) Round() Money { return Money{Value: m.Value.Round(MoneyPlaces)} }

// String renders the amount with exactly two fraction digits ("30.00").
// Currency symbols and grouping belong to the presentation layer.
func (m Money) String() string { return m.Value.StringFixed(MoneyPlaces) }

// SumMoney adds amounts. An empty input sums to zero.
func SumMoney(amounts ...Money) Money {
	total := ZeroMoney()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// DATE - Calendar date
// =============================================================================

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// Date is a calendar day. The zero value means "no date".
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day in the timestamp's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{Time: t}, nil
}

func Today() Date { return DateOf(time.Now()) }

func (d Date) IsZero() bool       { return d.Time.IsZero() }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID int64
type CustomerID int64
type SaleID int64
type PaymentID int64

func (id ProductID) Valid() bool  { return id > 0 }
func (id CustomerID) Valid() bool { return id > 0 }

// =============================================================================
// ENTITIES
// =============================================================================

// KnownSizes are the sizes offered when registering a shirt. The core only
// requires a non-blank size; this list is for pickers and demo data.
var KnownSizes = []string{"PP", "P", "M", "G", "2G", "3G"}

// Product is a purchased item held for resale.
type Product struct {
	ID            ProductID
	Description   string
	Size          string
	Image         []byte // nil when no photo was attached
	PurchasePrice Money
	PurchaseDate  Date
	Sold          bool
}

// HasImage reports whether a photo was attached.
func (p Product) HasImage() bool { return len(p.Image) > 0 }

type Customer struct {
	ID      CustomerID
	Name    string
	Phone   string
	Email   string
	Address string
}

// Sale records one product sold to one customer. The sale price is
// independent of the purchase price; the difference is the markup.
type Sale struct {
	ID         SaleID
	ProductID  ProductID
	CustomerID CustomerID
	SaleDate   Date
	SalePrice  Money
}

// Payment is money received from a customer against their sales debt.
type Payment struct {
	ID          PaymentID
	CustomerID  CustomerID
	PaymentDate Date
	Amount      Money
	Note        string
}
