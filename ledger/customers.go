/*
customers.go - Customer registration and balance

BALANCE:
  balance(c) = sum(sale prices of c's sales) - sum(amounts of c's payments)

  Both sums are zero when there are no rows. The result may be:
    > 0  customer owes money
    = 0  settled
    < 0  customer paid in advance
  None of these triggers anything; the balance is a pure read.
*/
package ledger

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// CUSTOMER REGISTRATION
// =============================================================================

// RegisterCustomer persists a new customer. Only the name is required.
func (l *Ledger) RegisterCustomer(ctx context.Context, candidate Customer) (Customer, error) {
	if err := validateCustomer(candidate); err != nil {
		l.reject("register_customer", err)
		return Customer{}, err
	}

	c := normalizeCustomer(candidate)
	c.ID = 0

	err := l.store.WithTx(ctx, func(s Store) error {
		id, err := s.InsertCustomer(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return l.audit(ctx, s, AuditCustomerRegistered, "customer", int64(id), map[string]string{
			"name": c.Name,
		})
	})
	if err != nil {
		l.reject("register_customer", err)
		return Customer{}, err
	}

	l.log.Info("customer registered", zap.Int64("customer_id", int64(c.ID)))
	return c, nil
}

// UpdateCustomer replaces a customer's details. The id must be positive,
// the name non-blank and the customer must already exist.
func (l *Ledger) UpdateCustomer(ctx context.Context, candidate Customer) (Customer, error) {
	if err := validateCustomerID(candidate.ID); err != nil {
		l.reject("update_customer", err)
		return Customer{}, err
	}
	if err := validateCustomer(candidate); err != nil {
		l.reject("update_customer", err, zap.Int64("customer_id", int64(candidate.ID)))
		return Customer{}, err
	}

	c := normalizeCustomer(candidate)

	err := l.store.WithTx(ctx, func(s Store) error {
		existing, err := s.GetCustomer(ctx, c.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return notFound("customer", int64(c.ID))
		}
		if err := s.UpdateCustomer(ctx, c); err != nil {
			return err
		}
		return l.audit(ctx, s, AuditCustomerUpdated, "customer", int64(c.ID), map[string]string{
			"name":          c.Name,
			"previous_name": existing.Name,
		})
	})
	if err != nil {
		l.reject("update_customer", err, zap.Int64("customer_id", int64(candidate.ID)))
		return Customer{}, err
	}

	l.log.Info("customer updated", zap.Int64("customer_id", int64(c.ID)))
	return c, nil
}

func normalizeCustomer(c Customer) Customer {
	return Customer{
		ID:      c.ID,
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Email:   strings.TrimSpace(c.Email),
		Address: strings.TrimSpace(c.Address),
	}
}

// =============================================================================
// CUSTOMER QUERIES
// =============================================================================

func (l *Ledger) GetCustomer(ctx context.Context, id CustomerID) (Customer, error) {
	if err := validateCustomerID(id); err != nil {
		return Customer{}, err
	}
	c, err := l.store.GetCustomer(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	if c == nil {
		return Customer{}, notFound("customer", int64(id))
	}
	return *c, nil
}

func (l *Ledger) ListCustomers(ctx context.Context) ([]Customer, error) {
	return l.store.ListCustomers(ctx)
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance returns what the customer owes: total sold minus total paid.
// It does not check that the customer exists; an unknown id has no sales
// and no payments and therefore a zero balance.
func (l *Ledger) Balance(ctx context.Context, id CustomerID) (Money, error) {
	if err := validateCustomerID(id); err != nil {
		return Money{}, err
	}
	sold, err := l.store.SumSalePrices(ctx, &id)
	if err != nil {
		return Money{}, err
	}
	paid, err := l.store.SumPayments(ctx, &id)
	if err != nil {
		return Money{}, err
	}
	return sold.Sub(paid), nil
}

// Statement is a customer's full account: history plus totals.
type Statement struct {
	Customer  Customer
	Sales     []Sale
	Payments  []Payment
	TotalSold Money
	TotalPaid Money
	Balance   Money
}

// Statement assembles the customer's account. Unlike Balance, the
// customer must exist.
func (l *Ledger) Statement(ctx context.Context, id CustomerID) (Statement, error) {
	customer, err := l.GetCustomer(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	sales, err := l.store.ListSalesByCustomer(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	payments, err := l.store.ListPaymentsByCustomer(ctx, id)
	if err != nil {
		return Statement{}, err
	}

	totalSold := ZeroMoney()
	for _, s := range sales {
		totalSold = totalSold.Add(s.SalePrice)
	}
	totalPaid := ZeroMoney()
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	return Statement{
		Customer:  customer,
		Sales:     sales,
		Payments:  payments,
		TotalSold: totalSold,
		TotalPaid: totalPaid,
		Balance:   totalSold.Sub(totalPaid),
	}, nil
}
