/*
summary.go - Business-wide financial summary

DEFINITIONS:
  total spent    = sum(purchase price) over ALL products ever registered.
                   Selling a product does not reduce it: acquisition cost
                   is counted when the shirt is bought, not when it sells.
  total received = sum(sale price) over all sales.
  profit         = total received - total spent (negative = loss).
  stock          = products with sold = false.

  Every call recomputes from storage. Nothing is cached.
*/
package ledger

import "context"

// TotalSpent sums the purchase price of every product, sold or not.
func (l *Ledger) TotalSpent(ctx context.Context) (Money, error) {
	return l.store.SumPurchasePrices(ctx)
}

// TotalReceived sums the sale price of every sale.
func (l *Ledger) TotalReceived(ctx context.Context) (Money, error) {
	return l.store.SumSalePrices(ctx, nil)
}

// Profit is total received minus total spent.
func (l *Ledger) Profit(ctx context.Context) (Money, error) {
	received, err := l.TotalReceived(ctx)
	if err != nil {
		return Money{}, err
	}
	spent, err := l.TotalSpent(ctx)
	if err != nil {
		return Money{}, err
	}
	return received.Sub(spent), nil
}

// StockProducts returns the products currently in stock.
func (l *Ledger) StockProducts(ctx context.Context) ([]Product, error) {
	return l.store.ListAvailableProducts(ctx)
}

type Summary struct {
	TotalSpent    Money
	TotalReceived Money
	Profit        Money
	Stock         []Product
	StockValue    Money // purchase cost of what is still in stock
	ProductCount  int
	SoldCount     int
}

// Summary computes every figure of the management panel in one call.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	spent, err := l.TotalSpent(ctx)
	if err != nil {
		return Summary{}, err
	}
	received, err := l.TotalReceived(ctx)
	if err != nil {
		return Summary{}, err
	}
	products, err := l.store.ListProducts(ctx)
	if err != nil {
		return Summary{}, err
	}

	stock := make([]Product, 0, len(products))
	stockValue := ZeroMoney()
	sold := 0
	for _, p := range products {
		if p.Sold {
			sold++
			continue
		}
		stock = append(stock, p)
		stockValue = stockValue.Add(p.PurchasePrice)
	}

	return Summary{
		TotalSpent:    spent,
		TotalReceived: received,
		Profit:        received.Sub(spent),
		Stock:         stock,
		StockValue:    stockValue,
		ProductCount:  len(products),
		SoldCount:     sold,
	}, nil
}
