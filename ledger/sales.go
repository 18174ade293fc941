/*
sales.go - Sale registration: the only product state transition

PURPOSE:
  Selling a product writes two things: the sale record and the product's
  sold flag. They are one logical event and are written as one unit:

    WithTx {
      product := GetProduct        // NotFoundError if absent
      product.Sold?                // ConflictError if already sold
      customer := GetCustomer      // NotFoundError if absent
      InsertSale
      MarkProductSold (CAS)        // ConflictError if someone else won
      AppendAudit
    }

  If any step fails the transaction rolls back, so there is never a sold
  product without its sale nor a sale whose product is still in stock.

RACE SAFETY:
  The Sold check inside the transaction is not enough on its own when two
  writers race. MarkProductSold only flips false->true and reports whether
  it did; the loser gets ErrProductSold and its sale insert is rolled back.
  SQLite also has a unique index on sales(product_id).
*/
package ledger

import (
	"context"

	"go.uber.org/zap"
)

// RegisterSale validates a candidate sale and records it, marking the
// product sold. Returns the stored sale with its assigned ID.
func (l *Ledger) RegisterSale(ctx context.Context, candidate Sale) (Sale, error) {
	fields := []zap.Field{
		zap.Int64("product_id", int64(candidate.ProductID)),
		zap.Int64("customer_id", int64(candidate.CustomerID)),
	}
	if err := validateSale(candidate); err != nil {
		l.reject("register_sale", err, fields...)
		return Sale{}, err
	}

	sale := Sale{
		ProductID:  candidate.ProductID,
		CustomerID: candidate.CustomerID,
		SaleDate:   candidate.SaleDate,
		SalePrice:  candidate.SalePrice.Round(),
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		product, err := s.GetProduct(ctx, sale.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return notFound("product", int64(sale.ProductID))
		}
		if product.Sold {
			return NewSoldConflict(sale.ProductID)
		}

		customer, err := s.GetCustomer(ctx, sale.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return notFound("customer", int64(sale.CustomerID))
		}

		id, err := s.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id

		marked, err := s.MarkProductSold(ctx, sale.ProductID)
		if err != nil {
			return err
		}
		if !marked {
			return NewSoldConflict(sale.ProductID)
		}

		return l.audit(ctx, s, AuditSaleRegistered, "sale", int64(id), map[string]string{
			"product_id":     idString(int64(sale.ProductID)),
			"customer_id":    idString(int64(sale.CustomerID)),
			"sale_date":      sale.SaleDate.String(),
			"sale_price":     sale.SalePrice.String(),
			"purchase_price": product.PurchasePrice.String(),
		})
	})
	if err != nil {
		l.reject("register_sale", err, fields...)
		return Sale{}, err
	}

	l.log.Info("sale registered",
		zap.Int64("sale_id", int64(sale.ID)),
		zap.Int64("product_id", int64(sale.ProductID)),
		zap.Int64("customer_id", int64(sale.CustomerID)),
		zap.String("sale_price", sale.SalePrice.String()))
	return sale, nil
}

// NewSoldConflict is the error for a second sale of the same product.
func NewSoldConflict(id ProductID) error {
	return &ConflictError{Entity: "product", ID: int64(id), Reason: ErrProductSold}
}

// SalesByCustomer returns a customer's purchase history.
func (l *Ledger) SalesByCustomer(ctx context.Context, id CustomerID) ([]Sale, error) {
	if err := validateCustomerID(id); err != nil {
		return nil, err
	}
	return l.store.ListSalesByCustomer(ctx, id)
}

// ProductSale returns the sale of a product. A product still in stock
// has none and yields a NotFoundError for entity "sale".
func (l *Ledger) ProductSale(ctx context.Context, id ProductID) (Sale, error) {
	if err := validateProductID(id); err != nil {
		return Sale{}, err
	}
	s, err := l.store.GetSaleByProduct(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if s == nil {
		return Sale{}, notFound("sale", int64(id))
	}
	return *s, nil
}

// ListSales returns every recorded sale.
func (l *Ledger) ListSales(ctx context.Context) ([]Sale, error) {
	return l.store.ListSales(ctx)
}
