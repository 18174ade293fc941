package ledger

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// PRODUCT REGISTRATION
// =============================================================================

// RegisterProduct validates and persists a newly purchased product.
//
// Rules, first failure wins: description non-blank, size non-blank,
// purchase price > 0, purchase date present. The stored product always
// starts unsold; any ID or Sold value on the candidate is ignored. The
// image, if any, is stored byte-for-byte.
func (l *Ledger) RegisterProduct(ctx context.Context, candidate Product) (Product, error) {
	if err := validateProduct(candidate); err != nil {
		l.reject("register_product", err)
		return Product{}, err
	}

	p := Product{
		Description:   strings.TrimSpace(candidate.Description),
		Size:          strings.TrimSpace(candidate.Size),
		Image:         candidate.Image,
		PurchasePrice: candidate.PurchasePrice.Round(),
		PurchaseDate:  candidate.PurchaseDate,
		Sold:          false,
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		id, err := s.InsertProduct(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		return l.audit(ctx, s, AuditProductRegistered, "product", int64(id), map[string]string{
			"description":    p.Description,
			"size":           p.Size,
			"purchase_price": p.PurchasePrice.String(),
			"purchase_date":  p.PurchaseDate.String(),
		})
	})
	if err != nil {
		l.reject("register_product", err)
		return Product{}, err
	}

	l.log.Info("product registered",
		zap.Int64("product_id", int64(p.ID)),
		zap.String("size", p.Size),
		zap.String("purchase_price", p.PurchasePrice.String()),
		zap.Int("image_bytes", len(p.Image)))
	return p, nil
}

// =============================================================================
// PRODUCT QUERIES
// =============================================================================

// GetProduct returns one product. The id must be positive.
func (l *Ledger) GetProduct(ctx context.Context, id ProductID) (Product, error) {
	if err := validateProductID(id); err != nil {
		return Product{}, err
	}
	p, err := l.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if p == nil {
		return Product{}, notFound("product", int64(id))
	}
	return *p, nil
}

// ListProducts returns every registered product, sold or not.
func (l *Ledger) ListProducts(ctx context.Context) ([]Product, error) {
	return l.store.ListProducts(ctx)
}

// ListAvailableProducts returns the products that can still be sold.
func (l *Ledger) ListAvailableProducts(ctx context.Context) ([]Product, error) {
	return l.store.ListAvailableProducts(ctx)
}
