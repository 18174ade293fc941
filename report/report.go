/*
Package report renders ledger data as CSV for spreadsheets.

REPORTS:
  - Stock:   products still in stock with their purchase cost
  - Sales:   every sale joined with product and customer names
  - Summary: one row per management figure (spent, received, profit...)

Amounts are plain decimal strings ("25.00") and dates YYYY-MM-DD, so the
files round-trip through any spreadsheet without locale surprises.
*/
package report

import (
	"context"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/warp/shirt-ledger/ledger"
)

type StockRow struct {
	ProductID     int64  `csv:"product_id"`
	Description   string `csv:"description"`
	Size          string `csv:"size"`
	PurchaseDate  string `csv:"purchase_date"`
	PurchasePrice string `csv:"purchase_price"`
	HasImage      bool   `csv:"has_image"`
}

type SaleRow struct {
	SaleID        int64  `csv:"sale_id"`
	SaleDate      string `csv:"sale_date"`
	ProductID     int64  `csv:"product_id"`
	Description   string `csv:"description"`
	Size          string `csv:"size"`
	CustomerID    int64  `csv:"customer_id"`
	CustomerName  string `csv:"customer_name"`
	PurchasePrice string `csv:"purchase_price"`
	SalePrice     string `csv:"sale_price"`
	Margin        string `csv:"margin"`
}

type SummaryRow struct {
	Metric string `csv:"metric"`
	Value  string `csv:"value"`
}

// Reporter reads through the ledger; it never writes.
type Reporter struct {
	ledger *ledger.Ledger
}

func New(l *ledger.Ledger) *Reporter {
	return &Reporter{ledger: l}
}

// StockRows lists the products still available for sale.
func (r *Reporter) StockRows(ctx context.Context) ([]StockRow, error) {
	products, err := r.ledger.StockProducts(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]StockRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, StockRow{
			ProductID:     int64(p.ID),
			Description:   p.Description,
			Size:          p.Size,
			PurchaseDate:  p.PurchaseDate.String(),
			PurchasePrice: p.PurchasePrice.String(),
			HasImage:      p.HasImage(),
		})
	}
	return rows, nil
}

// SaleRows lists every sale with the product's cost and the margin made.
func (r *Reporter) SaleRows(ctx context.Context) ([]SaleRow, error) {
	sales, err := r.ledger.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	products, err := r.ledger.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := r.ledger.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	productByID := make(map[ledger.ProductID]ledger.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	customerByID := make(map[ledger.CustomerID]ledger.Customer, len(customers))
	for _, c := range customers {
		customerByID[c.ID] = c
	}

	rows := make([]SaleRow, 0, len(sales))
	for _, s := range sales {
		p := productByID[s.ProductID]
		rows = append(rows, SaleRow{
			SaleID:        int64(s.ID),
			SaleDate:      s.SaleDate.String(),
			ProductID:     int64(s.ProductID),
			Description:   p.Description,
			Size:          p.Size,
			CustomerID:    int64(s.CustomerID),
			CustomerName:  customerByID[s.CustomerID].Name,
			PurchasePrice: p.PurchasePrice.String(),
			SalePrice:     s.SalePrice.String(),
			Margin:        s.SalePrice.Sub(p.PurchasePrice).String(),
		})
	}
	return rows, nil
}

// SummaryRows flattens the financial summary into metric/value pairs.
func (r *Reporter) SummaryRows(ctx context.Context) ([]SummaryRow, error) {
	sum, err := r.ledger.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return []SummaryRow{
		{Metric: "total_spent", Value: sum.TotalSpent.String()},
		{Metric: "total_received", Value: sum.TotalReceived.String()},
		{Metric: "profit", Value: sum.Profit.String()},
		{Metric: "stock_value", Value: sum.StockValue.String()},
		{Metric: "stock_count", Value: strconv.Itoa(len(sum.Stock))},
		{Metric: "product_count", Value: strconv.Itoa(sum.ProductCount)},
		{Metric: "sold_count", Value: strconv.Itoa(sum.SoldCount)},
	}, nil
}

// =============================================================================
// CSV WRITERS
// =============================================================================

func (r *Reporter) WriteStock(ctx context.Context, w io.Writer) error {
	rows, err := r.StockRows(ctx)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}

func (r *Reporter) WriteSales(ctx context.Context, w io.Writer) error {
	rows, err := r.SaleRows(ctx)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}

func (r *Reporter) WriteSummary(ctx context.Context, w io.Writer) error {
	rows, err := r.SummaryRows(ctx)
	if err != nil {
		return err
	}
	return gocsv.Marshal(rows, w)
}
