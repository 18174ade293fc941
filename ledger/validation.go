package ledger

import "strings"

// Validation rules for candidate entities. Each function checks fields in a
// fixed order and returns the first violation as a *ValidationError.
// Amounts are checked after rounding to cents.

func validateProduct(p Product) error {
	if isBlank(p.Description) {
		return invalid("description", "product description is required")
	}
	if isBlank(p.Size) {
		return invalid("size", "product size is required")
	}
	if err := validateAmount("purchase_price", "purchase price", p.PurchasePrice); err != nil {
		return err
	}
	if p.PurchaseDate.IsZero() {
		return invalid("purchase_date", "purchase date is required")
	}
	return nil
}

func validateCustomer(c Customer) error {
	if isBlank(c.Name) {
		return invalid("name", "customer name is required")
	}
	return nil
}

func validateSale(s Sale) error {
	if !s.ProductID.Valid() {
		return invalid("product_id", "select a valid product")
	}
	if !s.CustomerID.Valid() {
		return invalid("customer_id", "select a valid customer")
	}
	if s.SaleDate.IsZero() {
		return invalid("sale_date", "sale date is required")
	}
	if err := validateAmount("sale_price", "sale price", s.SalePrice); err != nil {
		return err
	}
	return nil
}

func validatePayment(p Payment) error {
	if !p.CustomerID.Valid() {
		return invalid("customer_id", "select a valid customer")
	}
	if p.PaymentDate.IsZero() {
		return invalid("payment_date", "payment date is required")
	}
	if err := validateAmount("amount", "payment amount", p.Amount); err != nil {
		return err
	}
	return nil
}

// validateAmount checks range before rounding; Round on an unbounded
// exponent allocates without limit.
func validateAmount(field, label string, m Money) error {
	if !m.InRange() {
		return invalid(field, label+" is out of range")
	}
	if !m.Round().IsPositive() {
		return invalid(field, label+" must be greater than zero")
	}
	return nil
}

func validateProductID(id ProductID) error {
	if !id.Valid() {
		return invalid("product_id", "invalid product id")
	}
	return nil
}

func validateCustomerID(id CustomerID) error {
	if !id.Valid() {
		return invalid("customer_id", "invalid customer id")
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
