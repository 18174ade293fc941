package ledger

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// RegisterPayment records money received from a customer.
//
// Rules, first failure wins: customer id positive, payment date present,
// amount > 0 (zero is rejected, not only negatives). The customer must
// exist; the lookup and the insert share one transaction.
func (l *Ledger) RegisterPayment(ctx context.Context, candidate Payment) (Payment, error) {
	if err := validatePayment(candidate); err != nil {
		l.reject("register_payment", err, zap.Int64("customer_id", int64(candidate.CustomerID)))
		return Payment{}, err
	}

	payment := Payment{
		CustomerID:  candidate.CustomerID,
		PaymentDate: candidate.PaymentDate,
		Amount:      candidate.Amount.Round(),
		Note:        strings.TrimSpace(candidate.Note),
	}

	err := l.store.WithTx(ctx, func(s Store) error {
		customer, err := s.GetCustomer(ctx, payment.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return notFound("customer", int64(payment.CustomerID))
		}

		id, err := s.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		return l.audit(ctx, s, AuditPaymentRegistered, "payment", int64(id), map[string]string{
			"customer_id":  idString(int64(payment.CustomerID)),
			"payment_date": payment.PaymentDate.String(),
			"amount":       payment.Amount.String(),
		})
	})
	if err != nil {
		l.reject("register_payment", err, zap.Int64("customer_id", int64(candidate.CustomerID)))
		return Payment{}, err
	}

	l.log.Info("payment registered",
		zap.Int64("payment_id", int64(payment.ID)),
		zap.Int64("customer_id", int64(payment.CustomerID)),
		zap.String("amount", payment.Amount.String()))
	return payment, nil
}

// PaymentsByCustomer returns a customer's payment history.
func (l *Ledger) PaymentsByCustomer(ctx context.Context, id CustomerID) ([]Payment, error) {
	if err := validateCustomerID(id); err != nil {
		return nil, err
	}
	return l.store.ListPaymentsByCustomer(ctx, id)
}
