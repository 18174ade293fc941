/*
ledger.go - The Ledger service

PURPOSE:
  Ledger is the single entry point for every business operation:
  registering products, customers, sales and payments, and computing
  balances and the financial summary. It is stateless apart from its
  injected dependencies; every call re-reads storage.

OPERATION SHAPE:
  validate candidate -> (transaction) look up references -> mutate -> audit
  Each operation returns the stored entity or an error whose kind is one of
  Validation / NotFound / Conflict / Storage (see errors.go).

DEPENDENCIES:
  - TxStore: persistence with transactions (required)
  - *zap.Logger: structured logging (optional, nop by default)
  - clock: timestamps for audit entries (optional, time.Now by default)

SEE ALSO:
  - products.go, customers.go, sales.go, payments.go, summary.go
*/
package ledger

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Ledger struct {
	store TxStore
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Ledger)

// WithLogger sets the logger used to report registration outcomes.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(store TxStore, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// =============================================================================
// AUDIT
// =============================================================================

func (l *Ledger) audit(ctx context.Context, s Store, action AuditAction, entity string, id int64, payload map[string]string) error {
	entry := AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Action:    action,
		Entity:    entity,
		EntityID:  id,
		Payload:   payload,
	}
	return s.AppendAudit(ctx, entry)
}

// AuditTrail returns recorded audit entries, oldest first.
func (l *Ledger) AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	return l.store.QueryAudit(ctx, filter)
}

// reject logs a failed operation at a level matching its kind.
func (l *Ledger) reject(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.String("kind", KindOf(err).String()), zap.Error(err))
	switch KindOf(err) {
	case KindStorage, KindUnknown:
		l.log.Error("ledger operation failed", fields...)
	default:
		l.log.Info("ledger operation rejected", fields...)
	}
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
