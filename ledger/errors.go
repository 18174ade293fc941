/*
errors.go - Error taxonomy for the ledger

PURPOSE:
  All error types in one place. Every failure a ledger operation returns
  falls into exactly one kind, so callers can branch on the kind instead of
  parsing messages.

ERROR KINDS:
  1. Validation - caller-supplied data violates a precondition.
                  Fixed by correcting the input; never retried.
  2. NotFound   - a referenced product or customer does not exist.
  3. Conflict   - a state precondition failed (product already sold).
  4. Storage    - the persistence layer failed. Surfaced with a generic
                  "try again / check storage" message; never retried here.

USAGE:
  sale, err := l.RegisterSale(ctx, candidate)
  switch ledger.KindOf(err) {
  case ledger.KindNone:
      // persisted
  case ledger.KindValidation:
      var verr *ledger.ValidationError
      errors.As(err, &verr) // verr.Field, verr.Message
  case ledger.KindConflict:
      // product already sold
  }

SEE ALSO:
  - validation.go: Produces ValidationError
  - store/sqlite: Wraps driver failures in StorageError
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the entity's current state forbids the operation.
	ErrConflict = errors.New("conflict")

	// ErrProductSold is the conflict raised when selling a product twice.
	ErrProductSold = fmt.Errorf("%w: product already sold", ErrConflict)

	// ErrStorage marks failures of the underlying persistence.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the rule that was violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Entity string // "product", "customer"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports a state precondition violation.
type ConflictError struct {
	Entity string
	ID     int64
	Reason error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	if e.Reason == nil {
		return ErrConflict
	}
	return e.Reason
}

// StorageError wraps a persistence failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError is used by Store implementations. A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind is the outcome category of a ledger operation.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindStorage
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsStorage(err error) bool    { return errors.Is(err, ErrStorage) }
