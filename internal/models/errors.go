package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by cart, checkout and the surrounding services.
// Callers classify failures with errors.Is; none of these crash the process.
var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIndexOutOfRange  = errors.New("cart line index out of range")
	ErrNotFound         = errors.New("not found")
)

// InsufficientStockError reports a stock shortfall for a single publication.
// At cart-add time the check is advisory; inside the checkout transaction it
// is authoritative and aborts the whole operation.
type InsufficientStockError struct {
	PublicationID int64
	Title         string
	Requested     int
	Available     int
}

func (e *InsufficientStockError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
			e.Title, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for publication %d: requested %d, available %d",
		e.PublicationID, e.Requested, e.Available)
}

// IsInsufficientStock reports whether err is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}

// PersistenceError wraps any storage-level failure: I/O errors, constraint
// violations, lock wait timeouts. It always implies a full rollback and is
// never retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// WrapPersistence wraps err as a PersistenceError unless it already carries a
// domain classification.
func WrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsInsufficientStock(err) || errors.Is(err, ErrNotFound) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
