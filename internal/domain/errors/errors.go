// Package errors defines the domain error taxonomy.
//
// Each business failure is a sentinel or a typed error so callers can branch
// with errors.Is / errors.As instead of matching strings. The HTTP layer maps
// these kinds onto stable external codes.
package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors.
var (
	// ErrConcurrentInProgress - another worker holds the lease for this
	// idempotency key, or a non-terminal log row already exists for it.
	// Retryable with backoff.
	ErrConcurrentInProgress = errors.New("transfer already in progress for this idempotency key")

	// ErrWalletNotFound - source or destination wallet row is absent.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound - no log row for the given key or id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDuplicateKey - an insert hit the UNIQUE(idempotency_key) constraint.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

// InvalidRequestError - malformed input rejected before any side effect.
// Non-retryable.
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// NewInvalidRequest creates a pre-validation failure for one field.
func NewInvalidRequest(field, message string) *InvalidRequestError {
	return &InvalidRequestError{Field: field, Message: message}
}

// InactiveWalletError - the wallet exists but its status is not ACTIVE.
type InactiveWalletError struct {
	WalletID uuid.UUID
	Status   string
}

func (e *InactiveWalletError) Error() string {
	return fmt.Sprintf("wallet %s is not active (status %s)", e.WalletID, e.Status)
}

// InsufficientFundsError - the source balance cannot cover the amount.
// Carries the figures the caller needs to top up. Amounts are canonical
// two-decimal strings.
type InsufficientFundsError struct {
	WalletID  uuid.UUID
	Available string
	Required  string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on wallet %s: available %s, required %s",
		e.WalletID, e.Available, e.Required)
}

// VersionConflictError - an optimistic-lock update touched zero rows.
// The caller may retry with the same idempotency key.
type VersionConflictError struct {
	WalletID        uuid.UUID
	ExpectedVersion int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("wallet %s was modified concurrently (expected version %d)",
		e.WalletID, e.ExpectedVersion)
}

// InternalError wraps a database or cache I/O failure.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error during %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// NewInternal wraps err with the failing operation name.
func NewInternal(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

// Kind helpers.

// IsInvalidRequest checks for a pre-validation failure.
func IsInvalidRequest(err error) bool {
	var e *InvalidRequestError
	return errors.As(err, &e)
}

// IsNotFound checks for a missing wallet or transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// IsInactiveWallet checks for a non-ACTIVE wallet.
func IsInactiveWallet(err error) bool {
	var e *InactiveWalletError
	return errors.As(err, &e)
}

// IsInsufficientFunds checks for a balance shortfall.
func IsInsufficientFunds(err error) bool {
	var e *InsufficientFundsError
	return errors.As(err, &e)
}

// IsVersionConflict checks for a lost optimistic-lock race.
func IsVersionConflict(err error) bool {
	var e *VersionConflictError
	return errors.As(err, &e)
}

// IsConcurrentInProgress checks for a same-key race.
func IsConcurrentInProgress(err error) bool {
	return errors.Is(err, ErrConcurrentInProgress)
}
