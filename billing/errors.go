/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error values in one place. The generator itself never returns errors
  under normal data variance (missing coverage and malformed dates degrade
  locally); these errors belong to the store and API boundary.

USAGE:
  if errors.Is(err, billing.ErrPaidImmutable) { ... }

SEE ALSO:
  - store.go: Store operations returning these errors
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPaidImmutable is returned when a write would alter a paid
	// transaction. Settled financial history is never silently rewritten.
	ErrPaidImmutable = errors.New("paid transaction is immutable")

	// ErrTransactionNotFound is returned when a referenced transaction
	// does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrContractNotFound is returned when a referenced contract does not
	// exist.
	ErrContractNotFound = errors.New("contract not found")

	// ErrDuplicateTransaction is returned when an insert collides with an
	// existing transaction ID. With deterministic keys this indicates the
	// caller merged a stale diff.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// PaidImmutableError reports which transaction a rejected write targeted.
type PaidImmutableError struct {
	ID TransactionID
}

func (e *PaidImmutableError) Error() string {
	return fmt.Sprintf("paid transaction %s is immutable", e.ID)
}

func (e *PaidImmutableError) Unwrap() error { return ErrPaidImmutable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrContractNotFound)
}

// IsClientError reports whether the error is due to an invalid request
// rather than a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPaidImmutable) || errors.Is(err, ErrDuplicateTransaction)
}
