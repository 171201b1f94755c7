/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (sellout, status) wrap these with additional context.

ERROR CATEGORIES:
  1. Ledger errors - append/idempotency failures
  2. Lifecycle errors - batch posting state machine violations
  3. Store errors - lookup and integrity failures

USAGE:
  Callers branch with errors.Is():

    if errors.Is(err, ledger.ErrDuplicateEntry) {
        // already captured, safe to ignore
    }

SEE ALSO:
  - store.go: Uses these errors
  - ../sellout/posting.go: Wraps lifecycle errors with upload context
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
	// ErrDuplicateEntry is returned when an entry with the same uniqueness
	// tuple (customer, sku, date, movement, idempotency key, upload) already
	// exists. This is expected behavior for capture retries.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyPosted is returned when posting a batch that is already Posted.
	ErrAlreadyPosted = errors.New("batch already posted")

	// ErrConcurrencyConflict is returned when an atomic claim loses to a
	// concurrent writer (e.g. two approvers racing on the same batch).
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrDataIntegrity is returned when stored data violates an invariant
	// the engine depends on (e.g. a batch with no active lines).
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrEmptyBatch is returned when an atomic append receives no entries.
	ErrEmptyBatch = errors.New("empty batch")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateEntryError identifies which uniqueness tuple collided.
type DuplicateEntryError struct {
	CustomerID     CustomerID
	SKUID          SKUID
	DocDate        Date
	Movement       MovementType
	IdempotencyKey string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("duplicate ledger entry: customer=%d sku=%d date=%s movement=%s key=%s",
		e.CustomerID, e.SKUID, e.DocDate, e.Movement, e.IdempotencyKey)
}

func (e *DuplicateEntryError) Unwrap() error {
	return ErrDuplicateEntry
}

// LifecycleError reports a batch state machine violation.
type LifecycleError struct {
	UploadID UploadID
	Status   string // status observed when the operation was refused
	Op       string // e.g. "claim", "reject"
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("cannot %s upload %d in status %q", e.Op, e.UploadID, e.Status)
}

func (e *LifecycleError) Unwrap() error {
	if e.Status == "Posted" {
		return ErrAlreadyPosted
	}
	return ErrConcurrencyConflict
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsDuplicate returns true if the error is a benign idempotency collision.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsConflict returns true if the error is a lost race or lifecycle refusal.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrAlreadyPosted)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
