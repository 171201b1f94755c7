/*
Package ledger provides the core inventory ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for an append-only
  inventory ledger kept per (customer, SKU) pair. Every derived number in the
  system -- balances, FIFO aging, admission checks, customer activity -- is
  computed by replaying these movements; nothing is ever updated in place.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: An immutable ledger movement (sell-in, sell-out, adjustment)
  - MovementType: The three movement kinds and their sign convention
  - Pair: A (customer, SKU) ledger key
  - Scope: Explicit brand-visibility predicate passed into reporting queries

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified; corrections are new entries
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Idempotency: Every entry carries a key; replays are benign no-ops
  4. Sign convention: SELLOUT always contributes a negative quantity,
     regardless of how a producer stored it

SEE ALSO:
  - store.go: Persistence interfaces
  - balance.go: Anchored balance calculation
  - anchor.go: ADJUST anchor resolution
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID int64
type CustomerID int64
type SKUID int64
type UploadID int64

// Pair is a (customer, SKU) ledger key. All balances and lots are per pair.
type Pair struct {
	CustomerID CustomerID
	SKUID      SKUID
}

// =============================================================================
// MOVEMENT TYPES - The three movement kinds and their sign convention
// =============================================================================

type MovementType string

const (
	MovementSellIn  MovementType = "SELLIN"  // Goods shipped to the customer (positive)
	MovementSellOut MovementType = "SELLOUT" // Goods sold through by the customer (negative)
	MovementAdjust  MovementType = "ADJUST"  // Counted stock restatement (anchor)
)

// =============================================================================
// ENTRY - Immutable ledger movement
// =============================================================================

type Entry struct {
	ID         EntryID
	CustomerID CustomerID
	SKUID      SKUID
	DocDate    Date
	Movement   MovementType
	SubType    string // free-form qualifier, e.g. "RETURN", "SUPERSEDE"
	Qty        decimal.Decimal

	// UnitPrice is only populated when the store declares the unit-price
	// capability. See Capabilities in store.go.
	UnitPrice *decimal.Decimal

	// Provenance
	UploadID UploadID
	RefTable string
	RefID    string

	IdempotencyKey string
	CreatedAt      time.Time
}

// Signed returns the quantity under the global sign convention:
// SELLOUT contributes -abs(Qty); everything else contributes Qty as stored.
// Producers that already store SELLOUT negative are unaffected.
func (e Entry) Signed() decimal.Decimal {
	if e.Movement == MovementSellOut {
		return e.Qty.Abs().Neg()
	}
	return e.Qty
}

// =============================================================================
// SCOPE - Explicit brand-visibility predicate
// =============================================================================

// Scope restricts which rows reporting queries may return. It never changes
// the arithmetic, only which results are visible. An empty Brands list means
// unrestricted.
type Scope struct {
	Brands []string
}

func (s Scope) AllowsBrand(brand string) bool {
	if len(s.Brands) == 0 {
		return true
	}
	for _, b := range s.Brands {
		if b == brand {
			return true
		}
	}
	return false
}
