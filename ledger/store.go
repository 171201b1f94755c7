/*
store.go - Persistence interfaces for ledger entries and related data

PURPOSE:
  Defines the interface between the domain logic and the database. Store
  handles persistence while maintaining append-only semantics. Different
  implementations can use SQLite or in-memory storage; handles are always
  explicit and injected, never ambient.

KEY INTERFACES:
  Store:         Core entry persistence + replay queries
  SnapshotStore: Counted-stock snapshots used as balance baselines
  MasterStore:   Customer/SKU master data and status tags
  ConfigStore:   Key/value runtime configuration

APPEND-ONLY CONTRACT:
  The Store interface enforces append-only semantics for entries:
  - Append(): single entry write
  - AppendBatch(): atomic multi-entry write
  - NO Update() or Delete() methods exist
  Corrections are made by appending ADJUST restatements.

IDEMPOTENCY:
  Every write carries an idempotency key inside the uniqueness tuple
  (customer, sku, date, movement, key, upload). A colliding write returns
  ErrDuplicateEntry; capture paths treat that as a benign skip, posting
  paths treat it as a hard failure.

IMPLEMENTATIONS:
  - store/sqlite/: Production SQLite
  - ledger/store/: In-memory for testing

SEE ALSO:
  - balance.go, anchor.go: Replay queries used by the engines
  - ../store/sqlite/sqlite.go: Concrete implementation
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CAPABILITIES - Optional dimensions declared once, never probed dynamically
// =============================================================================

// Capabilities declares which optional entry dimensions a store population
// actually carries. Engines consult this once instead of sniffing rows.
type Capabilities struct {
	// UnitPrice is true when sell-in entries carry unit prices, enabling
	// price statistics in aging reports.
	UnitPrice bool
}

// =============================================================================
// STORE - Entry persistence (append-only) + replay queries
// =============================================================================

type Store interface {
	// Append persists one entry. Returns ErrDuplicateEntry (possibly wrapped
	// in *DuplicateEntryError) if the uniqueness tuple already exists.
	Append(ctx context.Context, e Entry) error

	// AppendBatch persists entries atomically. Either all are written or
	// none are; a single duplicate fails the whole batch.
	AppendBatch(ctx context.Context, entries []Entry) error

	// Exists reports whether an entry with the same uniqueness tuple exists.
	Exists(ctx context.Context, e Entry) (bool, error)

	// Movements returns entries for the pair with DocDate in [from, to],
	// ordered by (DocDate, ID). A nil from means "from the beginning".
	Movements(ctx context.Context, customerID CustomerID, skuID SKUID, from *Date, to Date) ([]Entry, error)

	// Pairs returns the distinct (customer, SKU) pairs present in the
	// ledger. customerID 0 means all customers.
	Pairs(ctx context.Context, customerID CustomerID) ([]Pair, error)

	// LatestCustomerAdjust returns the max ADJUST DocDate <= asOf for the
	// customer across all SKUs, or nil if the customer has none.
	LatestCustomerAdjust(ctx context.Context, customerID CustomerID, asOf Date) (*Date, error)

	// LatestPairAdjust is LatestCustomerAdjust restricted to one SKU.
	LatestPairAdjust(ctx context.Context, customerID CustomerID, skuID SKUID, asOf Date) (*Date, error)

	// EarliestCustomerAdjust returns the min ADJUST DocDate <= asOf for the
	// customer (its go-live date), or nil if the customer has none.
	EarliestCustomerAdjust(ctx context.Context, customerID CustomerID, asOf Date) (*Date, error)

	// LastMovementByCustomer returns, per customer, the max DocDate of the
	// given movement type. Customers without such a movement are absent.
	LastMovementByCustomer(ctx context.Context, movement MovementType) (map[CustomerID]Date, error)

	// Capabilities reports which optional dimensions this store carries.
	Capabilities() Capabilities
}

// =============================================================================
// SNAPSHOT STORE - Counted-stock baselines
// =============================================================================

type SnapshotStore interface {
	// SaveSnapshot inserts a new active snapshot, deactivating any prior
	// active rows for the same (customer, sku, date, brand). Returns the
	// snapshot ID.
	SaveSnapshot(ctx context.Context, s Snapshot) (int64, error)

	// LatestActiveSnapshot returns the most recent active snapshot for the
	// pair with Date <= asOf, preferring the newest upload on ties. Brand ""
	// means any brand. Returns nil when none exists.
	LatestActiveSnapshot(ctx context.Context, customerID CustomerID, skuID SKUID, brand string, asOf Date) (*Snapshot, error)

	// SnapshotQtyOn returns the active snapshot quantity dated exactly on
	// 'on' for the pair, and whether one exists.
	SnapshotQtyOn(ctx context.Context, customerID CustomerID, skuID SKUID, on Date) (decimal.Decimal, bool, error)
}

// =============================================================================
// MASTER DATA + CONFIG
// =============================================================================

type MasterStore interface {
	GetCustomer(ctx context.Context, id CustomerID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	UpsertCustomer(ctx context.Context, c Customer) error

	// UpdateCustomerStatus sets the primary status and its effective date.
	UpdateCustomerStatus(ctx context.Context, id CustomerID, status string, on Date) error

	// CustomerTags returns the secondary status tags for a customer.
	CustomerTags(ctx context.Context, id CustomerID) ([]string, error)

	// SyncCustomerTags deletes tags not in want and inserts missing ones.
	// Returns the number of tags added or removed.
	SyncCustomerTags(ctx context.Context, id CustomerID, want []string) (int, error)

	GetSKU(ctx context.Context, id SKUID) (*SKU, error)
	ListSKUs(ctx context.Context) ([]SKU, error)
	UpsertSKU(ctx context.Context, s SKU) error
}

type ConfigStore interface {
	// GetConfig returns the value for key and whether it was set.
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}
