/*
snapshot.go - Counted-stock snapshots and their ingestion

PURPOSE:
  A snapshot is a physically counted stock-on-hand figure for one
  (customer, SKU) on one date. Snapshots are baselines, not movements:
  the balance engine seeds replay from them instead of summing the full
  history. Only the latest active snapshot per (customer, sku, date, brand)
  counts; re-uploads deactivate their predecessors.

GO-LIVE:
  Ingesting a snapshot also appends an ADJUST ledger entry carrying the
  difference between the new count and the prior active count, so the
  ledger's running position lands exactly on the counted quantity. The
  first such entry is what gives a customer an anchor date -- before it,
  the customer simply has no derivable state. Re-snapshots append the
  difference with the SUPERSEDE subtype so the anchor moves forward with
  each count.

SEE ALSO:
  - balance.go: How snapshots seed the anchored balance
  - store.go: SnapshotStore interface
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

type SnapshotKind string

const (
	SnapshotInitial  SnapshotKind = "Initial"  // first count for a customer/brand
	SnapshotPeriodic SnapshotKind = "Snapshot" // recurring count
)

type Snapshot struct {
	ID         int64
	CustomerID CustomerID
	SKUID      SKUID
	Brand      string
	Date       Date
	Qty        decimal.Decimal
	Kind       SnapshotKind
	Active     bool
	CreatedAt  time.Time
}

// =============================================================================
// INGESTOR - Snapshot intake plus the go-live ADJUST restatement
// =============================================================================

type Ingestor struct {
	Store     Store
	Snapshots SnapshotStore
	Anchors   *AnchorResolver
}

func NewIngestor(store Store, snapshots SnapshotStore) *Ingestor {
	return &Ingestor{Store: store, Snapshots: snapshots, Anchors: NewAnchorResolver(store)}
}

// Ingest saves the snapshot (deactivating prior actives for the same tuple)
// and appends an ADJUST entry for the difference between the counted
// quantity and the pair's ledger position. Replaying the same count is
// benign: the difference is zero, so no second entry is written.
func (in *Ingestor) Ingest(ctx context.Context, s Snapshot) (int64, error) {
	if s.Kind == "" {
		s.Kind = SnapshotPeriodic
	}
	s.Active = true

	diff, firstCount, err := in.countedDiff(ctx, s)
	if err != nil {
		return 0, err
	}

	id, err := in.Snapshots.SaveSnapshot(ctx, s)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	// A zero diff would only move the anchor without changing anything;
	// the first count still writes, it is what establishes the anchor.
	if diff.IsZero() && !firstCount {
		return id, nil
	}

	subType := ""
	keyPrefix := "SOH_INIT"
	if s.Kind == SnapshotPeriodic {
		subType = "SUPERSEDE"
		keyPrefix = "SOH_SNAP"
	}

	err = in.Store.Append(ctx, Entry{
		CustomerID:     s.CustomerID,
		SKUID:          s.SKUID,
		DocDate:        s.Date,
		Movement:       MovementAdjust,
		SubType:        subType,
		Qty:            diff,
		RefTable:       "soh_snapshots",
		RefID:          fmt.Sprintf("%d", id),
		IdempotencyKey: fmt.Sprintf("%s:%d", keyPrefix, id),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil && !IsDuplicate(err) {
		return 0, fmt.Errorf("append restatement: %w", err)
	}
	return id, nil
}

// countedDiff returns the ADJUST quantity that lands the pair's ledger
// position exactly on the counted quantity. The position sums movements
// from the customer's go-live through the day before the count, plus any
// earlier restatement on the count date itself; same-day trade movements
// stay on top of the count, matching how the balance engine seeds from a
// snapshot. The second return reports a customer counted for the first
// time, whose full quantity is the baseline.
func (in *Ingestor) countedDiff(ctx context.Context, s Snapshot) (decimal.Decimal, bool, error) {
	goLive, err := in.Anchors.GoLive(ctx, s.CustomerID, s.Date)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("resolve go-live: %w", err)
	}
	if goLive == nil {
		return s.Qty, true, nil
	}

	entries, err := in.Store.Movements(ctx, s.CustomerID, s.SKUID, goLive, s.Date)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("load movements: %w", err)
	}

	position := decimal.Zero
	for _, entry := range entries {
		if entry.DocDate.Equal(s.Date) && entry.Movement != MovementAdjust {
			continue
		}
		position = position.Add(entry.Signed())
	}
	return s.Qty.Sub(position), false, nil
}
