package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/inventory-engine/aging"
	"github.com/pulse/inventory-engine/ledger"
)

func ingest(t *testing.T, in *ledger.Ingestor, cust, sku int64, d ledger.Date, qty float64, kind ledger.SnapshotKind) {
	t.Helper()
	_, err := in.Ingest(context.Background(), ledger.Snapshot{
		CustomerID: ledger.CustomerID(cust),
		SKUID:      ledger.SKUID(sku),
		Date:       d,
		Qty:        decimal.NewFromFloat(qty),
		Kind:       kind,
	})
	require.NoError(t, err)
}

func TestIngest_RecountWritesDifference(t *testing.T) {
	// GIVEN: An initial count of 100, then a periodic recount of 90
	// WHEN: Inspecting the appended restatements
	// THEN: The recount contributes only the -10 difference, so the
	//       ledger position lands on the counted quantity

	store, engine := newBalanceFixture(t)
	ctx := context.Background()
	ingestor := ledger.NewIngestor(store, store)

	ingest(t, ingestor, 1, 1, date(2025, time.January, 1), 100, ledger.SnapshotInitial)
	ingest(t, ingestor, 1, 1, date(2025, time.February, 1), 90, ledger.SnapshotPeriodic)

	entries, err := store.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, decimal.NewFromInt(100).Equal(entries[0].Qty))
	assert.True(t, decimal.NewFromInt(-10).Equal(entries[1].Qty), "recount restates by difference, got %s", entries[1].Qty)
	assert.Equal(t, "SUPERSEDE", entries[1].SubType)

	bal, err := engine.BalanceAsOf(ctx, ledger.BalanceQuery{
		CustomerID: 1, SKUID: 1, AsOf: date(2025, time.February, 28),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90).Equal(bal.Qty))
	assert.Equal(t, ledger.BalanceAnchoredSnapshot, bal.Source)
}

func TestIngest_RecountKeepsAgingAndBalanceInStep(t *testing.T) {
	// GIVEN: An initial count of 100 and a later periodic recount of 90
	// WHEN: Deriving the pair's stock through both engines
	// THEN: FIFO aging and the balance agree on the counted quantity

	store, engine := newBalanceFixture(t)
	ctx := context.Background()
	ingestor := ledger.NewIngestor(store, store)

	ingest(t, ingestor, 1, 1, date(2025, time.January, 1), 100, ledger.SnapshotInitial)
	ingest(t, ingestor, 1, 1, date(2025, time.February, 1), 90, ledger.SnapshotPeriodic)

	asOf := date(2025, time.February, 28)
	bal, err := engine.BalanceAsOf(ctx, ledger.BalanceQuery{CustomerID: 1, SKUID: 1, AsOf: asOf})
	require.NoError(t, err)

	rows, err := aging.NewEngine(store, store).Buckets(ctx, asOf, aging.Filter{}, ledger.Scope{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, decimal.NewFromInt(90).Equal(bal.Qty), "balance is the counted quantity, got %s", bal.Qty)
	assert.True(t, bal.Qty.Equal(rows[0].SOHQty), "aging says %s, balance says %s", rows[0].SOHQty, bal.Qty)
}

func TestIngest_RecountAbsorbsInterimTrade(t *testing.T) {
	// GIVEN: A count of 100, a sell-in of 20, then a recount of 110
	// WHEN: Deriving the pair's stock through both engines
	// THEN: The recount restates by -10 and both views land on 110

	store, engine := newBalanceFixture(t)
	ctx := context.Background()
	ingestor := ledger.NewIngestor(store, store)

	ingest(t, ingestor, 1, 1, date(2025, time.January, 1), 100, ledger.SnapshotInitial)
	require.NoError(t, store.Append(ctx, mov(1, 1, date(2025, time.January, 15), ledger.MovementSellIn, 20, "SI:1")))
	ingest(t, ingestor, 1, 1, date(2025, time.February, 1), 110, ledger.SnapshotPeriodic)

	asOf := date(2025, time.February, 28)
	bal, err := engine.BalanceAsOf(ctx, ledger.BalanceQuery{CustomerID: 1, SKUID: 1, AsOf: asOf})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(110).Equal(bal.Qty), "got %s", bal.Qty)

	rows, err := aging.NewEngine(store, store).Buckets(ctx, asOf, aging.Filter{}, ledger.Scope{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, bal.Qty.Equal(rows[0].SOHQty), "aging says %s, balance says %s", rows[0].SOHQty, bal.Qty)
}

func TestIngest_ReplayedCountWritesNothing(t *testing.T) {
	// GIVEN: A count already ingested once
	// WHEN: The same count is ingested again (a retried upload)
	// THEN: A fresh snapshot row is saved but no second restatement lands

	store, _ := newBalanceFixture(t)
	ctx := context.Background()
	ingestor := ledger.NewIngestor(store, store)

	ingest(t, ingestor, 1, 1, date(2025, time.January, 1), 100, ledger.SnapshotInitial)
	ingest(t, ingestor, 1, 1, date(2025, time.January, 1), 100, ledger.SnapshotInitial)

	entries, err := store.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	require.Len(t, entries, 1, "replaying the same count must not restate again")
	assert.True(t, decimal.NewFromInt(100).Equal(entries[0].Qty))
}
