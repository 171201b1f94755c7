package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/inventory-engine/ledger"
	memstore "github.com/pulse/inventory-engine/ledger/store"
)

func TestRecorder_DuplicatesAreSkips(t *testing.T) {
	// GIVEN: A feed batch where one entry repeats the same uniqueness tuple
	// WHEN: Recording it
	// THEN: The repeat is counted as a skip, not an error

	store := memstore.NewMemory()
	recorder := ledger.NewRecorder(store)
	ctx := context.Background()

	batch := []ledger.Entry{
		mov(1, 1, date(2025, time.April, 1), ledger.MovementSellIn, 10, "SI:1"),
		mov(1, 1, date(2025, time.April, 2), ledger.MovementSellIn, 20, "SI:2"),
		mov(1, 1, date(2025, time.April, 1), ledger.MovementSellIn, 10, "SI:1"),
	}

	tally, err := recorder.Record(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Created)
	assert.Equal(t, 1, tally.Skipped)
}

func TestRecorder_ReplayIsBenign(t *testing.T) {
	// GIVEN: A feed batch already fully captured
	// WHEN: Replaying the identical batch (crash recovery)
	// THEN: Everything skips and the ledger is unchanged

	store := memstore.NewMemory()
	recorder := ledger.NewRecorder(store)
	ctx := context.Background()

	batch := []ledger.Entry{
		mov(1, 1, date(2025, time.April, 1), ledger.MovementSellIn, 10, "SI:1"),
		mov(1, 1, date(2025, time.April, 2), ledger.MovementSellOut, 4, "SO:1"),
	}

	first, err := recorder.Record(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	second, err := recorder.Record(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)

	entries, err := store.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
