package sellout_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/inventory-engine/ledger"
	memstore "github.com/pulse/inventory-engine/ledger/store"
	"github.com/pulse/inventory-engine/sellout"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func date(y int, m time.Month, d int) ledger.Date {
	return ledger.NewDate(y, m, d)
}

type fixture struct {
	ledger  *memstore.Memory
	batches *sellout.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	l := memstore.NewMemory()
	return fixture{
		ledger:  l,
		batches: sellout.NewMemoryStore(l),
	}
}

// seedStock anchors the pair with an ADJUST so balance-as-of returns qty.
func (f fixture) seedStock(t *testing.T, cust, sku int64, d ledger.Date, qty float64) {
	t.Helper()
	require.NoError(t, f.ledger.Append(context.Background(), ledger.Entry{
		CustomerID:     ledger.CustomerID(cust),
		SKUID:          ledger.SKUID(sku),
		DocDate:        d,
		Movement:       ledger.MovementAdjust,
		Qty:            decimal.NewFromFloat(qty),
		IdempotencyKey: "ADJ:seed",
	}))
}

func (f fixture) newUpload(t *testing.T, cust int64, lines []sellout.Line) ledger.UploadID {
	t.Helper()
	id, err := f.batches.CreateUpload(context.Background(), sellout.Upload{
		CustomerID:  ledger.CustomerID(cust),
		PeriodStart: date(2025, time.January, 1),
		PeriodEnd:   date(2025, time.January, 31),
		CreatedBy:   "uploader",
	}, lines)
	require.NoError(t, err)
	return id
}

func (f fixture) previewer() *sellout.Previewer {
	return sellout.NewPreviewer(ledger.NewBalanceEngine(f.ledger, f.ledger), f.batches)
}

func line(sku int64, d ledger.Date, qty float64) sellout.Line {
	return sellout.Line{
		SKUID:   ledger.SKUID(sku),
		DocDate: d,
		Qty:     decimal.NewFromFloat(qty),
	}
}

// =============================================================================
// ADMISSION CHECK
// =============================================================================

func TestPreview_SameDayLinesDepleteSequentially(t *testing.T) {
	// GIVEN: 10 units on hand and two same-day lines of 8 and 5
	// WHEN: Previewing the batch
	// THEN: The first line passes, the second would go to -3

	f := newFixture(t)
	f.seedStock(t, 1, 1, date(2025, time.January, 1), 10)
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
		line(1, date(2025, time.January, 10), 5),
	})

	hasNeg, rows, err := f.previewer().Preview(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, hasNeg)

	assert.False(t, rows[0].IsNegative)
	assert.True(t, decimal.NewFromInt(2).Equal(rows[0].ResultingBalance), "10 - 8 = 2, got %s", rows[0].ResultingBalance)

	assert.True(t, rows[1].IsNegative)
	assert.True(t, decimal.NewFromInt(-3).Equal(rows[1].ResultingBalance), "10 - 13 = -3, got %s", rows[1].ResultingBalance)
	assert.True(t, decimal.NewFromInt(13).Equal(rows[1].CumulativeFromUpload))
}

func TestPreview_CumulativeAccruesAcrossDates(t *testing.T) {
	// GIVEN: 10 units on hand and lines on two different dates
	// WHEN: Previewing
	// THEN: The second date's available is recomputed from the ledger, but
	//       the batch's own earlier lines still count against it

	f := newFixture(t)
	f.seedStock(t, 1, 1, date(2025, time.January, 1), 10)
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
		line(1, date(2025, time.January, 20), 5),
	})

	hasNeg, rows, err := f.previewer().Preview(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, hasNeg)

	// Ledger still says 10 on Jan 20 (nothing posted), but 8 of those are
	// spoken for by the first line of this batch.
	assert.True(t, decimal.NewFromInt(10).Equal(rows[1].AvailableBefore))
	assert.True(t, decimal.NewFromInt(-3).Equal(rows[1].ResultingBalance), "got %s", rows[1].ResultingBalance)
	assert.True(t, rows[1].IsNegative)
}

func TestPreview_ExactDepletionIsNotNegative(t *testing.T) {
	// GIVEN: A line that consumes exactly the available stock
	// WHEN: Previewing
	// THEN: Resulting zero is not flagged

	f := newFixture(t)
	f.seedStock(t, 1, 1, date(2025, time.January, 1), 10)
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 10),
	})

	hasNeg, rows, err := f.previewer().Preview(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, hasNeg)
	assert.False(t, rows[0].IsNegative)
	assert.True(t, rows[0].ResultingBalance.IsZero())
}

func TestPreview_SKUsCheckedIndependently(t *testing.T) {
	// GIVEN: Two SKUs, one amply stocked and one short
	// WHEN: Previewing
	// THEN: Only the short SKU's line is flagged

	f := newFixture(t)
	f.seedStock(t, 1, 1, date(2025, time.January, 1), 100)
	f.seedStock(t, 1, 2, date(2025, time.January, 1), 1)
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 50),
		line(2, date(2025, time.January, 10), 5),
	})

	hasNeg, rows, err := f.previewer().Preview(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, hasNeg)

	bySKU := map[ledger.SKUID]sellout.PreviewRow{}
	for _, r := range rows {
		bySKU[r.SKUID] = r
	}
	assert.False(t, bySKU[1].IsNegative)
	assert.True(t, bySKU[2].IsNegative)
}

// =============================================================================
// PERSISTENCE + CACHE
// =============================================================================

func TestPreview_CachedServesPersistedRows(t *testing.T) {
	// GIVEN: A persisted preview
	// WHEN: The stock situation changes and Cached is called without force
	// THEN: The stale persisted rows are returned; force recomputes

	f := newFixture(t)
	ctx := context.Background()
	f.seedStock(t, 1, 1, date(2025, time.January, 1), 5)
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
	})

	p := f.previewer()
	hasNeg, _, err := p.Cached(ctx, id, false)
	require.NoError(t, err)
	assert.True(t, hasNeg)

	u, err := f.batches.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.HasPotentialNegatives)
	assert.NotNil(t, u.NegPreviewComputedAt)

	// More stock arrives; the cached preview does not notice.
	require.NoError(t, f.ledger.Append(ctx, ledger.Entry{
		CustomerID: 1, SKUID: 1,
		DocDate:        date(2025, time.January, 5),
		Movement:       ledger.MovementSellIn,
		Qty:            decimal.NewFromInt(10),
		IdempotencyKey: "SI:restock",
	}))

	cachedNeg, _, err := p.Cached(ctx, id, false)
	require.NoError(t, err)
	assert.True(t, cachedNeg, "cached preview is served as-is")

	freshNeg, fresh, err := p.Cached(ctx, id, true)
	require.NoError(t, err)
	assert.False(t, freshNeg)
	require.Len(t, fresh, 1)
	assert.True(t, decimal.NewFromInt(7).Equal(fresh[0].ResultingBalance), "5 + 10 - 8 = 7, got %s", fresh[0].ResultingBalance)
}
