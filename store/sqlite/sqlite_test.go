package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/sellout"
	"github.com/pulse/inventory-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(y int, m time.Month, d int) ledger.Date {
	return ledger.NewDate(y, m, d)
}

func entry(cust, sku int64, d ledger.Date, movement ledger.MovementType, qty float64, key string) ledger.Entry {
	return ledger.Entry{
		CustomerID:     ledger.CustomerID(cust),
		SKUID:          ledger.SKUID(sku),
		DocDate:        d,
		Movement:       movement,
		Qty:            decimal.NewFromFloat(qty),
		IdempotencyKey: key,
	}
}

// =============================================================================
// LEDGER
// =============================================================================

func TestAppend_RoundTripPreservesFields(t *testing.T) {
	// GIVEN: An entry using every optional dimension
	// WHEN: Appending and reading it back
	// THEN: All fields survive the TEXT encoding

	s := newStore(t)
	ctx := context.Background()

	price := decimal.RequireFromString("12.50")
	e := entry(1, 1, date(2025, time.March, 5), ledger.MovementSellIn, 7.25, "SI:rt")
	e.SubType = "SUPERSEDE"
	e.UnitPrice = &price
	e.UploadID = 42
	e.RefTable = "sellout_uploads"
	e.RefID = "42"
	require.NoError(t, s.Append(ctx, e))

	entries, err := s.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.NotZero(t, got.ID)
	assert.Equal(t, "2025-03-05", got.DocDate.String())
	assert.Equal(t, ledger.MovementSellIn, got.Movement)
	assert.Equal(t, "SUPERSEDE", got.SubType)
	assert.True(t, decimal.RequireFromString("7.25").Equal(got.Qty))
	require.NotNil(t, got.UnitPrice)
	assert.True(t, price.Equal(*got.UnitPrice))
	assert.Equal(t, ledger.UploadID(42), got.UploadID)
	assert.Equal(t, "sellout_uploads", got.RefTable)
	assert.Equal(t, "42", got.RefID)
	assert.Equal(t, "SI:rt", got.IdempotencyKey)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestAppend_DuplicateTupleRejected(t *testing.T) {
	// GIVEN: An entry already in the ledger
	// WHEN: Appending the same uniqueness tuple again
	// THEN: A duplicate error; a different key on the same day is fine

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 5), ledger.MovementSellIn, 10, "SI:1")))

	err := s.Append(ctx, entry(1, 1, date(2025, time.March, 5), ledger.MovementSellIn, 99, "SI:1"))
	require.Error(t, err)
	assert.True(t, ledger.IsDuplicate(err))

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 5), ledger.MovementSellIn, 5, "SI:2")))

	ok, err := s.Exists(ctx, entry(1, 1, date(2025, time.March, 5), ledger.MovementSellIn, 0, "SI:1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAppendBatch_RollsBackOnDuplicate(t *testing.T) {
	// GIVEN: A batch whose second entry collides with an existing row
	// WHEN: Appending the batch
	// THEN: Neither entry lands

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 6), ledger.MovementSellOut, 3, "SO:dup")))

	err := s.AppendBatch(ctx, []ledger.Entry{
		entry(1, 1, date(2025, time.March, 5), ledger.MovementSellOut, 1, "SO:new"),
		entry(1, 1, date(2025, time.March, 6), ledger.MovementSellOut, 3, "SO:dup"),
	})
	require.Error(t, err)
	assert.True(t, ledger.IsDuplicate(err))

	entries, err := s.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.ErrorIs(t, s.AppendBatch(ctx, nil), ledger.ErrEmptyBatch)
}

func TestMovements_OrderedAndWindowed(t *testing.T) {
	// GIVEN: Entries on several dates
	// WHEN: Querying with a from bound
	// THEN: Rows come back (doc_date, id) ordered inside the window

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 10), ledger.MovementSellIn, 1, "SI:b")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 1), ledger.MovementSellIn, 1, "SI:a")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 10), ledger.MovementSellOut, 1, "SO:c")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.April, 1), ledger.MovementSellIn, 1, "SI:d")))

	from := date(2025, time.March, 5)
	entries, err := s.Movements(ctx, 1, 1, &from, date(2025, time.March, 31))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SI:b", entries[0].IdempotencyKey)
	assert.Equal(t, "SO:c", entries[1].IdempotencyKey)
}

func TestAnchorQueries(t *testing.T) {
	// GIVEN: ADJUSTs across two SKUs and other movement noise
	// WHEN: Resolving anchors as of a cutoff
	// THEN: Latest-customer, latest-pair and earliest-customer all respect
	//       the cutoff and ignore non-ADJUST rows

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.January, 1), ledger.MovementAdjust, 10, "ADJ:1")))
	require.NoError(t, s.Append(ctx, entry(1, 2, date(2025, time.February, 1), ledger.MovementAdjust, 5, "ADJ:2")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 1), ledger.MovementSellIn, 5, "SI:noise")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.June, 1), ledger.MovementAdjust, 8, "ADJ:future")))

	asOf := date(2025, time.March, 31)

	latest, err := s.LatestCustomerAdjust(ctx, 1, asOf)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-02-01", latest.String())

	pair, err := s.LatestPairAdjust(ctx, 1, 1, asOf)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "2025-01-01", pair.String())

	earliest, err := s.EarliestCustomerAdjust(ctx, 1, asOf)
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.Equal(t, "2025-01-01", earliest.String())

	none, err := s.LatestCustomerAdjust(ctx, 99, asOf)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestLastMovementByCustomer(t *testing.T) {
	// GIVEN: Sell-in rows for two customers
	// WHEN: Aggregating last movement dates
	// THEN: Each customer maps to its max doc_date for that movement only

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.January, 5), ledger.MovementSellIn, 1, "SI:1")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.February, 5), ledger.MovementSellIn, 1, "SI:2")))
	require.NoError(t, s.Append(ctx, entry(2, 1, date(2025, time.January, 9), ledger.MovementSellIn, 1, "SI:3")))
	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.March, 1), ledger.MovementSellOut, 1, "SO:1")))

	last, err := s.LastMovementByCustomer(ctx, ledger.MovementSellIn)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "2025-02-05", last[1].String())
	assert.Equal(t, "2025-01-09", last[2].String())
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestSaveSnapshot_SupersedesPriorActive(t *testing.T) {
	// GIVEN: Two snapshots for the same (customer, sku, date, brand)
	// WHEN: Saving the second
	// THEN: Only the second remains active; SnapshotQtyOn sees its qty

	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveSnapshot(ctx, ledger.Snapshot{
		CustomerID: 1, SKUID: 1, Date: date(2025, time.January, 31),
		Qty: decimal.NewFromInt(80),
	})
	require.NoError(t, err)

	_, err = s.SaveSnapshot(ctx, ledger.Snapshot{
		CustomerID: 1, SKUID: 1, Date: date(2025, time.January, 31),
		Qty: decimal.NewFromInt(85),
	})
	require.NoError(t, err)

	qty, ok, err := s.SnapshotQtyOn(ctx, 1, 1, date(2025, time.January, 31))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(85).Equal(qty))

	snap, err := s.LatestActiveSnapshot(ctx, 1, 1, "", date(2025, time.June, 30))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, decimal.NewFromInt(85).Equal(snap.Qty))
	assert.True(t, snap.Active)
}

func TestLatestActiveSnapshot_BrandAndDateBounds(t *testing.T) {
	// GIVEN: Snapshots across brands and dates
	// WHEN: Querying with and without a brand filter
	// THEN: The latest in-bounds row for the scope wins

	s := newStore(t)
	ctx := context.Background()

	_, err := s.SaveSnapshot(ctx, ledger.Snapshot{
		CustomerID: 1, SKUID: 1, Brand: "Volt",
		Date: date(2025, time.January, 31), Qty: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	_, err = s.SaveSnapshot(ctx, ledger.Snapshot{
		CustomerID: 1, SKUID: 1, Brand: "Amp",
		Date: date(2025, time.February, 28), Qty: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	volt, err := s.LatestActiveSnapshot(ctx, 1, 1, "Volt", date(2025, time.June, 30))
	require.NoError(t, err)
	require.NotNil(t, volt)
	assert.True(t, decimal.NewFromInt(10).Equal(volt.Qty))

	any, err := s.LatestActiveSnapshot(ctx, 1, 1, "", date(2025, time.June, 30))
	require.NoError(t, err)
	require.NotNil(t, any)
	assert.True(t, decimal.NewFromInt(20).Equal(any.Qty))

	early, err := s.LatestActiveSnapshot(ctx, 1, 1, "", date(2025, time.January, 15))
	require.NoError(t, err)
	assert.Nil(t, early)
}

// =============================================================================
// BATCH LIFECYCLE
// =============================================================================

func draftUpload(t *testing.T, s *sqlite.Store) ledger.UploadID {
	t.Helper()
	reported := decimal.NewFromInt(100)
	id, err := s.CreateUpload(context.Background(), sellout.Upload{
		CustomerID:  1,
		Brand:       "Volt",
		PeriodStart: date(2025, time.January, 1),
		PeriodEnd:   date(2025, time.January, 31),
		CreatedBy:   "uploader",
	}, []sellout.Line{
		{SKUID: 1, DocDate: date(2025, time.January, 10), Qty: decimal.NewFromInt(8), ReportedSOH: &reported},
		{SKUID: 1, DocDate: date(2025, time.January, 5), Qty: decimal.NewFromInt(3)},
	})
	require.NoError(t, err)
	return id
}

func TestUploadLifecycle(t *testing.T) {
	// GIVEN: A created draft
	// WHEN: Claiming, racing a second claim, and finalizing via PostUpload
	// THEN: Exactly one claim wins; the entries and audit fields land together

	s := newStore(t)
	ctx := context.Background()
	id := draftUpload(t, s)

	u, err := s.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusDraft, u.Status)
	assert.Equal(t, "uploader", u.CreatedBy)

	lines, err := s.Lines(ctx, id, true)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	// Ordered (sku, doc_date, row) regardless of insertion order.
	assert.Equal(t, "2025-01-05", lines[0].DocDate.String())
	assert.Equal(t, 2, lines[0].RowNumber)
	require.NotNil(t, lines[1].ReportedSOH)

	require.NoError(t, s.ClaimPosting(ctx, id))

	err = s.ClaimPosting(ctx, id)
	require.Error(t, err)
	assert.True(t, ledger.IsConflict(err))

	approvedAt := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PostUpload(ctx, id, []ledger.Entry{
		entry(1, 1, date(2025, time.January, 5), ledger.MovementSellOut, -3, "SO_APPROVE:lc:2"),
		entry(1, 1, date(2025, time.January, 10), ledger.MovementSellOut, -8, "SO_APPROVE:lc:1"),
	}, "alice", approvedAt))

	u, err = s.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusPosted, u.Status)
	assert.Equal(t, "alice", u.ApprovedBy)
	require.NotNil(t, u.ApprovedAt)
	assert.True(t, approvedAt.Equal(*u.ApprovedAt))

	entries, err := s.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPostUpload_FailureLeavesNothingBehind(t *testing.T) {
	// GIVEN: A claimed upload whose second entry collides with the ledger
	// WHEN: Finalizing via PostUpload
	// THEN: The whole transaction rolls back: no entries written, header
	//       still claimed, so releasing to Draft stays correct

	s := newStore(t)
	ctx := context.Background()
	id := draftUpload(t, s)
	require.NoError(t, s.ClaimPosting(ctx, id))

	require.NoError(t, s.Append(ctx, entry(1, 1, date(2025, time.January, 10), ledger.MovementSellOut, -8, "SO_APPROVE:clash")))

	err := s.PostUpload(ctx, id, []ledger.Entry{
		entry(1, 1, date(2025, time.January, 5), ledger.MovementSellOut, -3, "SO_APPROVE:fresh"),
		entry(1, 1, date(2025, time.January, 10), ledger.MovementSellOut, -8, "SO_APPROVE:clash"),
	}, "alice", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ledger.IsDuplicate(err))

	u, err := s.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusPosting, u.Status, "header must not advance when entries fail")

	entries, err := s.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the pre-existing entry may remain")
}

func TestPostUpload_RequiresClaim(t *testing.T) {
	// GIVEN: A draft that was never claimed
	// WHEN: Finalizing via PostUpload
	// THEN: The guarded header update fails and no entries land

	s := newStore(t)
	ctx := context.Background()
	id := draftUpload(t, s)

	err := s.PostUpload(ctx, id, []ledger.Entry{
		entry(1, 1, date(2025, time.January, 5), ledger.MovementSellOut, -3, "SO_APPROVE:nc"),
	}, "alice", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ledger.IsConflict(err))

	u, err := s.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusDraft, u.Status)

	entries, err := s.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetUpload_Missing(t *testing.T) {
	s := newStore(t)
	_, err := s.GetUpload(context.Background(), 999)
	assert.True(t, ledger.IsNotFound(err))
}

func TestListUploads_Filters(t *testing.T) {
	// GIVEN: Drafts for two customers, one rejected
	// WHEN: Listing with status and customer filters
	// THEN: Only matching uploads come back

	s := newStore(t)
	ctx := context.Background()
	a := draftUpload(t, s)
	b := draftUpload(t, s)
	require.NoError(t, s.SetStatus(ctx, b, sellout.StatusRejected))

	drafts, err := s.ListUploads(ctx, sellout.ListFilter{Status: sellout.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, a, drafts[0].ID)

	all, err := s.ListUploads(ctx, sellout.ListFilter{CustomerID: 1})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSavePreview_ReplacesRowsAndFlags(t *testing.T) {
	// GIVEN: A persisted preview with a negative row
	// WHEN: Re-saving a clean preview
	// THEN: The old rows are gone and the header flags follow

	s := newStore(t)
	ctx := context.Background()
	id := draftUpload(t, s)
	now := time.Now().UTC()

	rows := []sellout.PreviewRow{
		{
			UploadID: id, RowNumber: 1, SKUID: 1,
			DocDate:              date(2025, time.January, 10),
			Qty:                  decimal.NewFromInt(8),
			AvailableBefore:      decimal.NewFromInt(5),
			CumulativeFromUpload: decimal.NewFromInt(8),
			ResultingBalance:     decimal.NewFromInt(-3),
			IsNegative:           true,
		},
		{
			UploadID: id, RowNumber: 2, SKUID: 1,
			DocDate:              date(2025, time.January, 5),
			Qty:                  decimal.NewFromInt(3),
			AvailableBefore:      decimal.NewFromInt(5),
			CumulativeFromUpload: decimal.NewFromInt(3),
			ResultingBalance:     decimal.NewFromInt(2),
		},
	}
	require.NoError(t, s.SavePreview(ctx, id, rows, true, now))

	got, err := s.Preview(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsNegative)
	assert.True(t, decimal.NewFromInt(-3).Equal(got[0].ResultingBalance))

	u, err := s.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.HasPotentialNegatives)
	require.NotNil(t, u.NegPreviewComputedAt)

	require.NoError(t, s.SavePreview(ctx, id, rows[1:], false, now))
	got, err = s.Preview(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].RowNumber)

	u, err = s.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.HasPotentialNegatives)

	err = s.SavePreview(ctx, 999, nil, false, now)
	assert.True(t, ledger.IsNotFound(err))
}

func TestApprovals_OrderedAuditTrail(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id := draftUpload(t, s)

	require.NoError(t, s.AddApproval(ctx, sellout.Approval{UploadID: id, Action: sellout.ActionSubmit, Actor: "uploader"}))
	require.NoError(t, s.AddApproval(ctx, sellout.Approval{UploadID: id, Action: sellout.ActionReject, Actor: "bob", Comment: "wrong period"}))

	approvals, err := s.Approvals(ctx, id)
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	assert.Equal(t, sellout.ActionSubmit, approvals[0].Action)
	assert.Equal(t, sellout.ActionReject, approvals[1].Action)
	assert.Equal(t, "wrong period", approvals[1].Comment)
	assert.False(t, approvals[0].At.IsZero())
}

// =============================================================================
// MASTER DATA + CONFIG
// =============================================================================

func TestMasterData_UpsertAndStatus(t *testing.T) {
	// GIVEN: A customer upserted twice
	// WHEN: Updating its status and syncing tags
	// THEN: The second upsert wins and tag sync reports changes

	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertCustomer(ctx, ledger.Customer{ID: 1, Code: "C001", Name: "Acme", Status: ledger.StatusActive}))
	require.NoError(t, s.UpsertCustomer(ctx, ledger.Customer{ID: 1, Code: "C001", Name: "Acme Retail", Status: ledger.StatusActive}))

	c, err := s.GetCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Acme Retail", c.Name)
	assert.Nil(t, c.StatusDate)

	require.NoError(t, s.UpdateCustomerStatus(ctx, 1, ledger.StatusDead, date(2025, time.June, 30)))
	c, err = s.GetCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDead, c.Status)
	require.NotNil(t, c.StatusDate)
	assert.Equal(t, "2025-06-30", c.StatusDate.String())

	changed, err := s.SyncCustomerTags(ctx, 1, []string{ledger.TagHibernatingSellIn, ledger.TagHibernatingSellOut})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	changed, err = s.SyncCustomerTags(ctx, 1, []string{ledger.TagHibernatingSellOut})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	tags, err := s.CustomerTags(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{ledger.TagHibernatingSellOut}, tags)

	require.NoError(t, s.UpsertSKU(ctx, ledger.SKU{ID: 1, ArticleCode: "A-100", Brand: "Volt"}))
	skus, err := s.ListSKUs(ctx)
	require.NoError(t, err)
	require.Len(t, skus, 1)
	assert.Equal(t, "A-100", skus[0].ArticleCode)
}

func TestSyncCustomerTags_SafeAcrossHandles(t *testing.T) {
	// GIVEN: Two store handles sharing one database file, as two processes
	//        running the recompute would
	// WHEN: Both reconcile overlapping tag sets concurrently
	// THEN: No sync trips the (customer_id, tag) primary key, and the tag
	//       set settles on one of the requested sets

	path := filepath.Join(t.TempDir(), "tags.db")
	a, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	b, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ctx := context.Background()
	require.NoError(t, a.UpsertCustomer(ctx, ledger.Customer{ID: 1, Code: "C001", Name: "Acme", Status: ledger.StatusActive}))

	sets := [][]string{
		{ledger.TagHibernatingSellIn},
		{ledger.TagHibernatingSellIn, ledger.TagHibernatingSellOut},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i, s := range []*sqlite.Store{a, b} {
		wg.Add(1)
		go func(s *sqlite.Store, want []string) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				if _, err := s.SyncCustomerTags(ctx, 1, want); err != nil {
					errs <- err
					return
				}
			}
		}(s, sets[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tags, err := a.CustomerTags(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, sets, tags)
}

func TestConfig_AndCapabilities(t *testing.T) {
	// GIVEN: A fresh store
	// WHEN: Setting config and declaring the unit-price capability
	// THEN: Values overwrite and the capability applies immediately

	s := newStore(t)
	ctx := context.Background()

	_, ok, err := s.GetConfig(ctx, ledger.ConfigDeadThresholdDays)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetConfig(ctx, ledger.ConfigDeadThresholdDays, "120"))
	require.NoError(t, s.SetConfig(ctx, ledger.ConfigDeadThresholdDays, "180"))
	v, ok, err := s.GetConfig(ctx, ledger.ConfigDeadThresholdDays)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "180", v)

	assert.False(t, s.Capabilities().UnitPrice)
	require.NoError(t, s.DeclareCapabilities(ctx, ledger.Capabilities{UnitPrice: true}))
	assert.True(t, s.Capabilities().UnitPrice)

	flag, ok, err := s.GetConfig(ctx, ledger.ConfigUnitPriceCapability)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", flag)
}
