package sellout_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/sellout"
)

// =============================================================================
// POSTING
// =============================================================================

func TestPost_DraftBecomesLedgerEntries(t *testing.T) {
	// GIVEN: A draft batch with two lines
	// WHEN: Approving it
	// THEN: The upload is Posted and the ledger holds two negative SELLOUT
	//       entries with replay-safe keys

	f := newFixture(t)
	ctx := context.Background()
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
		line(1, date(2025, time.January, 11), 3),
	})

	poster := sellout.NewPoster(f.batches)
	result, err := poster.Post(ctx, []ledger.UploadID{id}, "alice", "ok")
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Failed)

	u, err := f.batches.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusPosted, u.Status)
	assert.Equal(t, "alice", u.ApprovedBy)
	require.NotNil(t, u.ApprovedAt)

	entries, err := f.ledger.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ledger.MovementSellOut, e.Movement)
		assert.True(t, e.Qty.IsNegative(), "posted quantities are stored negative")
		assert.Equal(t, id, e.UploadID)
	}
	assert.Equal(t, fmt.Sprintf("SO_APPROVE:%d:1", id), entries[0].IdempotencyKey)

	approvals, err := f.batches.Approvals(ctx, id)
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, sellout.ActionApprove, approvals[0].Action)
}

func TestPost_SecondApprovalSkips(t *testing.T) {
	// GIVEN: An already posted upload
	// WHEN: Approving it again
	// THEN: It is skipped with its current status; nothing double-posts

	f := newFixture(t)
	ctx := context.Background()
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
	})

	poster := sellout.NewPoster(f.batches)
	first, err := poster.Post(ctx, []ledger.UploadID{id}, "alice", "")
	require.NoError(t, err)
	require.Len(t, first.Posted, 1)

	second, err := poster.Post(ctx, []ledger.UploadID{id}, "bob", "")
	require.NoError(t, err)
	assert.Empty(t, second.Posted)
	require.Len(t, second.Skipped, 1)
	assert.Equal(t, sellout.StatusPosted, second.Skipped[0].Status)

	entries, err := f.ledger.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPost_DuplicateRollsBackWholeBatch(t *testing.T) {
	// GIVEN: A ledger already containing one of the batch's entry tuples
	// WHEN: Approving the batch
	// THEN: Nothing is appended, the claim is released and the upload
	//       returns to Draft

	f := newFixture(t)
	ctx := context.Background()
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
		line(1, date(2025, time.January, 11), 3),
	})

	// Collides with what line 2 will produce.
	require.NoError(t, f.ledger.Append(ctx, ledger.Entry{
		CustomerID:     1,
		SKUID:          1,
		DocDate:        date(2025, time.January, 11),
		Movement:       ledger.MovementSellOut,
		Qty:            decimal.NewFromInt(-3),
		UploadID:       id,
		IdempotencyKey: fmt.Sprintf("SO_APPROVE:%d:2", id),
	}))

	poster := sellout.NewPoster(f.batches)
	result, err := poster.Post(ctx, []ledger.UploadID{id}, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, result.Posted)
	require.Len(t, result.Failed, 1)

	u, err := f.batches.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusDraft, u.Status, "claim must be released on failure")

	entries, err := f.ledger.Movements(ctx, 1, 1, nil, date(2025, time.December, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "line 1 must not post when line 2 collides")
}

func TestPost_OneFailureDoesNotBlockOthers(t *testing.T) {
	// GIVEN: Two drafts where only the second is postable
	// WHEN: Approving both in one call
	// THEN: The broken one fails, the healthy one posts

	f := newFixture(t)
	ctx := context.Background()

	broken := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
	})
	require.NoError(t, f.ledger.Append(ctx, ledger.Entry{
		CustomerID:     1,
		SKUID:          1,
		DocDate:        date(2025, time.January, 10),
		Movement:       ledger.MovementSellOut,
		Qty:            decimal.NewFromInt(-8),
		UploadID:       broken,
		IdempotencyKey: fmt.Sprintf("SO_APPROVE:%d:1", broken),
	}))

	healthy := f.newUpload(t, 2, []sellout.Line{
		line(1, date(2025, time.January, 10), 4),
	})

	poster := sellout.NewPoster(f.batches)
	result, err := poster.Post(ctx, []ledger.UploadID{broken, healthy}, "alice", "")
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)
	assert.Equal(t, healthy, result.Posted[0])
	require.Len(t, result.Failed, 1)
	assert.Equal(t, broken, result.Failed[0].UploadID)
}

// =============================================================================
// REJECT / RESUBMIT
// =============================================================================

func TestRejectThenResubmit(t *testing.T) {
	// GIVEN: A draft batch
	// WHEN: Rejecting, attempting approval, then resubmitting and approving
	// THEN: Rejected batches cannot post until resubmitted

	f := newFixture(t)
	ctx := context.Background()
	id := f.newUpload(t, 1, []sellout.Line{
		line(1, date(2025, time.January, 10), 8),
	})

	poster := sellout.NewPoster(f.batches)

	rejected, err := poster.Reject(ctx, []ledger.UploadID{id}, "bob", "wrong period")
	require.NoError(t, err)
	require.Len(t, rejected.Posted, 1)

	u, err := f.batches.GetUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sellout.StatusRejected, u.Status)

	blocked, err := poster.Post(ctx, []ledger.UploadID{id}, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, blocked.Posted)
	require.Len(t, blocked.Skipped, 1)
	assert.Equal(t, sellout.StatusRejected, blocked.Skipped[0].Status)

	resubmitted, err := poster.Resubmit(ctx, []ledger.UploadID{id}, "carol", "fixed")
	require.NoError(t, err)
	require.Len(t, resubmitted.Posted, 1)

	posted, err := poster.Post(ctx, []ledger.UploadID{id}, "alice", "")
	require.NoError(t, err)
	require.Len(t, posted.Posted, 1)

	approvals, err := f.batches.Approvals(ctx, id)
	require.NoError(t, err)
	require.Len(t, approvals, 3)
	assert.Equal(t, sellout.ActionReject, approvals[0].Action)
	assert.Equal(t, sellout.ActionSubmit, approvals[1].Action)
	assert.Equal(t, sellout.ActionApprove, approvals[2].Action)
}
