/*
posting.go - Approve/post lifecycle for sell-out batches

PURPOSE:
  Turns approved draft batches into immutable SELLOUT ledger entries.

GUARANTEES:
  - Exactly-once posting: the Draft->Posting claim is atomic, so of two
    concurrent approvers exactly one proceeds and the other skips.
  - All-or-nothing posting: the batch's entries and the Posted header
    commit together through the store's PostUpload; a single duplicate
    fails the whole write and the claim is released, leaving the upload
    Draft and the ledger untouched.
  - Replay safety: entry idempotency keys are SO_APPROVE:<upload>:<row>,
    so a re-posted upload collides instead of double-counting.

  Posting is not blocked by a negative preview; the preview is advisory
  and the approver decides.
*/
package sellout

import (
	"context"
	"fmt"
	"time"

	"github.com/pulse/inventory-engine/ledger"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// PostFailure describes one upload that could not be posted.
type PostFailure struct {
	UploadID ledger.UploadID
	Reason   string
}

// PostSkip describes one upload skipped because of its status (already
// posted, claimed by a concurrent approver, rejected...).
type PostSkip struct {
	UploadID ledger.UploadID
	Status   string
}

// PostResult partitions the requested ids.
type PostResult struct {
	Posted  []ledger.UploadID
	Skipped []PostSkip
	Failed  []PostFailure
}

// =============================================================================
// POSTER
// =============================================================================

type Poster struct {
	Batches Store
}

func NewPoster(batches Store) *Poster {
	return &Poster{Batches: batches}
}

// Post approves and posts each upload independently; one failure never
// blocks the others.
func (p *Poster) Post(ctx context.Context, ids []ledger.UploadID, actor, comment string) (PostResult, error) {
	if actor == "" {
		actor = "approver"
	}

	var result PostResult
	for _, id := range ids {
		skip, err := p.postOne(ctx, id, actor, comment)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, PostFailure{UploadID: id, Reason: err.Error()})
		case skip != nil:
			result.Skipped = append(result.Skipped, *skip)
		default:
			result.Posted = append(result.Posted, id)
		}
	}
	return result, nil
}

func (p *Poster) postOne(ctx context.Context, id ledger.UploadID, actor, comment string) (*PostSkip, error) {
	u, err := p.Batches.GetUpload(ctx, id)
	if err != nil {
		return nil, err
	}

	// Claim. Losing here means another approver holds or held the upload.
	if err := p.Batches.ClaimPosting(ctx, id); err != nil {
		if ledger.IsConflict(err) {
			current, gerr := p.Batches.GetUpload(ctx, id)
			status := "unknown"
			if gerr == nil {
				status = current.Status
			}
			return &PostSkip{UploadID: id, Status: status}, nil
		}
		return nil, err
	}

	// From here on, any failure must release the claim.
	lines, err := p.Batches.Lines(ctx, id, true)
	if err != nil {
		return nil, p.release(ctx, id, err)
	}
	if len(lines) == 0 {
		return nil, p.release(ctx, id, fmt.Errorf("%w: upload %d has no active lines", ledger.ErrDataIntegrity, id))
	}

	now := time.Now().UTC()
	entries := make([]ledger.Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, ledger.Entry{
			CustomerID:     u.CustomerID,
			SKUID:          line.SKUID,
			DocDate:        line.DocDate,
			Movement:       ledger.MovementSellOut,
			Qty:            line.Qty.Abs().Neg(),
			UploadID:       id,
			RefTable:       "sellout_uploads",
			RefID:          fmt.Sprintf("%d", id),
			IdempotencyKey: fmt.Sprintf("SO_APPROVE:%d:%d", id, line.RowNumber),
			CreatedAt:      now,
		})
	}

	if err := p.Batches.PostUpload(ctx, id, entries, actor, now); err != nil {
		return nil, p.release(ctx, id, err)
	}
	_ = p.Batches.AddApproval(ctx, Approval{
		UploadID: id, Action: ActionApprove, Actor: actor, Comment: comment, At: now,
	})
	return nil, nil
}

// release puts a claimed upload back to Draft and returns cause.
func (p *Poster) release(ctx context.Context, id ledger.UploadID, cause error) error {
	if err := p.Batches.SetStatus(ctx, id, StatusDraft); err != nil {
		return fmt.Errorf("release claim on upload %d after %v: %w", id, cause, err)
	}
	return cause
}

// =============================================================================
// REJECT / RESUBMIT
// =============================================================================

// Reject moves Draft uploads to Rejected with an audit row.
func (p *Poster) Reject(ctx context.Context, ids []ledger.UploadID, actor, comment string) (PostResult, error) {
	return p.transition(ctx, ids, actor, comment, ActionReject, StatusRejected, []string{StatusDraft})
}

// Resubmit moves Draft or Rejected uploads back to Draft with an audit row.
func (p *Poster) Resubmit(ctx context.Context, ids []ledger.UploadID, actor, comment string) (PostResult, error) {
	return p.transition(ctx, ids, actor, comment, ActionSubmit, StatusDraft, []string{StatusDraft, StatusRejected})
}

func (p *Poster) transition(ctx context.Context, ids []ledger.UploadID, actor, comment, action, to string, from []string) (PostResult, error) {
	if actor == "" {
		actor = "system"
	}

	var result PostResult
	for _, id := range ids {
		u, err := p.Batches.GetUpload(ctx, id)
		if err != nil {
			result.Failed = append(result.Failed, PostFailure{UploadID: id, Reason: err.Error()})
			continue
		}
		if !contains(from, u.Status) {
			result.Skipped = append(result.Skipped, PostSkip{UploadID: id, Status: u.Status})
			continue
		}
		if err := p.Batches.SetStatus(ctx, id, to); err != nil {
			result.Failed = append(result.Failed, PostFailure{UploadID: id, Reason: err.Error()})
			continue
		}
		_ = p.Batches.AddApproval(ctx, Approval{
			UploadID: id, Action: action, Actor: actor, Comment: comment, At: time.Now().UTC(),
		})
		result.Posted = append(result.Posted, id)
	}
	return result, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
