/*
Package sellout manages draft sell-out batches: negative-balance admission
previews and the approve/post lifecycle that turns draft lines into
immutable SELLOUT ledger entries.

LIFECYCLE:
  Draft -> Posting -> Posted     (approve; Posting is a transient claim)
  Draft -> Rejected -> Draft     (reject, then resubmit)

  The Draft->Posting claim is a guarded update: whichever approver's
  update reports one affected row wins; everyone else skips. Posted is
  terminal.

SEE ALSO:
  - preview.go: Admission check against balance-as-of
  - posting.go: Atomic posting into the ledger
*/
package sellout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
)

// =============================================================================
// STATUSES + AUDIT ACTIONS
// =============================================================================

const (
	StatusDraft    = "Draft"
	StatusPosting  = "Posting"
	StatusPosted   = "Posted"
	StatusRejected = "Rejected"
)

const (
	ActionSubmit  = "SUBMIT"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
)

// =============================================================================
// BATCH TYPES
// =============================================================================

// Upload is a draft sell-out batch header.
type Upload struct {
	ID          ledger.UploadID
	CustomerID  ledger.CustomerID
	Brand       string
	PeriodStart ledger.Date
	PeriodEnd   ledger.Date
	Status      string
	SourceFile  string

	CreatedBy  string
	CreatedAt  time.Time
	ApprovedBy string
	ApprovedAt *time.Time

	HasPotentialNegatives bool
	NegPreviewComputedAt  *time.Time
}

// Line is one reported sell-out quantity. RowNumber is stable across
// re-previews and becomes part of the posting idempotency key.
type Line struct {
	UploadID    ledger.UploadID
	RowNumber   int
	SKUID       ledger.SKUID
	CustSKUCode string
	DocDate     ledger.Date
	Qty         decimal.Decimal
	ReportedSOH *decimal.Decimal
	Active      bool
}

// PreviewRow is one persisted admission-check result, keyed
// (UploadID, RowNumber).
type PreviewRow struct {
	UploadID             ledger.UploadID
	RowNumber            int
	SKUID                ledger.SKUID
	DocDate              ledger.Date
	Qty                  decimal.Decimal
	AvailableBefore      decimal.Decimal
	CumulativeFromUpload decimal.Decimal
	ResultingBalance     decimal.Decimal
	IsNegative           bool
}

// Approval is one audit-trail row.
type Approval struct {
	UploadID ledger.UploadID
	Action   string
	Actor    string
	Comment  string
	At       time.Time
}

// =============================================================================
// STORE
// =============================================================================

// ListFilter narrows ListUploads. Zero values mean "no filter".
type ListFilter struct {
	Status     string
	Brand      string
	CustomerID ledger.CustomerID
}

type Store interface {
	// CreateUpload persists a header and its lines, status Draft.
	CreateUpload(ctx context.Context, u Upload, lines []Line) (ledger.UploadID, error)

	// GetUpload returns the header, or ErrNotFound.
	GetUpload(ctx context.Context, id ledger.UploadID) (*Upload, error)

	ListUploads(ctx context.Context, f ListFilter) ([]Upload, error)

	// Lines returns the batch lines ordered (SKUID, DocDate, RowNumber).
	Lines(ctx context.Context, id ledger.UploadID, activeOnly bool) ([]Line, error)

	// SavePreview replaces the persisted preview for the upload
	// (delete-then-insert) and updates the header flags.
	SavePreview(ctx context.Context, id ledger.UploadID, rows []PreviewRow, hasNegatives bool, computedAt time.Time) error

	// Preview returns the persisted preview rows ordered by RowNumber,
	// or nil when none have been computed.
	Preview(ctx context.Context, id ledger.UploadID) ([]PreviewRow, error)

	// ClaimPosting atomically moves Draft -> Posting. Losing the race (or
	// any non-Draft status) returns a *ledger.LifecycleError.
	ClaimPosting(ctx context.Context, id ledger.UploadID) error

	// PostUpload finalizes a claimed upload in one atomic step: the
	// ledger entries and the Posting -> Posted header update (with
	// approver audit fields) commit together or not at all. Any failure,
	// a duplicate entry included, leaves both the ledger and the header
	// untouched.
	PostUpload(ctx context.Context, id ledger.UploadID, entries []ledger.Entry, actor string, at time.Time) error

	// SetStatus force-sets the header status (claim release, reject, resubmit).
	SetStatus(ctx context.Context, id ledger.UploadID, status string) error

	AddApproval(ctx context.Context, a Approval) error
	Approvals(ctx context.Context, id ledger.UploadID) ([]Approval, error)
}
