/*
batch.go - SQLite implementation of the sell-out batch store (sellout.Store)

LIFECYCLE ATOMICITY:
  ClaimPosting is a guarded UPDATE (status = 'Posting' WHERE status =
  'Draft') checked by affected-row count. Exactly one concurrent approver
  wins the claim; the rest get a *ledger.LifecycleError carrying the
  status they observed. PostUpload then commits the ledger entries and
  the Posting -> Posted header update in one transaction, so a failed
  finalization never leaves entries behind.

PREVIEW PERSISTENCE:
  SavePreview is delete-then-insert inside one transaction, keyed
  (upload_id, row_number), plus the header flags. Re-previewing replaces
  the prior result wholesale.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/sellout"
)

// CreateUpload persists a header and its lines in one transaction.
func (s *Store) CreateUpload(ctx context.Context, u sellout.Upload, lines []sellout.Line) (ledger.UploadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	status := u.Status
	if status == "" {
		status = sellout.StatusDraft
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO sellout_uploads
		(customer_id, brand, period_start, period_end, status, source_file, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.CustomerID, u.Brand, u.PeriodStart.String(), u.PeriodEnd.String(),
		status, u.SourceFile, u.CreatedBy, createdAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", err)
	}
	rawID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id := ledger.UploadID(rawID)

	for i, l := range lines {
		rowNumber := l.RowNumber
		if rowNumber == 0 {
			rowNumber = i + 1
		}
		var reported sql.NullString
		if l.ReportedSOH != nil {
			reported = sql.NullString{String: l.ReportedSOH.String(), Valid: true}
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO sellout_lines
			(upload_id, row_number, sku_id, cust_sku_code, doc_date, qty, reported_soh, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
			id, rowNumber, l.SKUID, l.CustSKUCode, l.DocDate.String(), l.Qty.String(), reported)
		if err != nil {
			return 0, fmt.Errorf("failed to insert line %d: %w", rowNumber, err)
		}
	}

	return id, sqlTx.Commit()
}

func (s *Store) GetUpload(ctx context.Context, id ledger.UploadID) (*sellout.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getUpload(ctx, id)
}

func (s *Store) getUpload(ctx context.Context, id ledger.UploadID) (*sellout.Upload, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, brand, period_start, period_end, status, source_file,
		       created_by, created_at, approved_by, approved_at,
		       has_potential_negatives, neg_preview_computed_at
		FROM sellout_uploads WHERE id = ?`, id)

	u, err := scanUpload(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) ListUploads(ctx context.Context, f sellout.ListFilter) ([]sellout.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, customer_id, brand, period_start, period_end, status, source_file,
		       created_by, created_at, approved_by, approved_at,
		       has_potential_negatives, neg_preview_computed_at
		FROM sellout_uploads WHERE 1=1
	`
	var args []any
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Brand != "" {
		query += " AND brand = ?"
		args = append(args, f.Brand)
	}
	if f.CustomerID != 0 {
		query += " AND customer_id = ?"
		args = append(args, f.CustomerID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []sellout.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}
	return uploads, rows.Err()
}

func (s *Store) Lines(ctx context.Context, id ledger.UploadID, activeOnly bool) ([]sellout.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT upload_id, row_number, sku_id, cust_sku_code, doc_date, qty, reported_soh, active
		FROM sellout_lines WHERE upload_id = ?
	`
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY sku_id, doc_date, row_number"

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []sellout.Line
	for rows.Next() {
		var (
			l        sellout.Line
			docDate  string
			qty      string
			reported sql.NullString
			active   int
		)
		if err := rows.Scan(&l.UploadID, &l.RowNumber, &l.SKUID, &l.CustSKUCode,
			&docDate, &qty, &reported, &active); err != nil {
			return nil, err
		}
		if l.DocDate, err = ledger.ParseDate(docDate); err != nil {
			return nil, err
		}
		if l.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad qty for line %d/%d: %w", l.UploadID, l.RowNumber, err)
		}
		if reported.Valid {
			r, err := decimal.NewFromString(reported.String)
			if err != nil {
				return nil, fmt.Errorf("bad reported SOH for line %d/%d: %w", l.UploadID, l.RowNumber, err)
			}
			l.ReportedSOH = &r
		}
		l.Active = active != 0
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) SavePreview(ctx context.Context, id ledger.UploadID, rows []sellout.PreviewRow, hasNegatives bool, computedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM sellout_neg_preview WHERE upload_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear preview: %w", err)
	}

	for _, r := range rows {
		negative := 0
		if r.IsNegative {
			negative = 1
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO sellout_neg_preview
			(upload_id, row_number, sku_id, doc_date, qty,
			 available_before, cumulative_from_upload, resulting_balance, is_negative)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, r.RowNumber, r.SKUID, r.DocDate.String(), r.Qty.String(),
			r.AvailableBefore.String(), r.CumulativeFromUpload.String(),
			r.ResultingBalance.String(), negative)
		if err != nil {
			return fmt.Errorf("failed to insert preview row %d: %w", r.RowNumber, err)
		}
	}

	negatives := 0
	if hasNegatives {
		negatives = 1
	}
	res, err := sqlTx.ExecContext(ctx, `
		UPDATE sellout_uploads
		SET has_potential_negatives = ?, neg_preview_computed_at = ?
		WHERE id = ?`,
		negatives, computedAt.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update preview flags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}

	return sqlTx.Commit()
}

func (s *Store) Preview(ctx context.Context, id ledger.UploadID) ([]sellout.PreviewRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT upload_id, row_number, sku_id, doc_date, qty,
		       available_before, cumulative_from_upload, resulting_balance, is_negative
		FROM sellout_neg_preview WHERE upload_id = ?
		ORDER BY row_number`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query preview: %w", err)
	}
	defer rows.Close()

	var result []sellout.PreviewRow
	for rows.Next() {
		var (
			r        sellout.PreviewRow
			docDate  string
			negative int
			raw      [4]string
		)
		if err := rows.Scan(&r.UploadID, &r.RowNumber, &r.SKUID, &docDate,
			&raw[0], &raw[1], &raw[2], &raw[3], &negative); err != nil {
			return nil, err
		}
		if r.DocDate, err = ledger.ParseDate(docDate); err != nil {
			return nil, err
		}
		for i, dst := range []*decimal.Decimal{&r.Qty, &r.AvailableBefore, &r.CumulativeFromUpload, &r.ResultingBalance} {
			if *dst, err = decimal.NewFromString(raw[i]); err != nil {
				return nil, fmt.Errorf("bad preview value for row %d/%d: %w", r.UploadID, r.RowNumber, err)
			}
		}
		r.IsNegative = negative != 0
		result = append(result, r)
	}
	return result, rows.Err()
}

// ClaimPosting atomically moves Draft -> Posting.
func (s *Store) ClaimPosting(ctx context.Context, id ledger.UploadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sellout_uploads SET status = ?
		WHERE id = ? AND status = ?`,
		sellout.StatusPosting, id, sellout.StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to claim upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	u, err := s.getUpload(ctx, id)
	if err != nil {
		return err
	}
	return &ledger.LifecycleError{UploadID: id, Status: u.Status, Op: "claim"}
}

// PostUpload writes the batch's ledger entries and finalizes the claimed
// header (Posting -> Posted) in one transaction. A duplicate entry or a
// header not in Posting rolls the whole upload back.
func (s *Store) PostUpload(ctx context.Context, id ledger.UploadID, entries []ledger.Entry, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return ledger.ErrEmptyBatch
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range entries {
		if err := s.appendEntry(ctx, sqlTx, e); err != nil {
			return err
		}
	}

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE sellout_uploads SET status = ?, approved_by = ?, approved_at = ?
		WHERE id = ? AND status = ?`,
		sellout.StatusPosted, actor, at.Format(time.RFC3339), id, sellout.StatusPosting)
	if err != nil {
		return fmt.Errorf("failed to mark posted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		err := sqlTx.QueryRowContext(ctx,
			"SELECT status FROM sellout_uploads WHERE id = ?", id).Scan(&status)
		if err == sql.ErrNoRows {
			return ledger.ErrNotFound
		}
		if err != nil {
			return err
		}
		return &ledger.LifecycleError{UploadID: id, Status: status, Op: "post"}
	}

	return sqlTx.Commit()
}

func (s *Store) SetStatus(ctx context.Context, id ledger.UploadID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE sellout_uploads SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) AddApproval(ctx context.Context, a sellout.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := a.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sellout_approvals (upload_id, action, actor, comment, at)
		VALUES (?, ?, ?, ?, ?)`,
		a.UploadID, a.Action, a.Actor, a.Comment, at.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to add approval: %w", err)
	}
	return nil
}

func (s *Store) Approvals(ctx context.Context, id ledger.UploadID) ([]sellout.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT upload_id, action, actor, comment, at
		FROM sellout_approvals WHERE upload_id = ?
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var result []sellout.Approval
	for rows.Next() {
		var (
			a  sellout.Approval
			at string
		)
		if err := rows.Scan(&a.UploadID, &a.Action, &a.Actor, &a.Comment, &at); err != nil {
			return nil, err
		}
		a.At, _ = time.Parse(time.RFC3339, at)
		result = append(result, a)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*sellout.Upload, error) {
	var (
		u           sellout.Upload
		periodStart string
		periodEnd   string
		createdAt   string
		approvedAt  sql.NullString
		negatives   int
		previewAt   sql.NullString
	)

	err := row.Scan(&u.ID, &u.CustomerID, &u.Brand, &periodStart, &periodEnd,
		&u.Status, &u.SourceFile, &u.CreatedBy, &createdAt, &u.ApprovedBy,
		&approvedAt, &negatives, &previewAt)
	if err != nil {
		return nil, err
	}

	if u.PeriodStart, err = ledger.ParseDate(periodStart); err != nil {
		return nil, err
	}
	if u.PeriodEnd, err = ledger.ParseDate(periodEnd); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if approvedAt.Valid {
		t, _ := time.Parse(time.RFC3339, approvedAt.String)
		u.ApprovedAt = &t
	}
	u.HasPotentialNegatives = negatives != 0
	if previewAt.Valid {
		t, _ := time.Parse(time.RFC3339, previewAt.String)
		u.NegPreviewComputedAt = &t
	}
	return &u, nil
}
