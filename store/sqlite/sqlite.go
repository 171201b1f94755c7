/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (ledger.Store, ledger.SnapshotStore,
  ledger.MasterStore, ledger.ConfigStore, sellout.Store) using SQLite. In
  production, the same patterns apply to a server database - only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the inventory_ledger table
  - No DELETE statements on the inventory_ledger table
  - Corrections are appended as ADJUST restatements

KEY TABLES:
  inventory_ledger:    Immutable movement ledger, one row per movement
  soh_snapshots:       Counted stock baselines (active flag, superseding)
  customers, skus:     Master data
  customer_status_tags: Secondary status tags
  global_config:       Key/value runtime configuration
  sellout_uploads/lines/neg_preview/approvals: Draft batch lifecycle (batch.go)

IDEMPOTENCY:
  ux_ledger_idempotent enforces the uniqueness tuple
  (customer, sku, date, movement, key, upload). Violations surface as
  *ledger.DuplicateEntryError.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within the process; SQLite WAL mode
  handles reader/writer isolation on disk. The Draft->Posting claim in
  batch.go is a guarded UPDATE checked by affected-row count, so it stays
  correct across processes too.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	caps ledger.Capabilities
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	// _txlock=immediate takes the write lock at BeginTx, so a second
	// process sharing the file waits on the busy timeout instead of
	// failing mid-transaction when its read snapshot goes stale.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized through s.mu anyway, and a single connection
	// keeps ":memory:" databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.loadCapabilities(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Inventory ledger (append-only)
	CREATE TABLE IF NOT EXISTS inventory_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		doc_date TEXT NOT NULL,
		movement TEXT NOT NULL,
		sub_type TEXT,
		qty TEXT NOT NULL,
		unit_price TEXT,
		upload_id INTEGER NOT NULL DEFAULT 0,
		ref_table TEXT,
		ref_id TEXT,
		idempotency_key TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- CRITICAL: the idempotency uniqueness tuple. Every capture and posting
	-- path relies on this index to make replays safe.
	CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_idempotent
		ON inventory_ledger(customer_id, sku_id, doc_date, movement, idempotency_key, upload_id);

	-- Balance replay (hot path)
	CREATE INDEX IF NOT EXISTS idx_ledger_pair_date
		ON inventory_ledger(customer_id, sku_id, doc_date);

	-- Anchor resolution and activity queries
	CREATE INDEX IF NOT EXISTS idx_ledger_customer_movement_date
		ON inventory_ledger(customer_id, movement, doc_date);

	-- Counted stock snapshots
	CREATE TABLE IF NOT EXISTS soh_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		soh_date TEXT NOT NULL,
		qty TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'Snapshot',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_pair_date
		ON soh_snapshots(customer_id, sku_id, soh_date, active);

	-- Master data
	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY,
		code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Active',
		status_date TEXT
	);

	CREATE TABLE IF NOT EXISTS customer_status_tags (
		customer_id INTEGER NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (customer_id, tag)
	);

	CREATE TABLE IF NOT EXISTS skus (
		id INTEGER PRIMARY KEY,
		article_code TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS global_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Sell-out batch lifecycle
	CREATE TABLE IF NOT EXISTS sellout_uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Draft',
		source_file TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT,
		has_potential_negatives INTEGER NOT NULL DEFAULT 0,
		neg_preview_computed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sellout_uploads_status
		ON sellout_uploads(status);

	CREATE TABLE IF NOT EXISTS sellout_lines (
		upload_id INTEGER NOT NULL,
		row_number INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		cust_sku_code TEXT NOT NULL DEFAULT '',
		doc_date TEXT NOT NULL,
		qty TEXT NOT NULL,
		reported_soh TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (upload_id, row_number)
	);

	CREATE TABLE IF NOT EXISTS sellout_neg_preview (
		upload_id INTEGER NOT NULL,
		row_number INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		doc_date TEXT NOT NULL,
		qty TEXT NOT NULL,
		available_before TEXT NOT NULL,
		cumulative_from_upload TEXT NOT NULL,
		resulting_balance TEXT NOT NULL,
		is_negative INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (upload_id, row_number)
	);

	CREATE TABLE IF NOT EXISTS sellout_approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		upload_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		actor TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sellout_approvals_upload
		ON sellout_approvals(upload_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// loadCapabilities resolves the optional-dimension declaration once at open.
func (s *Store) loadCapabilities() error {
	v, ok, err := s.GetConfig(context.Background(), ledger.ConfigUnitPriceCapability)
	if err != nil {
		return err
	}
	s.caps = ledger.Capabilities{UnitPrice: ok && v == "1"}
	return nil
}

func (s *Store) Capabilities() ledger.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps
}

// DeclareCapabilities persists the declaration and applies it immediately.
func (s *Store) DeclareCapabilities(ctx context.Context, caps ledger.Capabilities) error {
	v := "0"
	if caps.UnitPrice {
		v = "1"
	}
	if err := s.SetConfig(ctx, ledger.ConfigUnitPriceCapability, v); err != nil {
		return err
	}
	s.mu.Lock()
	s.caps = caps
	s.mu.Unlock()
	return nil
}

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Append adds one entry to the ledger.
func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendEntry(ctx, s.db, e)
}

func (s *Store) appendEntry(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, e ledger.Entry) error {
	query := `
		INSERT INTO inventory_ledger
		(customer_id, sku_id, doc_date, movement, sub_type, qty, unit_price,
		 upload_id, ref_table, ref_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var unitPrice sql.NullString
	if e.UnitPrice != nil {
		unitPrice = sql.NullString{String: e.UnitPrice.String(), Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		e.CustomerID,
		e.SKUID,
		e.DocDate.String(),
		e.Movement,
		nullString(e.SubType),
		e.Qty.String(),
		unitPrice,
		e.UploadID,
		nullString(e.RefTable),
		nullString(e.RefID),
		e.IdempotencyKey,
		createdAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicateEntryError{
				CustomerID:     e.CustomerID,
				SKUID:          e.SKUID,
				DocDate:        e.DocDate,
				Movement:       e.Movement,
				IdempotencyKey: e.IdempotencyKey,
			}
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}

	return nil
}

// AppendBatch adds multiple entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []ledger.Entry) error {
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

	return sqlTx.Commit()
}

// Exists checks whether the uniqueness tuple is already present.
func (s *Store) Exists(ctx context.Context, e ledger.Entry) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM inventory_ledger
		WHERE customer_id = ? AND sku_id = ? AND doc_date = ?
		  AND movement = ? AND idempotency_key = ? AND upload_id = ?`,
		e.CustomerID, e.SKUID, e.DocDate.String(), e.Movement, e.IdempotencyKey, e.UploadID,
	).Scan(&count)

	return count > 0, err
}

// Movements returns pair entries in [from, to], ordered (doc_date, id).
func (s *Store) Movements(ctx context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, from *ledger.Date, to ledger.Date) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, customer_id, sku_id, doc_date, movement, sub_type, qty, unit_price,
		       upload_id, ref_table, ref_id, idempotency_key, created_at
		FROM inventory_ledger
		WHERE customer_id = ? AND sku_id = ? AND doc_date <= ?
	`
	args := []any{customerID, skuID, to.String()}
	if from != nil {
		query += " AND doc_date >= ?"
		args = append(args, from.String())
	}
	query += " ORDER BY doc_date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Pairs returns the distinct ledger pairs, optionally for one customer.
func (s *Store) Pairs(ctx context.Context, customerID ledger.CustomerID) ([]ledger.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT DISTINCT customer_id, sku_id FROM inventory_ledger"
	var args []any
	if customerID != 0 {
		query += " WHERE customer_id = ?"
		args = append(args, customerID)
	}
	query += " ORDER BY customer_id, sku_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	var pairs []ledger.Pair
	for rows.Next() {
		var p ledger.Pair
		if err := rows.Scan(&p.CustomerID, &p.SKUID); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (s *Store) LatestCustomerAdjust(ctx context.Context, customerID ledger.CustomerID, asOf ledger.Date) (*ledger.Date, error) {
	return s.adjustDate(ctx, `
		SELECT MAX(doc_date) FROM inventory_ledger
		WHERE customer_id = ? AND movement = ? AND doc_date <= ?`,
		customerID, ledger.MovementAdjust, asOf.String())
}

func (s *Store) LatestPairAdjust(ctx context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, asOf ledger.Date) (*ledger.Date, error) {
	return s.adjustDate(ctx, `
		SELECT MAX(doc_date) FROM inventory_ledger
		WHERE customer_id = ? AND movement = ? AND doc_date <= ? AND sku_id = ?`,
		customerID, ledger.MovementAdjust, asOf.String(), skuID)
}

func (s *Store) EarliestCustomerAdjust(ctx context.Context, customerID ledger.CustomerID, asOf ledger.Date) (*ledger.Date, error) {
	return s.adjustDate(ctx, `
		SELECT MIN(doc_date) FROM inventory_ledger
		WHERE customer_id = ? AND movement = ? AND doc_date <= ?`,
		customerID, ledger.MovementAdjust, asOf.String())
}

func (s *Store) adjustDate(ctx context.Context, query string, args ...any) (*ledger.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to resolve anchor: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	d, err := ledger.ParseDate(raw.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) LastMovementByCustomer(ctx context.Context, movement ledger.MovementType) (map[ledger.CustomerID]ledger.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, MAX(doc_date) FROM inventory_ledger
		WHERE movement = ?
		GROUP BY customer_id`, movement)
	if err != nil {
		return nil, fmt.Errorf("failed to query last movements: %w", err)
	}
	defer rows.Close()

	result := make(map[ledger.CustomerID]ledger.Date)
	for rows.Next() {
		var id ledger.CustomerID
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		d, err := ledger.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		result[id] = d
	}
	return result, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e         ledger.Entry
		docDate   string
		subType   sql.NullString
		qty       string
		unitPrice sql.NullString
		refTable  sql.NullString
		refID     sql.NullString
		createdAt string
	)

	err := rows.Scan(
		&e.ID, &e.CustomerID, &e.SKUID, &docDate, &e.Movement, &subType,
		&qty, &unitPrice, &e.UploadID, &refTable, &refID, &e.IdempotencyKey, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.DocDate, err = ledger.ParseDate(docDate); err != nil {
		return e, err
	}
	if e.Qty, err = decimal.NewFromString(qty); err != nil {
		return e, fmt.Errorf("bad qty for entry %d: %w", e.ID, err)
	}
	if unitPrice.Valid {
		p, err := decimal.NewFromString(unitPrice.String)
		if err != nil {
			return e, fmt.Errorf("bad unit price for entry %d: %w", e.ID, err)
		}
		e.UnitPrice = &p
	}
	e.SubType = subType.String
	e.RefTable = refTable.String
	e.RefID = refID.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

// =============================================================================
// SNAPSHOT STORE (ledger.SnapshotStore interface)
// =============================================================================

// SaveSnapshot inserts an active snapshot, superseding prior actives for
// the same (customer, sku, date, brand) in the same transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap ledger.Snapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE soh_snapshots SET active = 0
		WHERE customer_id = ? AND sku_id = ? AND soh_date = ? AND brand = ? AND active = 1`,
		snap.CustomerID, snap.SKUID, snap.Date.String(), snap.Brand)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede snapshots: %w", err)
	}

	kind := snap.Kind
	if kind == "" {
		kind = ledger.SnapshotPeriodic
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO soh_snapshots (customer_id, sku_id, brand, soh_date, qty, kind, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
		snap.CustomerID, snap.SKUID, snap.Brand, snap.Date.String(),
		snap.Qty.String(), kind, createdAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	return id, sqlTx.Commit()
}

func (s *Store) LatestActiveSnapshot(ctx context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, brand string, asOf ledger.Date) (*ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, customer_id, sku_id, brand, soh_date, qty, kind, active, created_at
		FROM soh_snapshots
		WHERE customer_id = ? AND sku_id = ? AND active = 1 AND soh_date <= ?
	`
	args := []any{customerID, skuID, asOf.String()}
	if brand != "" {
		query += " AND brand = ?"
		args = append(args, brand)
	}
	query += " ORDER BY soh_date DESC, id DESC LIMIT 1"

	snap, err := s.scanSnapshotRow(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) SnapshotQtyOn(ctx context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, on ledger.Date) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.scanSnapshotRow(ctx, `
		SELECT id, customer_id, sku_id, brand, soh_date, qty, kind, active, created_at
		FROM soh_snapshots
		WHERE customer_id = ? AND sku_id = ? AND active = 1 AND soh_date = ?
		ORDER BY id DESC LIMIT 1`,
		customerID, skuID, on.String())
	if err != nil {
		return decimal.Zero, false, err
	}
	if snap == nil {
		return decimal.Zero, false, nil
	}
	return snap.Qty, true, nil
}

func (s *Store) scanSnapshotRow(ctx context.Context, query string, args ...any) (*ledger.Snapshot, error) {
	var (
		snap      ledger.Snapshot
		date      string
		qty       string
		active    int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&snap.ID, &snap.CustomerID, &snap.SKUID, &snap.Brand, &date, &qty, &snap.Kind, &active, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if snap.Date, err = ledger.ParseDate(date); err != nil {
		return nil, err
	}
	if snap.Qty, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("bad snapshot qty %d: %w", snap.ID, err)
	}
	snap.Active = active != 0
	snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &snap, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
