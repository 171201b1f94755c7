/*
master.go - SQLite implementation of master data and config stores

Customers, SKUs, secondary status tags, and the global key/value config.
SyncCustomerTags reconciles the tag set in one transaction so a recompute
run never leaves a customer half-tagged.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pulse/inventory-engine/ledger"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Store) GetCustomer(ctx context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, status, status_date
		FROM customers WHERE id = ?`, id)

	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, status, status_date
		FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []ledger.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *Store) UpsertCustomer(ctx context.Context, c ledger.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := c.Status
	if status == "" {
		status = ledger.StatusActive
	}
	var statusDate sql.NullString
	if c.StatusDate != nil {
		statusDate = sql.NullString{String: c.StatusDate.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, code, name, status, status_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			status = excluded.status,
			status_date = excluded.status_date`,
		c.ID, c.Code, c.Name, status, statusDate)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

func (s *Store) UpdateCustomerStatus(ctx context.Context, id ledger.CustomerID, status string, on ledger.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET status = ?, status_date = ? WHERE id = ?`,
		status, on.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update customer status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) CustomerTags(ctx context.Context, id ledger.CustomerID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT tag FROM customer_status_tags WHERE customer_id = ? ORDER BY tag", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// SyncCustomerTags reconciles the tag set to exactly 'want'. Returns the
// number of tags added plus removed.
func (s *Store) SyncCustomerTags(ctx context.Context, id ledger.CustomerID, want []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	rows, err := sqlTx.QueryContext(ctx,
		"SELECT tag FROM customer_status_tags WHERE customer_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to query tags: %w", err)
	}
	current := make(map[string]bool)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			rows.Close()
			return 0, err
		}
		current[tag] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	wanted := make(map[string]bool, len(want))
	for _, tag := range want {
		wanted[tag] = true
	}

	// Counted via RowsAffected, and inserts use OR IGNORE: another process
	// sharing the database can land the same tag between our read and
	// write, and the sync must stay safe to re-run rather than trip the
	// (customer_id, tag) primary key.
	changed := int64(0)
	for tag := range current {
		if wanted[tag] {
			continue
		}
		res, err := sqlTx.ExecContext(ctx,
			"DELETE FROM customer_status_tags WHERE customer_id = ? AND tag = ?", id, tag)
		if err != nil {
			return 0, fmt.Errorf("failed to remove tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		changed += n
	}
	for tag := range wanted {
		if current[tag] {
			continue
		}
		res, err := sqlTx.ExecContext(ctx,
			"INSERT OR IGNORE INTO customer_status_tags (customer_id, tag) VALUES (?, ?)", id, tag)
		if err != nil {
			return 0, fmt.Errorf("failed to add tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		changed += n
	}

	return int(changed), sqlTx.Commit()
}

func scanCustomer(row rowScanner) (*ledger.Customer, error) {
	var (
		c          ledger.Customer
		statusDate sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Status, &statusDate); err != nil {
		return nil, err
	}
	if statusDate.Valid {
		d, err := ledger.ParseDate(statusDate.String)
		if err != nil {
			return nil, err
		}
		c.StatusDate = &d
	}
	return &c, nil
}

// =============================================================================
// SKUS
// =============================================================================

func (s *Store) GetSKU(ctx context.Context, id ledger.SKUID) (*ledger.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sku ledger.SKU
	err := s.db.QueryRowContext(ctx, `
		SELECT id, article_code, description, brand, category
		FROM skus WHERE id = ?`, id).
		Scan(&sku.ID, &sku.ArticleCode, &sku.Description, &sku.Brand, &sku.Category)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sku: %w", err)
	}
	return &sku, nil
}

func (s *Store) ListSKUs(ctx context.Context) ([]ledger.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, article_code, description, brand, category
		FROM skus ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list skus: %w", err)
	}
	defer rows.Close()

	var skus []ledger.SKU
	for rows.Next() {
		var sku ledger.SKU
		if err := rows.Scan(&sku.ID, &sku.ArticleCode, &sku.Description, &sku.Brand, &sku.Category); err != nil {
			return nil, err
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

func (s *Store) UpsertSKU(ctx context.Context, sku ledger.SKU) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skus (id, article_code, description, brand, category)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			article_code = excluded.article_code,
			description = excluded.description,
			brand = excluded.brand,
			category = excluded.category`,
		sku.ID, sku.ArticleCode, sku.Description, sku.Brand, sku.Category)
	if err != nil {
		return fmt.Errorf("failed to upsert sku: %w", err)
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM global_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get config: %w", err)
	}
	return value, true, nil
}

func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set config: %w", err)
	}
	return nil
}
