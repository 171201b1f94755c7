// Package store provides in-memory implementations of the ledger
// persistence interfaces, used by tests and local development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	nextEntryID int64
	entries     map[ledger.Pair][]ledger.Entry // sorted by (DocDate, ID)
	dedupe      map[entryKey]bool

	nextSnapID int64
	snapshots  []ledger.Snapshot

	customers map[ledger.CustomerID]ledger.Customer
	skus      map[ledger.SKUID]ledger.SKU
	tags      map[ledger.CustomerID]map[string]bool
	config    map[string]string

	caps ledger.Capabilities
}

// entryKey mirrors the uniqueness tuple enforced by the SQLite schema.
type entryKey struct {
	CustomerID ledger.CustomerID
	SKUID      ledger.SKUID
	DocDate    string
	Movement   ledger.MovementType
	Key        string
	UploadID   ledger.UploadID
}

func keyOf(e ledger.Entry) entryKey {
	return entryKey{
		CustomerID: e.CustomerID,
		SKUID:      e.SKUID,
		DocDate:    e.DocDate.String(),
		Movement:   e.Movement,
		Key:        e.IdempotencyKey,
		UploadID:   e.UploadID,
	}
}

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[ledger.Pair][]ledger.Entry),
		dedupe:    make(map[entryKey]bool),
		customers: make(map[ledger.CustomerID]ledger.Customer),
		skus:      make(map[ledger.SKUID]ledger.SKU),
		tags:      make(map[ledger.CustomerID]map[string]bool),
		config:    make(map[string]string),
	}
}

// DeclareCapabilities sets the optional-dimension declaration for this
// population. Tests that load priced entries call this once.
func (m *Memory) DeclareCapabilities(caps ledger.Capabilities) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caps = caps
}

func (m *Memory) Capabilities() ledger.Capabilities {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.caps
}

// =============================================================================
// STORE - append-only entries
// =============================================================================

func (m *Memory) Append(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) AppendBatch(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(entries) == 0 {
		return ledger.ErrEmptyBatch
	}

	// Check the whole batch first so the write is all-or-nothing.
	seen := make(map[entryKey]bool, len(entries))
	for _, e := range entries {
		k := keyOf(e)
		if m.dedupe[k] || seen[k] {
			return &ledger.DuplicateEntryError{
				CustomerID:     e.CustomerID,
				SKUID:          e.SKUID,
				DocDate:        e.DocDate,
				Movement:       e.Movement,
				IdempotencyKey: e.IdempotencyKey,
			}
		}
		seen[k] = true
	}

	for _, e := range entries {
		if err := m.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) appendLocked(e ledger.Entry) error {
	k := keyOf(e)
	if m.dedupe[k] {
		return &ledger.DuplicateEntryError{
			CustomerID:     e.CustomerID,
			SKUID:          e.SKUID,
			DocDate:        e.DocDate,
			Movement:       e.Movement,
			IdempotencyKey: e.IdempotencyKey,
		}
	}

	m.nextEntryID++
	e.ID = ledger.EntryID(m.nextEntryID)

	pair := ledger.Pair{CustomerID: e.CustomerID, SKUID: e.SKUID}
	list := m.entries[pair]

	// Binary search for the insertion point; same-date entries keep
	// insertion (ID) order, which is the FIFO tie-break.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].DocDate.After(e.DocDate)
	})
	list = append(list, ledger.Entry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	m.entries[pair] = list

	m.dedupe[k] = true
	return nil
}

func (m *Memory) Exists(_ context.Context, e ledger.Entry) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dedupe[keyOf(e)], nil
}

func (m *Memory) Movements(_ context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, from *ledger.Date, to ledger.Date) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.movementsLocked(customerID, skuID, from, to), nil
}

func (m *Memory) movementsLocked(customerID ledger.CustomerID, skuID ledger.SKUID, from *ledger.Date, to ledger.Date) []ledger.Entry {
	pair := ledger.Pair{CustomerID: customerID, SKUID: skuID}
	var result []ledger.Entry
	for _, e := range m.entries[pair] {
		if from != nil && e.DocDate.Before(*from) {
			continue
		}
		if e.DocDate.After(to) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func (m *Memory) Pairs(_ context.Context, customerID ledger.CustomerID) ([]ledger.Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pairs []ledger.Pair
	for p := range m.entries {
		if customerID != 0 && p.CustomerID != customerID {
			continue
		}
		if len(m.entries[p]) > 0 {
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].CustomerID != pairs[j].CustomerID {
			return pairs[i].CustomerID < pairs[j].CustomerID
		}
		return pairs[i].SKUID < pairs[j].SKUID
	})
	return pairs, nil
}

func (m *Memory) LatestCustomerAdjust(_ context.Context, customerID ledger.CustomerID, asOf ledger.Date) (*ledger.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adjustDateLocked(customerID, 0, asOf, false), nil
}

func (m *Memory) LatestPairAdjust(_ context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, asOf ledger.Date) (*ledger.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adjustDateLocked(customerID, skuID, asOf, false), nil
}

func (m *Memory) EarliestCustomerAdjust(_ context.Context, customerID ledger.CustomerID, asOf ledger.Date) (*ledger.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adjustDateLocked(customerID, 0, asOf, true), nil
}

// adjustDateLocked scans ADJUST dates <= asOf for the customer, optionally
// restricted to one SKU (skuID != 0), returning min or max.
func (m *Memory) adjustDateLocked(customerID ledger.CustomerID, skuID ledger.SKUID, asOf ledger.Date, earliest bool) *ledger.Date {
	var found *ledger.Date
	for pair, list := range m.entries {
		if pair.CustomerID != customerID {
			continue
		}
		if skuID != 0 && pair.SKUID != skuID {
			continue
		}
		for _, e := range list {
			if e.Movement != ledger.MovementAdjust || e.DocDate.After(asOf) {
				continue
			}
			d := e.DocDate
			switch {
			case found == nil:
				found = &d
			case earliest && d.Before(*found):
				found = &d
			case !earliest && d.After(*found):
				found = &d
			}
		}
	}
	return found
}

func (m *Memory) LastMovementByCustomer(_ context.Context, movement ledger.MovementType) (map[ledger.CustomerID]ledger.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[ledger.CustomerID]ledger.Date)
	for pair, list := range m.entries {
		for _, e := range list {
			if e.Movement != movement {
				continue
			}
			if last, ok := result[pair.CustomerID]; !ok || e.DocDate.After(last) {
				result[pair.CustomerID] = e.DocDate
			}
		}
	}
	return result, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

func (m *Memory) SaveSnapshot(_ context.Context, s ledger.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A re-upload supersedes prior counts of the same tuple.
	for i := range m.snapshots {
		prev := &m.snapshots[i]
		if prev.Active &&
			prev.CustomerID == s.CustomerID &&
			prev.SKUID == s.SKUID &&
			prev.Brand == s.Brand &&
			prev.Date.Equal(s.Date) {
			prev.Active = false
		}
	}

	m.nextSnapID++
	s.ID = m.nextSnapID
	s.Active = true
	m.snapshots = append(m.snapshots, s)
	return s.ID, nil
}

func (m *Memory) LatestActiveSnapshot(_ context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, brand string, asOf ledger.Date) (*ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *ledger.Snapshot
	for i := range m.snapshots {
		s := m.snapshots[i]
		if !s.Active || s.CustomerID != customerID || s.SKUID != skuID || s.Date.After(asOf) {
			continue
		}
		if brand != "" && s.Brand != brand {
			continue
		}
		if best == nil || s.Date.After(best.Date) || (s.Date.Equal(best.Date) && s.ID > best.ID) {
			copied := s
			best = &copied
		}
	}
	return best, nil
}

func (m *Memory) SnapshotQtyOn(_ context.Context, customerID ledger.CustomerID, skuID ledger.SKUID, on ledger.Date) (decimal.Decimal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *ledger.Snapshot
	for i := range m.snapshots {
		s := m.snapshots[i]
		if !s.Active || s.CustomerID != customerID || s.SKUID != skuID || !s.Date.Equal(on) {
			continue
		}
		if best == nil || s.ID > best.ID {
			copied := s
			best = &copied
		}
	}
	if best == nil {
		return decimal.Zero, false, nil
	}
	return best.Qty, true, nil
}

// =============================================================================
// MASTER DATA + CONFIG
// =============================================================================

func (m *Memory) GetCustomer(_ context.Context, id ledger.CustomerID) (*ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCustomers(_ context.Context) ([]ledger.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpsertCustomer(_ context.Context, c ledger.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Status == "" {
		c.Status = ledger.StatusActive
	}
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) UpdateCustomerStatus(_ context.Context, id ledger.CustomerID, status string, on ledger.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return ledger.ErrNotFound
	}
	c.Status = status
	c.StatusDate = &on
	m.customers[id] = c
	return nil
}

func (m *Memory) CustomerTags(_ context.Context, id ledger.CustomerID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []string
	for tag := range m.tags[id] {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result, nil
}

func (m *Memory) SyncCustomerTags(_ context.Context, id ledger.CustomerID, want []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(want))
	for _, t := range want {
		wanted[t] = true
	}

	current := m.tags[id]
	if current == nil {
		current = make(map[string]bool)
		m.tags[id] = current
	}

	changed := 0
	for t := range current {
		if !wanted[t] {
			delete(current, t)
			changed++
		}
	}
	for t := range wanted {
		if !current[t] {
			current[t] = true
			changed++
		}
	}
	return changed, nil
}

func (m *Memory) GetSKU(_ context.Context, id ledger.SKUID) (*ledger.SKU, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.skus[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &s, nil
}

func (m *Memory) ListSKUs(_ context.Context) ([]ledger.SKU, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.SKU, 0, len(m.skus))
	for _, s := range m.skus {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpsertSKU(_ context.Context, s ledger.SKU) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skus[s.ID] = s
	return nil
}

func (m *Memory) GetConfig(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.config[key]
	return v, ok, nil
}

func (m *Memory) SetConfig(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}

