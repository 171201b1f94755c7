/*
memory.go - In-memory batch store (for testing/dev)

Mirrors the SQLite implementation's lifecycle semantics, most importantly
the atomic Draft->Posting claim.
*/
package sellout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulse/inventory-engine/ledger"
)

type MemoryStore struct {
	mu        sync.Mutex
	ledger    ledger.Store
	nextID    int64
	uploads   map[ledger.UploadID]*Upload
	lines     map[ledger.UploadID][]Line
	previews  map[ledger.UploadID][]PreviewRow
	approvals map[ledger.UploadID][]Approval
}

// NewMemoryStore wires the batch store to the ledger store PostUpload
// writes into, mirroring how the SQLite store holds both behind one handle.
func NewMemoryStore(l ledger.Store) *MemoryStore {
	return &MemoryStore{
		ledger:    l,
		uploads:   make(map[ledger.UploadID]*Upload),
		lines:     make(map[ledger.UploadID][]Line),
		previews:  make(map[ledger.UploadID][]PreviewRow),
		approvals: make(map[ledger.UploadID][]Approval),
	}
}

func (m *MemoryStore) CreateUpload(_ context.Context, u Upload, lines []Line) (ledger.UploadID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	u.ID = ledger.UploadID(m.nextID)
	if u.Status == "" {
		u.Status = StatusDraft
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	copied := u
	m.uploads[u.ID] = &copied

	stored := make([]Line, len(lines))
	for i, l := range lines {
		l.UploadID = u.ID
		if l.RowNumber == 0 {
			l.RowNumber = i + 1
		}
		l.Active = true
		stored[i] = l
	}
	m.lines[u.ID] = stored
	return u.ID, nil
}

func (m *MemoryStore) GetUpload(_ context.Context, id ledger.UploadID) (*Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.uploads[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *MemoryStore) ListUploads(_ context.Context, f ListFilter) ([]Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Upload
	for _, u := range m.uploads {
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.Brand != "" && u.Brand != f.Brand {
			continue
		}
		if f.CustomerID != 0 && u.CustomerID != f.CustomerID {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryStore) Lines(_ context.Context, id ledger.UploadID, activeOnly bool) ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Line
	for _, l := range m.lines[id] {
		if activeOnly && !l.Active {
			continue
		}
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.SKUID != b.SKUID {
			return a.SKUID < b.SKUID
		}
		if !a.DocDate.Equal(b.DocDate) {
			return a.DocDate.Before(b.DocDate)
		}
		return a.RowNumber < b.RowNumber
	})
	return result, nil
}

func (m *MemoryStore) SavePreview(_ context.Context, id ledger.UploadID, rows []PreviewRow, hasNegatives bool, computedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.uploads[id]
	if !ok {
		return ledger.ErrNotFound
	}
	m.previews[id] = append([]PreviewRow{}, rows...)
	u.HasPotentialNegatives = hasNegatives
	u.NegPreviewComputedAt = &computedAt
	return nil
}

func (m *MemoryStore) Preview(_ context.Context, id ledger.UploadID) ([]PreviewRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := append([]PreviewRow{}, m.previews[id]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].RowNumber < rows[j].RowNumber })
	return rows, nil
}

func (m *MemoryStore) ClaimPosting(_ context.Context, id ledger.UploadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.uploads[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if u.Status != StatusDraft {
		return &ledger.LifecycleError{UploadID: id, Status: u.Status, Op: "claim"}
	}
	u.Status = StatusPosting
	return nil
}

// PostUpload appends the entries and finalizes the header together. The
// ledger write is all-or-nothing, and the in-memory header update after a
// successful append cannot fail, so the pair behaves like one transaction.
func (m *MemoryStore) PostUpload(ctx context.Context, id ledger.UploadID, entries []ledger.Entry, actor string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.uploads[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if u.Status != StatusPosting {
		return &ledger.LifecycleError{UploadID: id, Status: u.Status, Op: "post"}
	}

	if err := m.ledger.AppendBatch(ctx, entries); err != nil {
		return err
	}
	u.Status = StatusPosted
	u.ApprovedBy = actor
	u.ApprovedAt = &at
	return nil
}

func (m *MemoryStore) SetStatus(_ context.Context, id ledger.UploadID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.uploads[id]
	if !ok {
		return ledger.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *MemoryStore) AddApproval(_ context.Context, a Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	m.approvals[a.UploadID] = append(m.approvals[a.UploadID], a)
	return nil
}

func (m *MemoryStore) Approvals(_ context.Context, id ledger.UploadID) ([]Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Approval{}, m.approvals[id]...), nil
}
