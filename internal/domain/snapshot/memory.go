package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
)

// MemoryRepository is an in-process Repository with the same uniqueness
// rule as the database: one snapshot per (kind, tenant, product, date).
type MemoryRepository struct {
	mu       sync.RWMutex
	rows     map[id.ID]Snapshot
	unique   map[string]id.ID
	products product.Reader
}

// NewMemoryRepository creates an empty store. products is used for search
// and may be nil.
func NewMemoryRepository(products product.Reader) *MemoryRepository {
	return &MemoryRepository{
		rows:     make(map[id.ID]Snapshot),
		unique:   make(map[string]id.ID),
		products: products,
	}
}

func uniqueKey(s *Snapshot) string {
	return fmt.Sprintf("%s|%s|%s|%s", s.Kind, s.TenantID, s.ProductID, s.Date.Format(time.DateOnly))
}

func (m *MemoryRepository) Insert(_ context.Context, snap *Snapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := uniqueKey(snap)
	if _, ok := m.unique[key]; ok {
		return false, nil
	}
	m.rows[snap.ID] = *snap
	m.unique[key] = snap.ID
	return true, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.rows[snapshotID]
	if !ok || s.Kind != kind || s.TenantID != tenantID {
		return nil, apperror.NewNotFound(string(kind)+" snapshot", snapshotID.String())
	}
	return &s, nil
}

func (m *MemoryRepository) GetForUpdate(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) (*Snapshot, error) {
	return m.GetByID(ctx, kind, tenantID, snapshotID)
}

func (m *MemoryRepository) Update(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rows[snap.ID]
	if !ok || cur.Kind != snap.Kind || cur.TenantID != snap.TenantID {
		return apperror.NewNotFound(snap.entityName(), snap.ID.String())
	}
	if cur.Version != snap.Version {
		return apperror.NewConcurrentModification(snap.entityName(), snap.ID.String())
	}

	oldKey, newKey := uniqueKey(&cur), uniqueKey(snap)
	if oldKey != newKey {
		if _, taken := m.unique[newKey]; taken {
			return DuplicateError(snap)
		}
		delete(m.unique, oldKey)
		m.unique[newKey] = snap.ID
	}

	snap.Version++
	snap.UpdatedAt = time.Now().UTC()
	m.rows[snap.ID] = *snap
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[snapshotID]
	if !ok || s.Kind != kind || s.TenantID != tenantID {
		return apperror.NewNotFound(string(kind)+" snapshot", snapshotID.String())
	}
	delete(m.unique, uniqueKey(&s))
	delete(m.rows, snapshotID)
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Snapshot], error) {
	m.mu.RLock()
	matched := make([]*Snapshot, 0)
	for _, s := range m.rows {
		if s.Kind != filter.Kind || s.TenantID != filter.TenantID {
			continue
		}
		if filter.ProductID != nil && s.ProductID != *filter.ProductID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && s.Date.Before(domain.TruncateDay(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && s.Date.After(domain.TruncateDay(*filter.DateTo)) {
			continue
		}
		row := s
		matched = append(matched, &row)
	}
	m.mu.RUnlock()

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		matched = m.search(ctx, matched, search)
	}

	desc := strings.HasPrefix(filter.OrderBy, "-")
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if desc {
			a, b = b, a
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return id.Less(a.ID, b.ID)
	})

	result := domain.ListResult[*Snapshot]{
		TotalCount: int64(len(matched)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Offset >= len(matched) {
		result.Items = []*Snapshot{}
		return result, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	result.Items = matched[filter.Offset:end]
	return result, nil
}

func (m *MemoryRepository) search(ctx context.Context, rows []*Snapshot, search string) []*Snapshot {
	if m.products == nil {
		return rows[:0]
	}
	ids := make([]id.ID, 0, len(rows))
	for _, s := range rows {
		ids = append(ids, s.ProductID)
	}
	products, err := m.products.GetMany(ctx, ids)
	if err != nil {
		return rows[:0]
	}
	kept := rows[:0]
	for _, s := range rows {
		p, ok := products[s.ProductID]
		if ok && (strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Code), search)) {
			kept = append(kept, s)
		}
	}
	return kept
}

func (m *MemoryRepository) FindPosted(_ context.Context, kind Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	probe := Snapshot{Kind: kind, ProductID: productID, Date: domain.TruncateDay(date)}
	probe.TenantID = tenantID
	snapshotID, ok := m.unique[uniqueKey(&probe)]
	if !ok {
		return nil, nil
	}
	s := m.rows[snapshotID]
	if s.Status != entity.StatusPosted {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) ProductsWithSnapshots(_ context.Context, tenantID tenant.ID) ([]id.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[id.ID]struct{})
	out := make([]id.ID, 0)
	for _, s := range m.rows {
		if s.TenantID != tenantID {
			continue
		}
		if _, ok := seen[s.ProductID]; ok {
			continue
		}
		seen[s.ProductID] = struct{}{}
		out = append(out, s.ProductID)
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
