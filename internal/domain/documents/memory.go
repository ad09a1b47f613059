package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
)

// MemoryStore is an in-process document repository shared by receipts and
// issues. Stored values are copies; pair it with tx.Passthrough.
type MemoryStore[D Header, L Line] struct {
	mu       sync.RWMutex
	entity   string
	docs     map[id.ID]D
	items    map[id.ID][]L
	clone    func(D) D
	products product.Reader
}

// NewMemoryStore creates an empty store. clone must return a copy of the
// header without items. products is used for search and may be nil.
func NewMemoryStore[D Header, L Line](entityName string, clone func(D) D, products product.Reader) *MemoryStore[D, L] {
	return &MemoryStore[D, L]{
		entity:   entityName,
		docs:     make(map[id.ID]D),
		items:    make(map[id.ID][]L),
		clone:    clone,
		products: products,
	}
}

func (m *MemoryStore[D, L]) Create(_ context.Context, doc D) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := doc.DocumentHeader()
	if _, ok := m.docs[h.ID]; ok {
		return apperror.NewDuplicate(m.entity, "id", h.ID.String())
	}
	m.docs[h.ID] = m.clone(doc)
	return nil
}

func (m *MemoryStore[D, L]) GetByID(_ context.Context, tenantID tenant.ID, docID id.ID) (D, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[docID]
	if !ok || doc.DocumentHeader().TenantID != tenantID {
		var zero D
		return zero, apperror.NewNotFound(m.entity, docID.String())
	}
	return m.clone(doc), nil
}

func (m *MemoryStore[D, L]) GetForUpdate(ctx context.Context, tenantID tenant.ID, docID id.ID) (D, error) {
	return m.GetByID(ctx, tenantID, docID)
}

// Update replaces the header when doc.Version matches, then bumps the version.
func (m *MemoryStore[D, L]) Update(_ context.Context, doc D) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := doc.DocumentHeader()
	cur, ok := m.docs[h.ID]
	if !ok || cur.DocumentHeader().TenantID != h.TenantID {
		return apperror.NewNotFound(m.entity, h.ID.String())
	}
	if cur.DocumentHeader().Version != h.Version {
		return apperror.NewConcurrentModification(m.entity, h.ID.String())
	}

	h.Version++
	h.UpdatedAt = time.Now().UTC()
	m.docs[h.ID] = m.clone(doc)
	return nil
}

func (m *MemoryStore[D, L]) Delete(_ context.Context, tenantID tenant.ID, docID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[docID]
	if !ok || doc.DocumentHeader().TenantID != tenantID {
		return apperror.NewNotFound(m.entity, docID.String())
	}
	delete(m.docs, docID)
	delete(m.items, docID)
	return nil
}

func (m *MemoryStore[D, L]) GetItems(_ context.Context, docID id.ID) ([]L, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]L(nil), m.items[docID]...), nil
}

// SaveItems replaces the item set wholesale.
func (m *MemoryStore[D, L]) SaveItems(_ context.Context, docID id.ID, items []L) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[docID] = append([]L(nil), items...)
	return nil
}

func (m *MemoryStore[D, L]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error) {
	m.mu.RLock()
	matched := make([]D, 0)
	for docID, doc := range m.docs {
		h := doc.DocumentHeader()
		if h.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && h.Status != filter.Status {
			continue
		}
		d := domain.TruncateDay(h.Date)
		if filter.DateFrom != nil && d.Before(domain.TruncateDay(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && d.After(domain.TruncateDay(*filter.DateTo)) {
			continue
		}
		if !m.matchesSearch(ctx, filter.Search, h.Number, m.items[docID]) {
			continue
		}
		matched = append(matched, m.clone(doc))
	}
	m.mu.RUnlock()

	desc := strings.HasPrefix(filter.OrderBy, "-")
	field := strings.TrimPrefix(filter.OrderBy, "-")
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].DocumentHeader(), matched[j].DocumentHeader()
		if desc {
			a, b = b, a
		}
		switch field {
		case "number":
			if a.Number != b.Number {
				return a.Number < b.Number
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		return id.Less(a.ID, b.ID)
	})

	result := domain.ListResult[D]{
		TotalCount: int64(len(matched)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Offset >= len(matched) {
		result.Items = []D{}
		return result, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	result.Items = matched[filter.Offset:end]
	return result, nil
}

// matchesSearch is called with m.mu held for reading.
func (m *MemoryStore[D, L]) matchesSearch(ctx context.Context, search, number string, items []L) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(number), search) {
		return true
	}
	if m.products == nil {
		return false
	}
	products, err := m.products.GetMany(ctx, ProductIDs(items))
	if err != nil {
		return false
	}
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Code), search) {
			return true
		}
	}
	return false
}

// SumQuantities sums item quantities of q.ProductID over documents selected by q.
func (m *MemoryStore[D, L]) SumQuantities(_ context.Context, q domain.MovementQuery) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for docID, doc := range m.docs {
		h := doc.DocumentHeader()
		if h.TenantID != q.TenantID || !q.Includes(h.Status, h.Date) {
			continue
		}
		for _, l := range m.items[docID] {
			if l.LineProduct() == q.ProductID {
				total += l.LineQuantity()
			}
		}
	}
	return total, nil
}

// ProductsWithMovements returns products appearing on any document of the tenant.
func (m *MemoryStore[D, L]) ProductsWithMovements(_ context.Context, tenantID tenant.ID) ([]id.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []L
	for docID, doc := range m.docs {
		if doc.DocumentHeader().TenantID == tenantID {
			all = append(all, m.items[docID]...)
		}
	}
	return ProductIDs(all), nil
}
