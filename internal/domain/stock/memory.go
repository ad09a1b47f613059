package stock

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

// MemoryRepository is an in-process Repository. It has no transactions;
// pair it with tx.Passthrough.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  map[id.ID]Record
	products product.Reader
}

// NewMemoryRepository creates an empty store. products may be nil when
// listings never search by product name.
func NewMemoryRepository(products product.Reader) *MemoryRepository {
	return &MemoryRepository{
		records:  make(map[id.ID]Record),
		products: products,
	}
}

func (m *MemoryRepository) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return apperror.NewDuplicate("stock record", "id", rec.ID.String())
	}
	m.records[rec.ID] = *rec
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, tenantID tenant.ID, recordID id.ID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[recordID]
	if !ok || rec.TenantID != tenantID {
		return nil, apperror.NewNotFound("stock record", recordID.String())
	}
	return &rec, nil
}

func (m *MemoryRepository) GetForUpdate(ctx context.Context, tenantID tenant.ID, recordID id.ID) (*Record, error) {
	return m.GetByID(ctx, tenantID, recordID)
}

func (m *MemoryRepository) UpdateQuantity(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[rec.ID]
	if !ok || cur.TenantID != rec.TenantID {
		return apperror.NewNotFound("stock record", rec.ID.String())
	}
	if cur.Version != rec.Version {
		return apperror.NewConcurrentModification("stock record", rec.ID.String())
	}
	cur.Quantity = rec.Quantity
	cur.Version++
	cur.UpdatedAt = time.Now().UTC()
	m.records[rec.ID] = cur

	rec.Version = cur.Version
	rec.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, tenantID tenant.ID, recordID id.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordID]
	if !ok || rec.TenantID != tenantID {
		return apperror.NewNotFound("stock record", recordID.String())
	}
	delete(m.records, recordID)
	return nil
}

func (m *MemoryRepository) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error) {
	all := m.collect(filter.TenantID, func(r *Record) bool {
		if filter.ProductID != nil && r.ProductID != *filter.ProductID {
			return false
		}
		if filter.BatchNumber != "" && r.BatchNumber != filter.BatchNumber {
			return false
		}
		if filter.LowStock && r.Quantity > filter.LowStockThreshold {
			return false
		}
		return true
	})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" && m.products != nil {
		ids := make([]id.ID, 0, len(all))
		for _, r := range all {
			ids = append(ids, r.ProductID)
		}
		products, err := m.products.GetMany(ctx, ids)
		if err != nil {
			return domain.ListResult[*Record]{}, err
		}
		kept := all[:0]
		for _, r := range all {
			p, ok := products[r.ProductID]
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Code), search) {
				kept = append(kept, r)
			}
		}
		all = kept
	}

	sortRecords(all, filter.OrderBy)

	result := domain.ListResult[*Record]{
		TotalCount: int64(len(all)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Offset >= len(all) {
		result.Items = []*Record{}
		return result, nil
	}
	end := len(all)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	result.Items = all[filter.Offset:end]
	return result, nil
}

func (m *MemoryRepository) ListByProduct(_ context.Context, tenantID tenant.ID, productID id.ID) ([]*Record, error) {
	return m.collect(tenantID, func(r *Record) bool { return r.ProductID == productID }), nil
}

func (m *MemoryRepository) ListInStock(_ context.Context, tenantID tenant.ID) ([]*Record, error) {
	out := m.collect(tenantID, func(r *Record) bool { return r.Quantity > 0 })
	sortRecords(out, "created_at")
	return out, nil
}

func (m *MemoryRepository) SumQuantity(_ context.Context, tenantID tenant.ID, productID id.ID) (int64, error) {
	var total int64
	for _, r := range m.collect(tenantID, func(r *Record) bool { return r.ProductID == productID }) {
		total += r.Quantity
	}
	return total, nil
}

func (m *MemoryRepository) collect(tenantID tenant.ID, keep func(*Record) bool) []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0)
	for _, r := range m.records {
		if r.TenantID != tenantID {
			continue
		}
		rec := r
		if keep(&rec) {
			out = append(out, &rec)
		}
	}
	return out
}

func sortRecords(recs []*Record, orderBy string) {
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimPrefix(orderBy, "-")

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "quantity":
			if a.Quantity != b.Quantity {
				return a.Quantity < b.Quantity
			}
		case "batch_number":
			if a.BatchNumber != b.BatchNumber {
				return a.BatchNumber < b.BatchNumber
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return id.Less(a.ID, b.ID)
	})
}

var _ Repository = (*MemoryRepository)(nil)
