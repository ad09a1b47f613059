package tenant

import (
	"context"
	"sort"
	"sync"
	"time"

	"distledger/internal/core/id"
)

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	items map[ID]Distribution
}

// NewMemoryRegistry creates a registry preloaded with distributions.
func NewMemoryRegistry(ds ...*Distribution) *MemoryRegistry {
	r := &MemoryRegistry{items: make(map[ID]Distribution, len(ds))}
	for _, d := range ds {
		r.items[d.ID] = *d
	}
	return r
}

func (r *MemoryRegistry) GetByID(_ context.Context, tenantID ID) (*Distribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &d, nil
}

func (r *MemoryRegistry) ListActive(ctx context.Context) ([]*Distribution, error) {
	all, _ := r.ListAll(ctx)
	out := all[:0]
	for _, d := range all {
		if d.IsActive() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *MemoryRegistry) ListAll(_ context.Context) ([]*Distribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Distribution, 0, len(r.items))
	for _, d := range r.items {
		cp := d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryRegistry) Create(_ context.Context, in CreateInput) (*Distribution, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	d := Distribution{
		ID:        id.New(),
		Code:      in.Code,
		Name:      in.Name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[d.ID] = d
	return &d, nil
}

func (r *MemoryRegistry) UpdateStatus(_ context.Context, tenantID ID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[tenantID]
	if !ok {
		return ErrTenantNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	r.items[tenantID] = d
	return nil
}

var _ Registry = (*MemoryRegistry)(nil)
