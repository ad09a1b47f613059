package product

import (
	"context"
	"sync"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
)

// MemoryReader is an in-memory Reader, used by the CLI seed path and tests.
type MemoryReader struct {
	mu       sync.RWMutex
	products map[id.ID]*Product
}

// NewMemoryReader creates a reader preloaded with products.
func NewMemoryReader(products ...*Product) *MemoryReader {
	r := &MemoryReader{products: make(map[id.ID]*Product, len(products))}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Put adds or replaces a product.
func (r *MemoryReader) Put(p *Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *MemoryReader) GetByID(_ context.Context, productID id.ID) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryReader) GetMany(_ context.Context, productIDs []id.ID) (map[id.ID]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[id.ID]*Product, len(productIDs))
	for _, pid := range productIDs {
		if p, ok := r.products[pid]; ok {
			cp := *p
			out[pid] = &cp
		}
	}
	return out, nil
}

var _ Reader = (*MemoryReader)(nil)
