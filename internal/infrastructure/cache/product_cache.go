package cache

import (
	"context"
	"time"

	"distledger/internal/core/id"
	"distledger/internal/domain/catalogs/product"
	"distledger/pkg/logger"
)

// DefaultProductTTL bounds staleness when no invalidation arrives.
const DefaultProductTTL = 10 * time.Minute

// ProductKey is the cache key of one product.
func ProductKey(productID id.ID) string {
	return "distledger:product:" + productID.String()
}

// CachedReader is a read-through product.Reader.
// Cache failures are logged and fall through to the inner reader.
type CachedReader struct {
	inner product.Reader
	store Store
	ttl   time.Duration
}

var _ product.Reader = (*CachedReader)(nil)

// NewCachedReader wraps inner. ttl <= 0 selects DefaultProductTTL.
func NewCachedReader(inner product.Reader, store Store, ttl time.Duration) *CachedReader {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &CachedReader{inner: inner, store: store, ttl: ttl}
}

func (c *CachedReader) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var p product.Product
	hit, err := c.store.Get(ctx, ProductKey(productID), &p)
	if err != nil {
		logger.Warn(ctx, "product cache read failed", "product_id", productID, "error", err)
	}
	if hit {
		return &p, nil
	}

	loaded, err := c.inner.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, loaded)
	return loaded, nil
}

func (c *CachedReader) GetMany(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(productIDs))
	var missing []id.ID
	for _, pid := range productIDs {
		if _, seen := out[pid]; seen {
			continue
		}
		var p product.Product
		hit, err := c.store.Get(ctx, ProductKey(pid), &p)
		if err != nil {
			logger.Warn(ctx, "product cache read failed", "product_id", pid, "error", err)
		}
		if hit {
			out[pid] = &p
			continue
		}
		missing = append(missing, pid)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.inner.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for pid, p := range loaded {
		out[pid] = p
		c.put(ctx, p)
	}
	logger.Debug(ctx, "product cache fill", "hits", len(out)-len(loaded), "loaded", len(loaded))
	return out, nil
}

// Invalidate drops the given products from the cache.
func (c *CachedReader) Invalidate(ctx context.Context, productIDs ...id.ID) error {
	keys := make([]string, len(productIDs))
	for i, pid := range productIDs {
		keys[i] = ProductKey(pid)
	}
	return c.store.Delete(ctx, keys...)
}

func (c *CachedReader) put(ctx context.Context, p *product.Product) {
	if err := c.store.Set(ctx, ProductKey(p.ID), p, c.ttl); err != nil {
		logger.Warn(ctx, "product cache write failed", "product_id", p.ID, "error", err)
	}
}
