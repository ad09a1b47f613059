package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"distledger/internal/core/tenant"
)

// Generator generates sequential document numbers per tenant.
// Implementations live in the infrastructure layer.
type Generator interface {
	// GetNextNumber generates the next number, e.g. RCP-202403-000001.
	GetNextNumber(ctx context.Context, tenantID tenant.ID, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the counter value (for migrating existing numbering).
	SetNextNumber(ctx context.Context, tenantID tenant.ID, cfg Config, period time.Time, value int64) error
}

// MemoryGenerator keeps counters in process memory.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryGenerator creates an empty generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (g *MemoryGenerator) GetNextNumber(_ context.Context, tenantID tenant.ID, cfg Config, _ *Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := fmt.Sprintf("%s:%s", tenantID, cfg.Key(period))
	g.counters[key]++
	return cfg.Format(period, g.counters[key]), nil
}

// SetNextNumber implements Generator.
func (g *MemoryGenerator) SetNextNumber(_ context.Context, tenantID tenant.ID, cfg Config, period time.Time, value int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counters[fmt.Sprintf("%s:%s", tenantID, cfg.Key(period))] = value
	return nil
}

var _ Generator = (*MemoryGenerator)(nil)
