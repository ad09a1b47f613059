package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/stock"
	"distledger/pkg/logger"
)

// Locker serializes conversion runs per tenant.
type Locker interface {
	// Lock obtains key or fails with RESOURCE_LOCKED. The returned func releases it.
	Lock(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// NoopLocker never blocks.
type NoopLocker struct{}

// Lock implements Locker.
func (NoopLocker) Lock(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// DefaultStatusFor returns the status conversion gives new snapshots of a
// kind: closing snapshots are posted at once, opening ones start as drafts.
func DefaultStatusFor(kind Kind) entity.Status {
	if kind == KindClosing {
		return entity.StatusPosted
	}
	return entity.StatusDraft
}

// ConvertOptions controls a conversion run.
type ConvertOptions struct {
	Kind Kind
	// Date of the snapshots; zero means today (UTC).
	Date time.Time
	// Status of created snapshots; empty means DefaultStatusFor(Kind).
	Status entity.Status
	Actor  string
}

// Batch is the collapsed stock of one product.
type Batch struct {
	ProductID id.ID
	Quantity  int64
	Pricing   types.Pricing
	Records   int
}

// Collapse groups records by product into quantity totals with
// quantity-weighted pricing. Groups totalling zero or less are dropped.
// The result is ordered by product id.
func Collapse(records []*stock.Record) []Batch {
	type group struct {
		quantities []int64
		prices     []types.Pricing
		total      int64
	}
	groups := make(map[id.ID]*group)
	for _, r := range records {
		g, ok := groups[r.ProductID]
		if !ok {
			g = &group{}
			groups[r.ProductID] = g
		}
		g.quantities = append(g.quantities, r.Quantity)
		g.prices = append(g.prices, r.Pricing)
		g.total += r.Quantity
	}

	out := make([]Batch, 0, len(groups))
	for productID, g := range groups {
		if g.total <= 0 {
			continue
		}
		out = append(out, Batch{
			ProductID: productID,
			Quantity:  g.total,
			Pricing:   types.WeightedPricing(g.quantities, g.prices),
			Records:   len(g.quantities),
		})
	}
	sort.Slice(out, func(i, j int) bool { return id.Less(out[i].ProductID, out[j].ProductID) })
	return out
}

// Converter collapses the live stock of a tenant into one snapshot per product.
type Converter struct {
	stock     *stock.Service
	snapshots *Service
	locker    Locker
}

// NewConverter creates a converter. locker may be nil.
func NewConverter(stockService *stock.Service, snapshots *Service, locker Locker) *Converter {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Converter{
		stock:     stockService,
		snapshots: snapshots,
		locker:    locker,
	}
}

// ConvertFromStocks creates one snapshot per product with stock on hand and
// returns how many were created. Products already having a snapshot of the
// kind for the date are skipped.
func (c *Converter) ConvertFromStocks(ctx context.Context, tenantID tenant.ID, opts ConvertOptions) (int, error) {
	if !opts.Kind.IsValid() {
		return 0, apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}
	if opts.Status == "" {
		opts.Status = DefaultStatusFor(opts.Kind)
	}
	if !opts.Status.IsValid() {
		return 0, apperror.NewFieldValidation("status", "unknown status")
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	opts.Date = domain.TruncateDay(opts.Date)

	release, err := c.locker.Lock(ctx, fmt.Sprintf("convert:%s:%s", tenantID, opts.Kind))
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release conversion lock", "error", err)
		}
	}()

	created := 0
	skipped := 0
	err = c.snapshots.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		records, err := c.stock.ListForConversion(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("list stock: %w", err)
		}
		batches := Collapse(records)
		if len(batches) == 0 {
			return nil
		}

		ids := make([]id.ID, len(batches))
		for i, b := range batches {
			ids[i] = b.ProductID
		}
		products, err := product.RequireAll(ctx, c.snapshots.products, ids)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, b := range batches {
			snap := New(opts.Kind, tenantID, b.ProductID, opts.Date, b.Quantity)
			snap.Breakdown = types.NewBreakdown(b.Quantity, products[b.ProductID].PiecesPerPack)
			snap.Pricing = b.Pricing
			snap.CreatedBy = opts.Actor
			if opts.Status == entity.StatusPosted {
				snap.MarkPosted(opts.Actor, now)
			}

			ok, err := c.snapshots.repo.Insert(ctx, snap)
			if err != nil {
				return fmt.Errorf("insert snapshot for %s: %w", b.ProductID, err)
			}
			if !ok {
				skipped++
				continue
			}
			if err := c.snapshots.hooks.Run(ctx, domain.AfterCreate, snap); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "stock converted to snapshots",
		"tenant_id", tenantID,
		"kind", opts.Kind,
		"date", opts.Date.Format(time.DateOnly),
		"status", opts.Status,
		"created", created,
		"skipped", skipped)
	return created, nil
}
