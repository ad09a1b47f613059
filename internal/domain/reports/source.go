package reports

import (
	"context"
	"time"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/snapshot"
)

// Source provides the facts the builder reads.
type Source interface {
	// PostedSnapshotQuantity returns the quantity of the posted snapshot of
	// the kind on the day, or nil.
	PostedSnapshotQuantity(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*int64, error)

	// StockAggregate returns the live stock total.
	StockAggregate(ctx context.Context, tenantID tenant.ID, productID id.ID) (int64, error)

	ReceiptSum(ctx context.Context, q domain.MovementQuery) (int64, error)
	IssueSum(ctx context.Context, q domain.MovementQuery) (int64, error)

	// ActiveProducts lists products with any stock record, snapshot or
	// document line in the tenant.
	ActiveProducts(ctx context.Context, tenantID tenant.ID) ([]id.ID, error)
}
