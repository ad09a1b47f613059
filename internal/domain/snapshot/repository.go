package snapshot

import (
	"context"
	"time"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
)

// Repository persists snapshots. Opening and closing snapshots are stored
// apart; every method takes the kind.
type Repository interface {
	// Insert stores snap unless a snapshot of the same kind already exists for
	// (tenant, product, date). It reports whether a row was written.
	Insert(ctx context.Context, snap *Snapshot) (bool, error)

	GetByID(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) (*Snapshot, error)
	GetForUpdate(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) (*Snapshot, error)

	// Update writes snap guarded by snap.Version. Moving it onto an occupied
	// date fails with DUPLICATE_ENTRY.
	Update(ctx context.Context, snap *Snapshot) error

	Delete(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Snapshot], error)

	// FindPosted returns the posted snapshot for the day, or nil.
	FindPosted(ctx context.Context, kind Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*Snapshot, error)

	// ProductsWithSnapshots lists products having a snapshot of either kind.
	ProductsWithSnapshots(ctx context.Context, tenantID tenant.ID) ([]id.ID, error)
}
