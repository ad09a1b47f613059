package receipt

import (
	"context"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents"
)

// Repository defines persistence for receipts. Every read is tenant-scoped.
type Repository interface {
	Create(ctx context.Context, doc *Receipt) error
	GetByID(ctx context.Context, tenantID tenant.ID, docID id.ID) (*Receipt, error)

	// GetForUpdate loads and locks the header until the transaction ends.
	GetForUpdate(ctx context.Context, tenantID tenant.ID, docID id.ID) (*Receipt, error)

	// Update writes the header guarded by doc.Version and bumps it.
	Update(ctx context.Context, doc *Receipt) error
	Delete(ctx context.Context, tenantID tenant.ID, docID id.ID) error

	GetItems(ctx context.Context, docID id.ID) ([]Item, error)
	// SaveItems replaces the item set (delete-all-then-insert).
	SaveItems(ctx context.Context, docID id.ID, items []Item) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error)

	// SumQuantities sums item quantities for the movement query.
	SumQuantities(ctx context.Context, q domain.MovementQuery) (int64, error)

	// ProductsWithMovements lists products on any receipt of the tenant.
	ProductsWithMovements(ctx context.Context, tenantID tenant.ID) ([]id.ID, error)
}

// NewMemoryRepository returns an in-process Repository.
func NewMemoryRepository(products product.Reader) Repository {
	return documents.NewMemoryStore[*Receipt, Item]("receipt", clone, products)
}
