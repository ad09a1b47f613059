package issue

import (
	"context"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents"
)

// Repository defines persistence for issues. Every read is tenant-scoped.
type Repository interface {
	Create(ctx context.Context, doc *Issue) error
	GetByID(ctx context.Context, tenantID tenant.ID, docID id.ID) (*Issue, error)
	GetForUpdate(ctx context.Context, tenantID tenant.ID, docID id.ID) (*Issue, error)
	Update(ctx context.Context, doc *Issue) error
	Delete(ctx context.Context, tenantID tenant.ID, docID id.ID) error

	GetItems(ctx context.Context, docID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, docID id.ID, items []Item) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Issue], error)
	SumQuantities(ctx context.Context, q domain.MovementQuery) (int64, error)
	ProductsWithMovements(ctx context.Context, tenantID tenant.ID) ([]id.ID, error)
}

// NewMemoryRepository returns an in-process Repository.
func NewMemoryRepository(products product.Reader) Repository {
	return documents.NewMemoryStore[*Issue, Item]("issue", clone, products)
}
