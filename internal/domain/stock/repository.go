package stock

import (
	"context"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
)

// DefaultLowStockThreshold is used when a low-stock listing gives no threshold.
const DefaultLowStockThreshold int64 = 10

// Repository persists stock records. Every method is tenant-scoped.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, tenantID tenant.ID, recordID id.ID) (*Record, error)

	// GetForUpdate loads the record and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, tenantID tenant.ID, recordID id.ID) (*Record, error)

	// UpdateQuantity writes rec.Quantity guarded by rec.Version.
	UpdateQuantity(ctx context.Context, rec *Record) error

	Delete(ctx context.Context, tenantID tenant.ID, recordID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error)

	// ListByProduct returns every record of a product, in no particular order.
	ListByProduct(ctx context.Context, tenantID tenant.ID, productID id.ID) ([]*Record, error)

	// ListInStock returns every record with quantity > 0.
	ListInStock(ctx context.Context, tenantID tenant.ID) ([]*Record, error)

	// SumQuantity returns the current Store total for a product.
	SumQuantity(ctx context.Context, tenantID tenant.ID, productID id.ID) (int64, error)
}

// ListFilter for stock listings.
type ListFilter struct {
	TenantID tenant.ID

	// Search matches product name or code
	Search      string
	ProductID   *id.ID
	BatchNumber string

	// LowStock keeps rows with quantity <= LowStockThreshold
	LowStock          bool
	LowStockThreshold int64

	OrderBy string
	Limit   int
	Offset  int
}

// Validate normalizes the filter.
func (f *ListFilter) Validate() error {
	if id.IsNil(f.TenantID) {
		return apperror.NewFieldValidation("tenantId", "tenant is required")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return apperror.NewValidation("limit and offset must not be negative")
	}
	if f.Limit == 0 || f.Limit > domain.MaxListLimit {
		f.Limit = domain.MaxListLimit
	}
	if f.LowStock && f.LowStockThreshold <= 0 {
		f.LowStockThreshold = DefaultLowStockThreshold
	}
	return nil
}
