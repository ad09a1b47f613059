package reports

import (
	"context"
	"time"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
)

// ServiceSource answers Source through the domain services. It serves the
// in-memory wiring; the Postgres deployment uses report_repo instead.
type ServiceSource struct {
	stock     *stock.Service
	receipts  *receipt.Service
	issues    *issue.Service
	snapshots *snapshot.Service
}

// NewServiceSource creates a Source over the given services.
func NewServiceSource(
	stockService *stock.Service,
	receipts *receipt.Service,
	issues *issue.Service,
	snapshots *snapshot.Service,
) *ServiceSource {
	return &ServiceSource{stock: stockService, receipts: receipts, issues: issues, snapshots: snapshots}
}

func (s *ServiceSource) PostedSnapshotQuantity(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*int64, error) {
	snap, err := s.snapshots.FindPosted(ctx, kind, tenantID, productID, date)
	if err != nil || snap == nil {
		return nil, err
	}
	q := snap.Quantity
	return &q, nil
}

func (s *ServiceSource) StockAggregate(ctx context.Context, tenantID tenant.ID, productID id.ID) (int64, error) {
	return s.stock.Aggregate(ctx, tenantID, productID)
}

func (s *ServiceSource) ReceiptSum(ctx context.Context, q domain.MovementQuery) (int64, error) {
	return s.receipts.SumQuantities(ctx, q)
}

func (s *ServiceSource) IssueSum(ctx context.Context, q domain.MovementQuery) (int64, error) {
	return s.issues.SumQuantities(ctx, q)
}

func (s *ServiceSource) ActiveProducts(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	// empty records add nothing a zero row would show
	records, err := s.stock.ListForConversion(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	seen := make(map[id.ID]struct{})
	var out []id.ID
	add := func(ids ...id.ID) {
		for _, pid := range ids {
			if _, ok := seen[pid]; !ok {
				seen[pid] = struct{}{}
				out = append(out, pid)
			}
		}
	}
	for _, r := range records {
		add(r.ProductID)
	}
	for _, list := range []func(context.Context, tenant.ID) ([]id.ID, error){
		s.snapshots.ProductsWithSnapshots,
		s.receipts.ProductsWithMovements,
		s.issues.ProductsWithMovements,
	} {
		ids, err := list(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		add(ids...)
	}
	return out, nil
}

var _ Source = (*ServiceSource)(nil)
