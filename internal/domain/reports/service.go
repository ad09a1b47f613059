package reports

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/snapshot"
	"distledger/pkg/logger"
)

// Directory resolves tenant names for report rows.
type Directory interface {
	GetByID(ctx context.Context, tenantID tenant.ID) (*tenant.Distribution, error)
}

// Service builds reconciliation reports.
type Service struct {
	source   Source
	products product.Reader
	tenants  Directory
	tracer   trace.Tracer
}

// NewService creates a new reports service. tenants may be nil, leaving
// tenant names empty.
func NewService(source Source, products product.Reader, tenants Directory) *Service {
	return &Service{
		source:   source,
		products: products,
		tenants:  tenants,
		tracer:   otel.Tracer("distledger/reports"),
	}
}

// Build returns one row per product with activity, sorted by product code.
// Rows with nothing to show are left out.
func (s *Service) Build(ctx context.Context, q ReconciliationQuery) (rows []Row, err error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "reports.Build", trace.WithAttributes(
		attribute.String("tenant_id", q.TenantID.String()),
		attribute.String("month", q.Month.String()),
		attribute.String("movement_status", string(q.MovementStatus)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("rows", len(rows)))
		}
		span.End()
	}()

	productIDs := q.ProductIDs
	if len(productIDs) == 0 {
		productIDs, err = s.source.ActiveProducts(ctx, q.TenantID)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
	}

	products, err := s.products.GetMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	tenantName := ""
	if s.tenants != nil {
		d, err := s.tenants.GetByID(ctx, q.TenantID)
		if err != nil {
			return nil, err
		}
		tenantName = d.Name
	}

	rows = make([]Row, 0, len(productIDs))
	for _, pid := range productIDs {
		in, err := s.gather(ctx, q, pid)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", pid, err)
		}

		row := Derive(in)
		if row.IsZero() {
			continue
		}

		row.ProductID = pid
		row.TenantName = tenantName
		if p, ok := products[pid]; ok {
			row.ProductName = p.Name
			row.ProductCode = p.Code
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductCode != rows[j].ProductCode {
			return rows[i].ProductCode < rows[j].ProductCode
		}
		return id.Less(rows[i].ProductID, rows[j].ProductID)
	})

	logger.Debug(ctx, "reconciliation built",
		"tenant_id", q.TenantID,
		"month", q.Month.String(),
		"products", len(productIDs),
		"rows", len(rows))
	return rows, nil
}

// gather loads the inputs for one product. Tiers that cannot fire are not loaded.
func (s *Service) gather(ctx context.Context, q ReconciliationQuery, productID id.ID) (Inputs, error) {
	in := Inputs{Month: q.Month, Now: q.Now}
	start, end := q.Month.Start(), q.Month.End()
	current := q.Month == domain.MonthOf(q.Now)

	var err error
	in.OpeningAtStart, err = s.source.PostedSnapshotQuantity(ctx, snapshot.KindOpening, q.TenantID, productID, start)
	if err != nil {
		return in, fmt.Errorf("opening snapshot: %w", err)
	}
	if in.OpeningAtStart == nil {
		in.ClosingBeforeStart, err = s.source.PostedSnapshotQuantity(ctx, snapshot.KindClosing, q.TenantID, productID, q.Month.Prev().End())
		if err != nil {
			return in, fmt.Errorf("prior closing snapshot: %w", err)
		}
	}

	in.ClosingAtEnd, err = s.source.PostedSnapshotQuantity(ctx, snapshot.KindClosing, q.TenantID, productID, end)
	if err != nil {
		return in, fmt.Errorf("closing snapshot: %w", err)
	}

	derived := in.OpeningAtStart == nil && in.ClosingBeforeStart == nil
	if derived || (current && in.ClosingAtEnd == nil) {
		in.Aggregate, err = s.source.StockAggregate(ctx, q.TenantID, productID)
		if err != nil {
			return in, fmt.Errorf("stock aggregate: %w", err)
		}
	}

	movement := domain.MovementQuery{
		TenantID:  q.TenantID,
		ProductID: productID,
		From:      start,
		Status:    q.MovementStatus,
	}
	if derived {
		if in.ReceiptsSinceStart, err = s.source.ReceiptSum(ctx, movement); err != nil {
			return in, fmt.Errorf("receipts since start: %w", err)
		}
		if in.IssuesSinceStart, err = s.source.IssueSum(ctx, movement); err != nil {
			return in, fmt.Errorf("issues since start: %w", err)
		}
	}

	movement.To = &end
	if in.In, err = s.source.ReceiptSum(ctx, movement); err != nil {
		return in, fmt.Errorf("receipts: %w", err)
	}
	if in.Out, err = s.source.IssueSum(ctx, movement); err != nil {
		return in, fmt.Errorf("issues: %w", err)
	}

	return in, nil
}
