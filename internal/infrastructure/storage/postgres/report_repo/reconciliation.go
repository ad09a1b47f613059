// Package report_repo reads the facts behind the reconciliation report
// straight from the ledger tables.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/reports"
	"distledger/internal/domain/snapshot"
	"distledger/internal/infrastructure/storage/postgres"
	"distledger/internal/infrastructure/storage/postgres/document_repo"
)

var snapshotTables = map[snapshot.Kind]string{
	snapshot.KindOpening: "snapshots_opening",
	snapshot.KindClosing: "snapshots_closing",
}

// ReportRepo implements reports.Source.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reports.Source = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ReportRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *ReportRepo) scalar(ctx context.Context, q squirrel.SelectBuilder, dst any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return r.querier(ctx).QueryRow(ctx, sql, args...).Scan(dst)
}

func (r *ReportRepo) PostedSnapshotQuantity(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*int64, error) {
	var qty *int64
	if err := r.scalar(ctx, r.snapshotQuery(kind, tenantID, productID, date), &qty); err != nil {
		return nil, fmt.Errorf("%s snapshot quantity: %w", kind, err)
	}
	return qty, nil
}

// snapshotQuery yields one row; MAX makes "no snapshot" a NULL instead of no row.
func (r *ReportRepo) snapshotQuery(kind snapshot.Kind, tenantID tenant.ID, productID id.ID, date time.Time) squirrel.SelectBuilder {
	return r.builder.Select("MAX(quantity)").
		From(snapshotTables[kind]).
		Where(squirrel.Eq{
			"tenant_id":  tenantID,
			"product_id": productID,
			"date":       domain.TruncateDay(date),
			"status":     string(entity.StatusPosted),
		})
}

func (r *ReportRepo) StockAggregate(ctx context.Context, tenantID tenant.ID, productID id.ID) (int64, error) {
	var total int64
	q := r.builder.Select("COALESCE(SUM(quantity), 0)").
		From("stock_records").
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID})
	if err := r.scalar(ctx, q, &total); err != nil {
		return 0, fmt.Errorf("stock aggregate: %w", err)
	}
	return total, nil
}

func (r *ReportRepo) ReceiptSum(ctx context.Context, q domain.MovementQuery) (int64, error) {
	return r.movementSum(ctx, document_repo.ReceiptTables, q)
}

func (r *ReportRepo) IssueSum(ctx context.Context, q domain.MovementQuery) (int64, error) {
	return r.movementSum(ctx, document_repo.IssueTables, q)
}

func (r *ReportRepo) movementSum(ctx context.Context, t document_repo.Tables, q domain.MovementQuery) (int64, error) {
	var total int64
	if err := r.scalar(ctx, document_repo.MovementSum(r.builder, t, q), &total); err != nil {
		return 0, fmt.Errorf("%s sum: %w", t.Entity, err)
	}
	return total, nil
}

// activeProductsSQL unions every table a product can appear in for a tenant.
const activeProductsSQL = `
	SELECT product_id FROM stock_records WHERE tenant_id = $1
	UNION SELECT product_id FROM snapshots_opening WHERE tenant_id = $1
	UNION SELECT product_id FROM snapshots_closing WHERE tenant_id = $1
	UNION SELECT i.product_id FROM doc_receipt_items i JOIN doc_receipts d ON d.id = i.document_id WHERE d.tenant_id = $1
	UNION SELECT i.product_id FROM doc_issue_items i JOIN doc_issues d ON d.id = i.document_id WHERE d.tenant_id = $1
`

func (r *ReportRepo) ActiveProducts(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	var ids []id.ID
	if err := pgxscan.Select(ctx, r.querier(ctx), &ids, activeProductsSQL, tenantID); err != nil {
		return nil, fmt.Errorf("active products: %w", err)
	}
	return ids, nil
}
