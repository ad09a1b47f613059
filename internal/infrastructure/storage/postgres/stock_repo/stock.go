// Package stock_repo provides the PostgreSQL stock record store.
package stock_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/stock"
	"distledger/internal/infrastructure/storage/postgres"
)

const (
	stockTable = "stock_records"
	entityName = "stock record"
)

var columns = postgres.ExtractDBColumns[stock.Record]()

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StockRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *StockRepo) Create(ctx context.Context, rec *stock.Record) error {
	data := postgres.StructToMap(rec)
	sql, args, err := r.builder.Insert(stockTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("product", rec.ProductID.String()).WithCause(err)
		}
		return fmt.Errorf("insert stock record: %w", err)
	}
	return nil
}

func (r *StockRepo) selectRecords(tenantID tenant.ID) squirrel.SelectBuilder {
	return r.builder.Select(columns...).From(stockTable).Where(squirrel.Eq{"tenant_id": tenantID})
}

func (r *StockRepo) get(ctx context.Context, q squirrel.SelectBuilder, recordID id.ID) (*stock.Record, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rec stock.Record
	if err := pgxscan.Get(ctx, r.querier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(entityName, recordID.String())
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return &rec, nil
}

func (r *StockRepo) GetByID(ctx context.Context, tenantID tenant.ID, recordID id.ID) (*stock.Record, error) {
	return r.get(ctx, r.selectRecords(tenantID).Where(squirrel.Eq{"id": recordID}), recordID)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *StockRepo) GetForUpdate(ctx context.Context, tenantID tenant.ID, recordID id.ID) (*stock.Record, error) {
	q := r.selectRecords(tenantID).Where(squirrel.Eq{"id": recordID}).Suffix("FOR UPDATE")
	return r.get(ctx, q, recordID)
}

// UpdateQuantity writes the quantity if the version still matches.
func (r *StockRepo) UpdateQuantity(ctx context.Context, rec *stock.Record) error {
	sql, args, err := r.updateQuantityQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(entityName, rec.ID.String())
	}
	rec.Touch()
	return nil
}

func (r *StockRepo) updateQuantityQuery(rec *stock.Record) squirrel.UpdateBuilder {
	return r.builder.Update(stockTable).
		Set("quantity", rec.Quantity).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": rec.ID, "tenant_id": rec.TenantID, "version": rec.Version})
}

func (r *StockRepo) Delete(ctx context.Context, tenantID tenant.ID, recordID id.ID) error {
	sql, args, err := r.builder.Delete(stockTable).
		Where(squirrel.Eq{"id": recordID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete stock record: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound(entityName, recordID.String())
	}
	return nil
}

func (r *StockRepo) List(ctx context.Context, filter stock.ListFilter) (domain.ListResult[*stock.Record], error) {
	result := domain.ListResult[*stock.Record]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.listQuery(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count stock records: %w", err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "created_at", "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	result.Items, err = r.selectMany(ctx, q)
	return result, err
}

func (r *StockRepo) listQuery(filter stock.ListFilter) squirrel.SelectBuilder {
	q := r.selectRecords(filter.TenantID)
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.BatchNumber != "" {
		q = q.Where(squirrel.Eq{"batch_number": filter.BatchNumber})
	}
	if filter.LowStock {
		q = q.Where(squirrel.LtOrEq{"quantity": filter.LowStockThreshold})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where("product_id IN (SELECT id FROM products WHERE name ILIKE ? OR code ILIKE ?)", pattern, pattern)
	}
	return q
}

var orderColumns = map[string]bool{
	"quantity": true, "batch_number": true, "expiry_date": true, "created_at": true,
}

func parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return "created_at ASC", nil
	}
	direction, field := "ASC", orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction, field = "DESC", orderBy[1:]
	}
	if !orderColumns[field] {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return field + " " + direction, nil
}

func (r *StockRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]*stock.Record, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := make([]*stock.Record, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	return out, nil
}

func (r *StockRepo) ListByProduct(ctx context.Context, tenantID tenant.ID, productID id.ID) ([]*stock.Record, error) {
	return r.selectMany(ctx, r.selectRecords(tenantID).Where(squirrel.Eq{"product_id": productID}))
}

func (r *StockRepo) ListInStock(ctx context.Context, tenantID tenant.ID) ([]*stock.Record, error) {
	q := r.selectRecords(tenantID).Where(squirrel.Gt{"quantity": 0}).OrderBy("created_at", "id")
	return r.selectMany(ctx, q)
}

func (r *StockRepo) SumQuantity(ctx context.Context, tenantID tenant.ID, productID id.ID) (int64, error) {
	sql, args, err := r.sumQuery(tenantID, productID).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sum: %w", err)
	}
	var total int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum stock: %w", err)
	}
	return total, nil
}

func (r *StockRepo) sumQuery(tenantID tenant.ID, productID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("COALESCE(SUM(quantity), 0)").
		From(stockTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "product_id": productID})
}
