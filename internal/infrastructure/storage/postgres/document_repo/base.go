// Package document_repo provides PostgreSQL repositories for receipts and
// issues. Both share one generic implementation over a header table and an
// item table.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/documents"
	"distledger/internal/infrastructure/storage/postgres"
)

// Tables names the storage of one document type.
type Tables struct {
	Entity string
	Header string
	Items  string
}

// Repo implements the receipt and issue repositories.
type Repo[D documents.Header, L documents.Line] struct {
	txManager  *postgres.TxManager
	inserter   *postgres.BatchInserter
	builder    squirrel.StatementBuilderType
	tables     Tables
	headerCols []string
	itemCols   []string
	newFn      func() D
}

// New creates a document repository. Header and item columns are read from
// the db tags of the header and line types.
func New[H any, D documents.Header, L documents.Line](txManager *postgres.TxManager, tables Tables, newFn func() D) *Repo[D, L] {
	return &Repo[D, L]{
		txManager:  txManager,
		inserter:   postgres.NewBatchInserter(txManager),
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		tables:     tables,
		headerCols: postgres.ExtractDBColumns[H](),
		itemCols:   postgres.ExtractDBColumns[L](),
		newFn:      newFn,
	}
}

func (r *Repo[D, L]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts the header. Items are written by SaveItems.
func (r *Repo[D, L]) Create(ctx context.Context, doc D) error {
	sql, args, err := r.insertQuery(doc).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(r.tables.Entity, "number", doc.DocumentHeader().Number).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.tables.Header, err)
	}
	return nil
}

func (r *Repo[D, L]) insertQuery(doc D) squirrel.InsertBuilder {
	data := postgres.StructToMap(doc)
	values := make(map[string]any, len(r.headerCols))
	for _, col := range r.headerCols {
		if v, ok := data[col]; ok {
			values[col] = v
		}
	}
	return r.builder.Insert(r.tables.Header).SetMap(values)
}

func (r *Repo[D, L]) selectHeader(tenantID tenant.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(r.headerCols...).
		From(r.tables.Header).
		Where(squirrel.Eq{"tenant_id": tenantID})
}

func (r *Repo[D, L]) get(ctx context.Context, q squirrel.SelectBuilder, docID id.ID) (D, error) {
	doc := r.newFn()
	sql, args, err := q.ToSql()
	if err != nil {
		return doc, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), doc, sql, args...); err != nil {
		var zero D
		if pgxscan.NotFound(err) {
			return zero, apperror.NewNotFound(r.tables.Entity, docID.String())
		}
		return zero, fmt.Errorf("get %s: %w", r.tables.Entity, err)
	}
	return doc, nil
}

// GetByID loads a header without items.
func (r *Repo[D, L]) GetByID(ctx context.Context, tenantID tenant.ID, docID id.ID) (D, error) {
	return r.get(ctx, r.selectHeader(tenantID).Where(squirrel.Eq{"id": docID}), docID)
}

// GetForUpdate loads the header and locks the row.
func (r *Repo[D, L]) GetForUpdate(ctx context.Context, tenantID tenant.ID, docID id.ID) (D, error) {
	q := r.selectHeader(tenantID).Where(squirrel.Eq{"id": docID}).Suffix("FOR UPDATE")
	return r.get(ctx, q, docID)
}

// Update writes the header guarded by its version and bumps the version on
// the passed document.
func (r *Repo[D, L]) Update(ctx context.Context, doc D) error {
	h := doc.DocumentHeader()
	sql, args, err := r.updateQuery(doc).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(r.tables.Entity, "number", h.Number).WithCause(err)
		}
		return fmt.Errorf("update %s: %w", r.tables.Header, err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tables.Entity, h.ID.String())
	}
	h.Touch()
	return nil
}

var immutableColumns = map[string]bool{
	"id": true, "tenant_id": true, "created_at": true, "created_by": true,
	"version": true, "updated_at": true,
}

func (r *Repo[D, L]) updateQuery(doc D) squirrel.UpdateBuilder {
	h := doc.DocumentHeader()
	data := postgres.StructToMap(doc)

	values := make(map[string]any, len(r.headerCols))
	for _, col := range r.headerCols {
		if immutableColumns[col] {
			continue
		}
		if v, ok := data[col]; ok {
			values[col] = v
		}
	}

	return r.builder.
		Update(r.tables.Header).
		SetMap(values).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": h.ID, "tenant_id": h.TenantID, "version": h.Version})
}

// Delete removes a header; items go with it (ON DELETE CASCADE).
func (r *Repo[D, L]) Delete(ctx context.Context, tenantID tenant.ID, docID id.ID) error {
	sql, args, err := r.builder.
		Delete(r.tables.Header).
		Where(squirrel.Eq{"id": docID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tables.Header, err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tables.Entity, docID.String())
	}
	return nil
}

// GetItems returns the lines of a document ordered by line number.
func (r *Repo[D, L]) GetItems(ctx context.Context, docID id.ID) ([]L, error) {
	sql, args, err := r.builder.
		Select(r.itemCols...).
		From(r.tables.Items).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []L
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s items: %w", r.tables.Entity, err)
	}
	return items, nil
}

// SaveItems replaces the item set of a document.
func (r *Repo[D, L]) SaveItems(ctx context.Context, docID id.ID, items []L) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.
			Delete(r.tables.Items).
			Where(squirrel.Eq{"document_id": docID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete items: %w", err)
		}
		if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("delete %s items: %w", r.tables.Entity, err)
		}

		rows := make([][]any, 0, len(items))
		for _, it := range items {
			rows = append(rows, r.itemRow(docID, it))
		}
		if _, err := r.inserter.CopyFromSlice(ctx, r.tables.Items, r.itemCols, rows); err != nil {
			return fmt.Errorf("copy %s items: %w", r.tables.Entity, err)
		}
		return nil
	})
}

// itemRow lays out an item in itemCols order. document_id always comes from
// docID and a missing line_id is generated.
func (r *Repo[D, L]) itemRow(docID id.ID, item L) []any {
	data := postgres.StructToMap(item)
	row := make([]any, len(r.itemCols))
	for i, col := range r.itemCols {
		switch col {
		case "document_id":
			row[i] = docID
		case "line_id":
			lineID, _ := data[col].(id.ID)
			if id.IsNil(lineID) {
				lineID = id.New()
			}
			row[i] = lineID
		default:
			row[i] = data[col]
		}
	}
	return row
}

// List returns a page of headers.
func (r *Repo[D, L]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error) {
	result := domain.ListResult[D]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.listQuery(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tables.Entity, err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	result.Items = make([]D, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tables.Entity, err)
	}
	return result, nil
}

func (r *Repo[D, L]) listQuery(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.selectHeader(filter.TenantID)

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": domain.TruncateDay(*filter.DateFrom)})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": domain.TruncateDay(*filter.DateTo)})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.Expr(fmt.Sprintf(
				"EXISTS (SELECT 1 FROM %s i JOIN products p ON p.id = i.product_id"+
					" WHERE i.document_id = %s.id AND (p.name ILIKE ? OR p.code ILIKE ?))",
				r.tables.Items, r.tables.Header), pattern, pattern),
		})
	}
	return q
}

var orderColumns = map[string]bool{
	"date": true, "number": true, "created_at": true, "updated_at": true, "status": true,
}

func parseOrderBy(orderBy string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = orderBy[1:]
	} else {
		field = strings.TrimPrefix(orderBy, "+")
	}

	if !orderColumns[field] {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return field + " " + direction, nil
}

// SumQuantities sums line quantities of q.ProductID over the selected documents.
func (r *Repo[D, L]) SumQuantities(ctx context.Context, q domain.MovementQuery) (int64, error) {
	sql, args, err := r.sumQuery(q).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sum: %w", err)
	}
	var total int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum %s quantities: %w", r.tables.Entity, err)
	}
	return total, nil
}

func (r *Repo[D, L]) sumQuery(q domain.MovementQuery) squirrel.SelectBuilder {
	return MovementSum(r.builder, r.tables, q)
}

// MovementSum builds the line quantity sum of one document type for q.
func MovementSum(b squirrel.StatementBuilderType, t Tables, q domain.MovementQuery) squirrel.SelectBuilder {
	sb := b.Select("COALESCE(SUM(i.quantity), 0)").
		From(t.Items + " i").
		Join(t.Header + " d ON d.id = i.document_id").
		Where(squirrel.Eq{"d.tenant_id": q.TenantID, "i.product_id": q.ProductID}).
		Where(squirrel.GtOrEq{"d.date": domain.TruncateDay(q.From)})
	if q.To != nil {
		sb = sb.Where(squirrel.LtOrEq{"d.date": domain.TruncateDay(*q.To)})
	}
	if q.Status != domain.MovementAll {
		sb = sb.Where(squirrel.Eq{"d.status": string(entity.StatusPosted)})
	}
	return sb
}

// ProductsWithMovements lists distinct products on the tenant's documents.
func (r *Repo[D, L]) ProductsWithMovements(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	sql, args, err := r.builder.
		Select("DISTINCT i.product_id").
		From(r.tables.Items + " i").
		Join(r.tables.Header + " d ON d.id = i.document_id").
		Where(squirrel.Eq{"d.tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s products: %w", r.tables.Entity, err)
	}
	return ids, nil
}
