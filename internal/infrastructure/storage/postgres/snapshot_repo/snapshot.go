// Package snapshot_repo provides PostgreSQL storage for opening and closing
// snapshots. Each kind has its own table with a unique key on
// (tenant_id, product_id, date).
package snapshot_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/snapshot"
	"distledger/internal/infrastructure/storage/postgres"
)

var tables = map[snapshot.Kind]string{
	snapshot.KindOpening: "snapshots_opening",
	snapshot.KindClosing: "snapshots_closing",
}

var columns = postgres.ExtractDBColumns[snapshot.Snapshot]()

// SnapshotRepo implements snapshot.Repository.
type SnapshotRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ snapshot.Repository = (*SnapshotRepo)(nil)

// NewSnapshotRepo creates a new snapshot repository.
func NewSnapshotRepo(txManager *postgres.TxManager) *SnapshotRepo {
	return &SnapshotRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *SnapshotRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func tableFor(kind snapshot.Kind) (string, error) {
	t, ok := tables[kind]
	if !ok {
		return "", apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}
	return t, nil
}

// Insert writes snap or does nothing when the (tenant, product, date) slot
// of its kind is taken.
func (r *SnapshotRepo) Insert(ctx context.Context, snap *snapshot.Snapshot) (bool, error) {
	q, err := r.insertQuery(snap)
	if err != nil {
		return false, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", snap.Kind, err)
	}
	return res.RowsAffected() == 1, nil
}

func (r *SnapshotRepo) insertQuery(snap *snapshot.Snapshot) (squirrel.InsertBuilder, error) {
	table, err := tableFor(snap.Kind)
	if err != nil {
		return squirrel.InsertBuilder{}, err
	}
	return r.builder.Insert(table).
		SetMap(postgres.StructToMap(snap)).
		Suffix("ON CONFLICT (tenant_id, product_id, date) DO NOTHING"), nil
}

func (r *SnapshotRepo) get(ctx context.Context, kind snapshot.Kind, q squirrel.SelectBuilder, snapshotID id.ID) (*snapshot.Snapshot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var s snapshot.Snapshot
	if err := pgxscan.Get(ctx, r.querier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(string(kind)+" snapshot", snapshotID.String())
		}
		return nil, fmt.Errorf("get %s snapshot: %w", kind, err)
	}
	s.Kind = kind
	return &s, nil
}

func (r *SnapshotRepo) selectByID(kind snapshot.Kind, tenantID tenant.ID, snapshotID id.ID) (squirrel.SelectBuilder, error) {
	table, err := tableFor(kind)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.builder.Select(columns...).From(table).
		Where(squirrel.Eq{"id": snapshotID, "tenant_id": tenantID}), nil
}

func (r *SnapshotRepo) GetByID(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, snapshotID id.ID) (*snapshot.Snapshot, error) {
	q, err := r.selectByID(kind, tenantID, snapshotID)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, kind, q, snapshotID)
}

func (r *SnapshotRepo) GetForUpdate(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, snapshotID id.ID) (*snapshot.Snapshot, error) {
	q, err := r.selectByID(kind, tenantID, snapshotID)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, kind, q.Suffix("FOR UPDATE"), snapshotID)
}

// Update writes snap guarded by its version.
func (r *SnapshotRepo) Update(ctx context.Context, snap *snapshot.Snapshot) error {
	q, err := r.updateQuery(snap)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return snapshot.DuplicateError(snap)
		}
		return fmt.Errorf("update %s snapshot: %w", snap.Kind, err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(string(snap.Kind)+" snapshot", snap.ID.String())
	}
	snap.Touch()
	return nil
}

func (r *SnapshotRepo) updateQuery(snap *snapshot.Snapshot) (squirrel.UpdateBuilder, error) {
	table, err := tableFor(snap.Kind)
	if err != nil {
		return squirrel.UpdateBuilder{}, err
	}
	data := postgres.StructToMap(snap)
	for _, col := range []string{"id", "tenant_id", "created_at", "created_by", "version", "updated_at"} {
		delete(data, col)
	}
	return r.builder.Update(table).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": snap.ID, "tenant_id": snap.TenantID, "version": snap.Version}), nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, snapshotID id.ID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	sql, args, err := r.builder.Delete(table).
		Where(squirrel.Eq{"id": snapshotID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s snapshot: %w", kind, err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound(string(kind)+" snapshot", snapshotID.String())
	}
	return nil
}

func (r *SnapshotRepo) List(ctx context.Context, filter snapshot.ListFilter) (domain.ListResult[*snapshot.Snapshot], error) {
	result := domain.ListResult[*snapshot.Snapshot]{Limit: filter.Limit, Offset: filter.Offset}

	q, err := r.listQuery(filter)
	if err != nil {
		return result, err
	}

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count snapshots: %w", err)
	}

	direction := "ASC"
	if strings.HasPrefix(filter.OrderBy, "-") {
		direction = "DESC"
	}
	q = q.OrderBy("date "+direction, "id "+direction)
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
	result.Items = make([]*snapshot.Snapshot, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list snapshots: %w", err)
	}
	for _, s := range result.Items {
		s.Kind = filter.Kind
	}
	return result, nil
}

func (r *SnapshotRepo) listQuery(filter snapshot.ListFilter) (squirrel.SelectBuilder, error) {
	table, err := tableFor(filter.Kind)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	q := r.builder.Select(columns...).From(table).Where(squirrel.Eq{"tenant_id": filter.TenantID})
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
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
		q = q.Where("product_id IN (SELECT id FROM products WHERE name ILIKE ? OR code ILIKE ?)", pattern, pattern)
	}
	return q, nil
}

// FindPosted returns the posted snapshot of the day, or nil.
func (r *SnapshotRepo) FindPosted(ctx context.Context, kind snapshot.Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*snapshot.Snapshot, error) {
	q, err := r.findPostedQuery(kind, tenantID, productID, date)
	if err != nil {
		return nil, err
	}
	s, err := r.get(ctx, kind, q, productID)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return s, err
}

func (r *SnapshotRepo) findPostedQuery(kind snapshot.Kind, tenantID tenant.ID, productID id.ID, date time.Time) (squirrel.SelectBuilder, error) {
	table, err := tableFor(kind)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.builder.Select(columns...).From(table).
		Where(squirrel.Eq{
			"tenant_id":  tenantID,
			"product_id": productID,
			"date":       domain.TruncateDay(date),
			"status":     string(entity.StatusPosted),
		}), nil
}

// ProductsWithSnapshots lists products having a snapshot of either kind.
func (r *SnapshotRepo) ProductsWithSnapshots(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	sql := fmt.Sprintf(
		"SELECT product_id FROM %s WHERE tenant_id = $1 UNION SELECT product_id FROM %s WHERE tenant_id = $1",
		tables[snapshot.KindOpening], tables[snapshot.KindClosing])

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.querier(ctx), &ids, sql, tenantID); err != nil {
		return nil, fmt.Errorf("list snapshot products: %w", err)
	}
	return ids, nil
}
