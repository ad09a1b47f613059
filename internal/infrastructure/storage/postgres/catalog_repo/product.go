// Package catalog_repo provides the PostgreSQL product catalogue.
package catalog_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/infrastructure/storage/postgres"
)

const productTable = "products"

var productColumns = postgres.ExtractDBColumns[product.Product]()

// ProductRepo implements product.Reader plus the catalogue writes used by
// the operator CLI. Products are global, not tenant scoped.
type ProductRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ product.Reader = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	sql, args, err := r.builder.Select(productColumns...).From(productTable).
		Where(squirrel.Eq{"id": productID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var p product.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepo) GetMany(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	sql, args, err := r.builder.Select(productColumns...).From(productTable).
		Where(squirrel.Eq{"id": productIDs}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []*product.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// Upsert inserts a product or replaces the one with the same code.
// On return p.ID holds the stored id.
func (r *ProductRepo) Upsert(ctx context.Context, p *product.Product) error {
	if strings.TrimSpace(p.Code) == "" || strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("product code and name are required")
	}
	if p.PiecesPerPack < 0 || p.Pricing.IsNegative() {
		return apperror.NewValidation("pieces per pack and prices must not be negative")
	}
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}

	sql, args, err := r.upsertQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) upsertQuery(p *product.Product) squirrel.InsertBuilder {
	return r.builder.Insert(productTable).
		SetMap(postgres.StructToMap(p)).
		Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name," +
			" pieces_per_pack = EXCLUDED.pieces_per_pack, unit_cost = EXCLUDED.unit_cost," +
			" trade_price = EXCLUDED.trade_price, retail_price = EXCLUDED.retail_price," +
			" active = EXCLUDED.active RETURNING id")
}

// List returns products ordered by code, optionally filtered by name or code.
func (r *ProductRepo) List(ctx context.Context, search string, limit int) ([]*product.Product, error) {
	sql, args, err := r.listQuery(search, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	items := make([]*product.Product, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

func (r *ProductRepo) listQuery(search string, limit int) squirrel.SelectBuilder {
	q := r.builder.Select(productColumns...).From(productTable).OrderBy("code")
	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + s + "%"
		q = q.Where(squirrel.Or{squirrel.ILike{"name": pattern}, squirrel.ILike{"code": pattern}})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}
