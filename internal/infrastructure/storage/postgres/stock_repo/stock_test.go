package stock_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/domain/stock"
)

func TestStockRepo_UpdateQuantitySQL(t *testing.T) {
	r := NewStockRepo(nil)
	rec := stock.NewRecord(id.New(), id.New(), 7)
	rec.Version = 4

	sql, args, err := r.updateQuantityQuery(rec).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE stock_records SET quantity = $1, version = version + 1, updated_at = NOW()"+
		" WHERE id = $2 AND tenant_id = $3 AND version = $4", sql)
	assert.Equal(t, []any{int64(7), rec.ID.String(), rec.TenantID.String(), 4}, args)
}

func TestStockRepo_SumSQL(t *testing.T) {
	r := NewStockRepo(nil)
	tenantID, productID := id.New(), id.New()

	sql, args, err := r.sumQuery(tenantID, productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COALESCE(SUM(quantity), 0) FROM stock_records WHERE product_id = $1 AND tenant_id = $2", sql)
	assert.Equal(t, []any{productID.String(), tenantID.String()}, args)
}

func TestStockRepo_ListQuery(t *testing.T) {
	r := NewStockRepo(nil)
	productID := id.New()
	f := stock.ListFilter{
		TenantID:    id.New(),
		ProductID:   &productID,
		BatchNumber: "B1",
		LowStock:    true,
		Search:      "salt",
	}
	require.NoError(t, f.Validate())

	sql, args, err := r.listQuery(f).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM stock_records WHERE tenant_id = $1 AND product_id = $2 AND batch_number = $3 AND quantity <= $4"+
		" AND product_id IN (SELECT id FROM products WHERE name ILIKE $5 OR code ILIKE $6)")
	assert.Equal(t, stock.DefaultLowStockThreshold, args[3])
	assert.Equal(t, "%salt%", args[4])
}

func TestParseOrderBy(t *testing.T) {
	got, err := parseOrderBy("-quantity")
	require.NoError(t, err)
	assert.Equal(t, "quantity DESC", got)

	got, err = parseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, "created_at ASC", got)

	_, err = parseOrderBy("1; DELETE")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
