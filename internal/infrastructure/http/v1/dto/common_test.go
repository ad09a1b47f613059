package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/types"
	"distledger/internal/domain/snapshot"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("date", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("date", "2024-03-31T18:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("date", "31/03/2024")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	none, err := ParseOptionalDate("expiryDate", " ")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListQuery_ToFilter(t *testing.T) {
	tenantID := id.New()

	f, err := ListQuery{}.ToFilter(tenantID)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, "-date", f.OrderBy)
	assert.Nil(t, f.DateFrom)

	f, err = ListQuery{Month: "2024-02", DateFrom: "2023-01-01", Status: "posted", Limit: 10}.ToFilter(tenantID)
	require.NoError(t, err)
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), *f.DateTo)
	assert.Equal(t, entity.StatusPosted, f.Status)
	assert.Equal(t, 10, f.Limit)

	_, err = ListQuery{Status: "archived"}.ToFilter(tenantID)
	assert.Error(t, err)

	_, err = ListQuery{Month: "Feb"}.ToFilter(tenantID)
	assert.Error(t, err)
}

func TestPricingRequest_ApplyTo(t *testing.T) {
	cost := decimal.RequireFromString("12.5")
	p := types.Pricing{TradePrice: decimal.NewFromInt(15)}

	PricingRequest{UnitCost: &cost}.ApplyTo(&p)

	assert.True(t, p.UnitCost.Equal(cost))
	assert.True(t, p.TradePrice.Equal(decimal.NewFromInt(15)), "unset prices are kept")

	res := FromPricing(p)
	assert.Equal(t, "12.5000", res.UnitCost)
}

func TestSnapshotRequest_ToEntity(t *testing.T) {
	tenantID := id.New()
	productID := id.New()

	req := SnapshotRequest{
		ProductID: productID.String(),
		Date:      "2024-03-31",
		Quantity:  30,
		Breakdown: &BreakdownRequest{Cartons: 2, Pieces: 6, PiecesPerPack: 12},
		Status:    "posted",
	}
	snap, err := req.ToEntity(snapshot.KindClosing, tenantID, "clerk")
	require.NoError(t, err)

	assert.Equal(t, snapshot.KindClosing, snap.Kind)
	assert.Equal(t, tenantID, snap.TenantID)
	assert.Equal(t, productID, snap.ProductID)
	assert.Equal(t, int64(2), snap.Cartons)
	assert.True(t, snap.IsPosted())
	assert.Equal(t, "clerk", snap.PostedBy)

	req.ProductID = "not-an-id"
	_, err = req.ToEntity(snapshot.KindClosing, tenantID, "clerk")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestReconciliationRequest_ToQuery(t *testing.T) {
	tenantID := id.New()
	pid := id.New()

	q, err := (&ReconciliationRequest{Month: "2024-03", Status: "all", ProductIDs: []string{pid.String()}}).ToQuery(tenantID)
	require.NoError(t, err)
	assert.Equal(t, time.March, q.Month.Month)
	assert.Equal(t, []id.ID{pid}, q.ProductIDs)

	_, err = (&ReconciliationRequest{Month: "March"}).ToQuery(tenantID)
	assert.Error(t, err)
}
