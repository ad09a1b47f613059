package receipt

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/numerator"
	"distledger/internal/core/tx"
	"distledger/internal/core/types"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/stock"
)

type fixture struct {
	svc      *Service
	stock    *stock.Service
	product  *product.Product
	tenantID id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := &product.Product{
		ID:            id.New(),
		Code:          "SKU-1",
		Name:          "Basmati Rice 5kg",
		PiecesPerPack: 4,
		Pricing:       types.Pricing{UnitCost: decimal.NewFromInt(900)},
		Active:        true,
	}
	products := product.NewMemoryReader(p)
	stockSvc := stock.NewService(stock.NewMemoryRepository(products), products, tx.Passthrough{})
	svc := NewService(NewMemoryRepository(products), stockSvc, products, numerator.NewMemoryGenerator(), tx.Passthrough{})
	return &fixture{svc: svc, stock: stockSvc, product: p, tenantID: id.New()}
}

func (f *fixture) draft(t *testing.T, quantities ...int64) *Receipt {
	t.Helper()
	doc := New(f.tenantID)
	doc.Date = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, q := range quantities {
		item := doc.AddItem(f.product.ID, q)
		item.BatchNumber = "LOT-7"
	}
	require.NoError(t, f.svc.Create(context.Background(), doc))
	return doc
}

func TestService_CreateAssignsNumberAndPricing(t *testing.T) {
	f := newFixture(t)
	doc := f.draft(t, 10)

	assert.Equal(t, "RCP-202403-000001", doc.Number)
	assert.Equal(t, entity.StatusDraft, doc.Status)

	got, err := f.svc.GetByID(context.Background(), f.tenantID, doc.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitCost.Equal(decimal.NewFromInt(900)))
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := New(f.tenantID)
	err := f.svc.Create(ctx, empty)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	zero := New(f.tenantID)
	zero.AddItem(f.product.ID, 0)
	err = f.svc.Create(ctx, zero)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	unknown := New(f.tenantID)
	unknown.AddItem(id.New(), 1)
	err = f.svc.Create(ctx, unknown)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_PostCreatesStockRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, 30, 45, 25)

	posted, err := f.svc.Post(ctx, f.tenantID, doc.ID, "clerk-1")
	require.NoError(t, err)
	assert.True(t, posted.IsPosted())
	assert.Equal(t, "clerk-1", posted.PostedBy)
	require.NotNil(t, posted.PostedAt)

	total, err := f.stock.Aggregate(ctx, f.tenantID, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)

	records, err := f.stock.Candidates(ctx, f.tenantID, f.product.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		require.NotNil(t, r.SourceReceiptID)
		assert.Equal(t, doc.ID, *r.SourceReceiptID)
		assert.Equal(t, "LOT-7", r.BatchNumber)
	}
}

// retiringReader hides products once they are retired.
type retiringReader struct {
	product.Reader
	retired map[id.ID]bool
}

func (r *retiringReader) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	if r.retired[productID] {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return r.Reader.GetByID(ctx, productID)
}

func (r *retiringReader) GetMany(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	found, err := r.Reader.GetMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for pid := range r.retired {
		delete(found, pid)
	}
	return found, nil
}

func TestService_PostLeavesNoStockWhenALineFails(t *testing.T) {
	ctx := context.Background()
	rice := &product.Product{ID: id.New(), Code: "SKU-1", Name: "Basmati Rice 5kg", Active: true}
	salt := &product.Product{ID: id.New(), Code: "SKU-2", Name: "Iodised Salt 1kg", Active: true}
	products := &retiringReader{Reader: product.NewMemoryReader(rice, salt), retired: map[id.ID]bool{}}
	stockSvc := stock.NewService(stock.NewMemoryRepository(products), products, tx.Passthrough{})
	svc := NewService(NewMemoryRepository(products), stockSvc, products, numerator.NewMemoryGenerator(), tx.Passthrough{})
	tenantID := id.New()

	doc := New(tenantID)
	doc.Date = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	doc.AddItem(rice.ID, 10)
	doc.AddItem(salt.ID, 5)
	require.NoError(t, svc.Create(ctx, doc))

	products.retired[salt.ID] = true

	_, err := svc.Post(ctx, tenantID, doc.ID, "clerk-1")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	records, err := stockSvc.ListForConversion(ctx, tenantID)
	require.NoError(t, err)
	assert.Empty(t, records)

	got, err := svc.GetByID(ctx, tenantID, doc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPosted())
}

func TestService_PostTwiceRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, 10)

	_, err := f.svc.Post(ctx, f.tenantID, doc.ID, "clerk-1")
	require.NoError(t, err)

	_, err = f.svc.Post(ctx, f.tenantID, doc.ID, "clerk-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))

	total, err := f.stock.Aggregate(ctx, f.tenantID, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestService_UpdateReplacesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, 10, 20)

	doc.Items = nil
	doc.AddItem(f.product.ID, 7)
	doc.Comment = "recount"
	require.NoError(t, f.svc.Update(ctx, doc))

	got, err := f.svc.GetByID(ctx, f.tenantID, doc.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(7), got.Items[0].Quantity)
	assert.Equal(t, "recount", got.Comment)
	assert.Equal(t, 2, got.Version)
}

func TestService_UpdateStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, 10)

	stale, err := f.svc.GetByID(ctx, f.tenantID, doc.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Update(ctx, doc))
	err = f.svc.Update(ctx, stale)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestService_PostedIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, 10)

	_, err := f.svc.Post(ctx, f.tenantID, doc.ID, "clerk-1")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.tenantID, doc.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))

	fresh, err := f.svc.GetByID(ctx, f.tenantID, doc.ID)
	require.NoError(t, err, "posted receipt stays queryable")
	fresh.AddItem(f.product.ID, 1)
	err = f.svc.Update(ctx, fresh)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))
}

func TestService_DeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, 10)

	require.NoError(t, f.svc.Delete(ctx, f.tenantID, doc.ID))
	_, err := f.svc.GetByID(ctx, f.tenantID, doc.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_SumQuantitiesStatusFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	posted := f.draft(t, 50)
	_, err := f.svc.Post(ctx, f.tenantID, posted.ID, "clerk-1")
	require.NoError(t, err)
	f.draft(t, 8)

	q := domain.MovementQuery{
		TenantID:  f.tenantID,
		ProductID: f.product.ID,
		From:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	sum, err := f.svc.SumQuantities(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(50), sum)

	q.Status = domain.MovementAll
	sum, err = f.svc.SumQuantities(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(58), sum)

	end := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	q.To = &end
	sum, err = f.svc.SumQuantities(ctx, q)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestService_ListSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.draft(t, 1)
	f.draft(t, 2)

	res, err := f.svc.List(ctx, domain.ListFilter{TenantID: f.tenantID, Search: "basmati"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalCount)

	res, err = f.svc.List(ctx, domain.ListFilter{TenantID: f.tenantID, Search: "000002"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)

	res, err = f.svc.List(ctx, domain.ListFilter{TenantID: f.tenantID, Status: entity.StatusPosted})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
}
