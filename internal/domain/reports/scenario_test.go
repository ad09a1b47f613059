package reports

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
	"distledger/internal/core/tenant"
	"distledger/internal/core/tx"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
)

type world struct {
	ctx       context.Context
	tenantID  id.ID
	products  *product.MemoryReader
	stock     *stock.Service
	receipts  *receipt.Service
	issues    *issue.Service
	snapshots *snapshot.Service
	converter *snapshot.Converter
	reports   *Service
}

func newWorld(t *testing.T) *world {
	t.Helper()
	products := product.NewMemoryReader()
	gen := numerator.NewMemoryGenerator()
	txm := tx.Passthrough{}

	stockSvc := stock.NewService(stock.NewMemoryRepository(products), products, txm)
	receipts := receipt.NewService(receipt.NewMemoryRepository(products), stockSvc, products, gen, txm)
	issues := issue.NewService(issue.NewMemoryRepository(products), stockSvc, products, gen, txm)
	snapshots := snapshot.NewService(snapshot.NewMemoryRepository(products), products, txm)

	dist := &tenant.Distribution{ID: id.New(), Code: "LHR", Name: "Lahore Central", Status: tenant.StatusActive}
	source := NewServiceSource(stockSvc, receipts, issues, snapshots)

	return &world{
		ctx:       context.Background(),
		tenantID:  dist.ID,
		products:  products,
		stock:     stockSvc,
		receipts:  receipts,
		issues:    issues,
		snapshots: snapshots,
		converter: snapshot.NewConverter(stockSvc, snapshots, nil),
		reports:   NewService(source, products, tenant.NewMemoryRegistry(dist)),
	}
}

func (w *world) product(code, name string, ppp int64) *product.Product {
	p := &product.Product{ID: id.New(), Code: code, Name: name, PiecesPerPack: ppp, Active: true}
	w.products.Put(p)
	return p
}

func (w *world) receive(t *testing.T, productID id.ID, qty int64, date time.Time, cost string, post bool) *receipt.Receipt {
	t.Helper()
	doc := receipt.New(w.tenantID)
	doc.Date = date
	item := doc.AddItem(productID, qty)
	if cost != "" {
		item.UnitCost = decimal.RequireFromString(cost)
	}
	require.NoError(t, w.receipts.Create(w.ctx, doc))
	if post {
		_, err := w.receipts.Post(w.ctx, w.tenantID, doc.ID, "clerk")
		require.NoError(t, err)
	}
	return doc
}

func (w *world) ship(t *testing.T, productID id.ID, qty int64, date time.Time, recordID *id.ID) *issue.Issue {
	t.Helper()
	doc := issue.New(w.tenantID)
	doc.Date = date
	item := doc.AddItem(productID, qty)
	item.StockRecordID = recordID
	require.NoError(t, w.issues.Create(w.ctx, doc))
	_, err := w.issues.Post(w.ctx, w.tenantID, doc.ID, "driver", issue.PostOptions{})
	require.NoError(t, err)
	return doc
}

func (w *world) snapshot(t *testing.T, kind snapshot.Kind, productID id.ID, date time.Time, qty int64) *snapshot.Snapshot {
	t.Helper()
	s := snapshot.New(kind, w.tenantID, productID, date, qty)
	require.NoError(t, w.snapshots.Create(w.ctx, s))
	_, err := w.snapshots.Post(w.ctx, kind, w.tenantID, s.ID, "accountant")
	require.NoError(t, err)
	return s
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func rowFor(rows []Row, productID id.ID) *Row {
	for i := range rows {
		if rows[i].ProductID == productID {
			return &rows[i]
		}
	}
	return nil
}

func TestScenarioA_ClosingFromMovements(t *testing.T) {
	w := newWorld(t)
	p := w.product("A-1", "Ghee 1kg", 12)

	w.snapshot(t, snapshot.KindOpening, p.ID, day(time.March, 1), 100)
	w.receive(t, p.ID, 50, day(time.March, 5), "10", true)
	w.receive(t, p.ID, 7, day(time.March, 6), "10", false)
	w.ship(t, p.ID, 30, day(time.March, 20), nil)

	q := ReconciliationQuery{TenantID: w.tenantID, Month: march, Now: inApril}
	rows, err := w.reports.Build(w.ctx, q)
	require.NoError(t, err)

	row := rowFor(rows, p.ID)
	require.NotNil(t, row)
	assert.Equal(t, OpeningFromSnapshot, row.OpeningSource)
	assert.Equal(t, int64(100), row.Opening)
	assert.Equal(t, int64(50), row.In, "draft receipts are excluded by default")
	assert.Equal(t, int64(30), row.Out)
	require.NotNil(t, row.Closing)
	assert.Equal(t, int64(120), *row.Closing)
	assert.Nil(t, row.Available)
	assert.False(t, row.IsClosed)
	assert.Equal(t, "Ghee 1kg", row.ProductName)
	assert.Equal(t, "A-1", row.ProductCode)
	assert.Equal(t, "Lahore Central", row.TenantName)

	q.MovementStatus = domain.MovementAll
	rows, err = w.reports.Build(w.ctx, q)
	require.NoError(t, err)
	row = rowFor(rows, p.ID)
	require.NotNil(t, row)
	assert.Equal(t, int64(57), row.In)
	assert.Equal(t, int64(127), *row.Closing)
}

func TestScenarioA_PostedClosingSnapshot(t *testing.T) {
	w := newWorld(t)
	p := w.product("A-2", "Sugar 1kg", 10)

	w.snapshot(t, snapshot.KindOpening, p.ID, day(time.March, 1), 100)
	w.snapshot(t, snapshot.KindClosing, p.ID, day(time.March, 31), 118)

	rows, err := w.reports.Build(w.ctx, ReconciliationQuery{TenantID: w.tenantID, Month: march, Now: inApril})
	require.NoError(t, err)
	row := rowFor(rows, p.ID)
	require.NotNil(t, row)
	assert.True(t, row.IsClosed)
	assert.Equal(t, int64(118), *row.Closing)

	// the next month opens from it
	rows, err = w.reports.Build(w.ctx, ReconciliationQuery{TenantID: w.tenantID, Month: march.Next(), Now: inApril})
	require.NoError(t, err)
	row = rowFor(rows, p.ID)
	require.NotNil(t, row)
	assert.Equal(t, OpeningFromPriorClosing, row.OpeningSource)
	assert.Equal(t, int64(118), row.Opening)
}

func TestScenarioB_DerivedOpening(t *testing.T) {
	w := newWorld(t)
	p := w.product("B-1", "Salt 800g", 20)

	require.NoError(t, w.stock.Create(w.ctx, stock.NewRecord(w.tenantID, p.ID, 65)))
	w.receive(t, p.ID, 20, day(time.March, 3), "5", true)
	w.ship(t, p.ID, 5, day(time.March, 8), nil)

	total, err := w.stock.Aggregate(w.ctx, w.tenantID, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(80), total)

	rows, err := w.reports.Build(w.ctx, ReconciliationQuery{TenantID: w.tenantID, Month: march, Now: inMarch})
	require.NoError(t, err)
	row := rowFor(rows, p.ID)
	require.NotNil(t, row)
	assert.Equal(t, OpeningDerived, row.OpeningSource)
	assert.Equal(t, int64(65), row.Opening)
	assert.Equal(t, int64(20), row.In)
	assert.Equal(t, int64(5), row.Out)
	require.NotNil(t, row.Available)
	assert.Equal(t, int64(80), *row.Available)
	assert.Nil(t, row.Closing)
}

func TestScenarioC_ReceiptIssueConvert(t *testing.T) {
	w := newWorld(t)
	p := w.product("C-1", "Flour 10kg", 1)

	w.receive(t, p.ID, 100, day(time.March, 2), "12.5", true)

	records, err := w.stock.Candidates(w.ctx, w.tenantID, p.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(100), records[0].Quantity)

	w.ship(t, p.ID, 40, day(time.March, 4), &records[0].ID)

	rec, err := w.stock.GetByID(w.ctx, w.tenantID, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), rec.Quantity)

	n, err := w.converter.ConvertFromStocks(w.ctx, w.tenantID, snapshot.ConvertOptions{
		Kind: snapshot.KindClosing,
		Date: day(time.March, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snap, err := w.snapshots.FindPosted(w.ctx, snapshot.KindClosing, w.tenantID, p.ID, day(time.March, 31))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(60), snap.Quantity)
	assert.True(t, snap.UnitCost.Equal(decimal.RequireFromString("12.5")))

	total, err := w.stock.Aggregate(w.ctx, w.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), total, "conversion leaves stock untouched")
}

func TestScenarioD_ZeroRowsSuppressed(t *testing.T) {
	w := newWorld(t)
	idle := w.product("D-1", "Idle", 6)
	busy := w.product("D-2", "Busy", 6)

	require.NoError(t, w.stock.Create(w.ctx, stock.NewRecord(w.tenantID, idle.ID, 0)))
	require.NoError(t, w.stock.Create(w.ctx, stock.NewRecord(w.tenantID, busy.ID, 3)))

	for _, now := range []time.Time{inMarch, inApril} {
		rows, err := w.reports.Build(w.ctx, ReconciliationQuery{TenantID: w.tenantID, Month: march, Now: now})
		require.NoError(t, err)
		assert.Nil(t, rowFor(rows, idle.ID))
		assert.NotNil(t, rowFor(rows, busy.ID))
	}

	rows, err := w.reports.Build(w.ctx, ReconciliationQuery{
		TenantID:   w.tenantID,
		Month:      march,
		Now:        inMarch,
		ProductIDs: []id.ID{idle.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestScenarioE_PostedDocumentsCannotBeDeleted(t *testing.T) {
	w := newWorld(t)
	p := w.product("E-1", "Rice", 4)

	rcp := w.receive(t, p.ID, 10, day(time.March, 2), "1", true)
	iss := w.ship(t, p.ID, 4, day(time.March, 3), nil)
	snap := w.snapshot(t, snapshot.KindClosing, p.ID, day(time.March, 31), 6)

	err := w.receipts.Delete(w.ctx, w.tenantID, rcp.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))
	err = w.issues.Delete(w.ctx, w.tenantID, iss.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))
	err = w.snapshots.Delete(w.ctx, snapshot.KindClosing, w.tenantID, snap.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))

	gotR, err := w.receipts.GetByID(w.ctx, w.tenantID, rcp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPosted, gotR.Status)
	assert.Len(t, gotR.Items, 1)

	gotI, err := w.issues.GetByID(w.ctx, w.tenantID, iss.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPosted, gotI.Status)

	gotS, err := w.snapshots.GetByID(w.ctx, snapshot.KindClosing, w.tenantID, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), gotS.Quantity)

	total, err := w.stock.Aggregate(w.ctx, w.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}

func TestBuild_SortedAndTenantScoped(t *testing.T) {
	w := newWorld(t)
	zeta := w.product("Z-9", "Zeta", 1)
	alpha := w.product("A-0", "Alpha", 1)
	require.NoError(t, w.stock.Create(w.ctx, stock.NewRecord(w.tenantID, zeta.ID, 1)))
	require.NoError(t, w.stock.Create(w.ctx, stock.NewRecord(w.tenantID, alpha.ID, 1)))

	stranger := id.New()
	require.NoError(t, w.stock.Create(w.ctx, stock.NewRecord(stranger, alpha.ID, 500)))

	rows, err := w.reports.Build(w.ctx, ReconciliationQuery{TenantID: w.tenantID, Month: march, Now: inMarch})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-0", rows[0].ProductCode)
	assert.Equal(t, "Z-9", rows[1].ProductCode)
	assert.Equal(t, int64(1), *rows[0].Available)
}

func TestBuild_UnknownTenant(t *testing.T) {
	w := newWorld(t)

	_, err := w.reports.Build(w.ctx, ReconciliationQuery{TenantID: id.New(), Month: march, Now: inMarch})
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

