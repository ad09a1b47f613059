package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "distledger/internal/core/context"
	"distledger/internal/core/id"
	"distledger/internal/core/numerator"
	"distledger/internal/core/tx"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
)

type failingWriter struct{}

func (failingWriter) Write(context.Context, Entry) error { return errors.New("disk full") }

func setup(w Writer) (Services, *product.Product) {
	p := &product.Product{ID: id.New(), Code: "P-1", Name: "Tea", PiecesPerPack: 12, Active: true}
	products := product.NewMemoryReader(p)
	gen := numerator.NewMemoryGenerator()
	txm := tx.Passthrough{}

	stockSvc := stock.NewService(stock.NewMemoryRepository(products), products, txm)
	s := Services{
		Stock:     stockSvc,
		Receipts:  receipt.NewService(receipt.NewMemoryRepository(products), stockSvc, products, gen, txm),
		Issues:    issue.NewService(issue.NewMemoryRepository(products), stockSvc, products, gen, txm),
		Snapshots: snapshot.NewService(snapshot.NewMemoryRepository(products), products, txm),
	}
	AttachAll(w, s)
	return s, p
}

func TestAttachAll_RecordsLifecycle(t *testing.T) {
	w := &MemoryWriter{}
	s, p := setup(w)
	tenantID := id.New()
	ctx := appctx.WithActor(context.Background(), &appctx.Actor{ID: "user-7"})

	doc := receipt.New(tenantID)
	doc.AddItem(p.ID, 24)
	require.NoError(t, s.Receipts.Create(ctx, doc))
	_, err := s.Receipts.Post(ctx, tenantID, doc.ID, "user-7")
	require.NoError(t, err)

	iss := issue.New(tenantID)
	iss.AddItem(p.ID, 4)
	require.NoError(t, s.Issues.Create(ctx, iss))
	_, err = s.Issues.Post(ctx, tenantID, iss.ID, "user-7", issue.PostOptions{})
	require.NoError(t, err)

	entries := w.Entries()
	var got []string
	for _, e := range entries {
		got = append(got, e.EntityType+":"+string(e.Action))
		assert.Equal(t, tenantID, e.TenantID)
		assert.Equal(t, "user-7", e.Actor)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.Equal(t, []string{
		"receipt:create",
		"receipt:post",
		"issue:create",
		"stock_record:update",
		"issue:post",
	}, got)

	post := entries[4]
	assert.Equal(t, iss.ID, post.EntityID)
	items := post.Changes["items"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], "stock_record_id")
}

func TestAttachAll_SnapshotRevert(t *testing.T) {
	w := &MemoryWriter{}
	s, p := setup(w)
	tenantID := id.New()
	ctx := context.Background()

	snap := snapshot.New(snapshot.KindClosing, tenantID, p.ID, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, s.Snapshots.Create(ctx, snap))
	_, err := s.Snapshots.Post(ctx, snapshot.KindClosing, tenantID, snap.ID, "a")
	require.NoError(t, err)
	_, err = s.Snapshots.Revert(ctx, snapshot.KindClosing, tenantID, snap.ID)
	require.NoError(t, err)

	entries := w.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "closing_snapshot", entries[2].EntityType)
	assert.Equal(t, ActionRevert, entries[2].Action)
	assert.Equal(t, "2024-03-31", entries[2].Changes["date"])
}

func TestAttach_WriterFailureAbortsOperation(t *testing.T) {
	p := &product.Product{ID: id.New(), Code: "P-2", Name: "Soap", Active: true}
	products := product.NewMemoryReader(p)
	svc := stock.NewService(stock.NewMemoryRepository(products), products, tx.Passthrough{})
	Attach(failingWriter{}, svc.Hooks(), StockRecord, domain.AfterCreate)

	err := svc.Create(context.Background(), stock.NewRecord(id.New(), p.ID, 5))
	assert.EqualError(t, err, "disk full")
}

func TestAttach_UnknownEventPanics(t *testing.T) {
	assert.Panics(t, func() {
		Attach(&MemoryWriter{}, domain.NewHookRegistry[*stock.Record](), StockRecord, domain.HookEvent("before_everything"))
	})
}
