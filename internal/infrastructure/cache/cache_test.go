package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/domain/catalogs/product"
)

type countingReader struct {
	product.Reader
	byID int
	many [][]id.ID
}

func (r *countingReader) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	r.byID++
	return r.Reader.GetByID(ctx, productID)
}

func (r *countingReader) GetMany(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	r.many = append(r.many, productIDs)
	return r.Reader.GetMany(ctx, productIDs)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, any, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Delete(context.Context, ...string) error { return nil }

func newProduct(code string) *product.Product {
	return &product.Product{ID: id.New(), Code: code, Name: code, PiecesPerPack: 6, Active: true}
}

func TestCachedReader_GetByID(t *testing.T) {
	ctx := context.Background()
	p := newProduct("P1")
	inner := &countingReader{Reader: product.NewMemoryReader(p)}
	c := NewCachedReader(inner, NewMemoryStore(), time.Minute)

	got, err := c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "P1", got.Code)

	got, err = c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.PiecesPerPack)
	assert.Equal(t, 1, inner.byID)

	require.NoError(t, c.Invalidate(ctx, p.ID))
	_, err = c.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.byID)
}

func TestCachedReader_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := NewCachedReader(product.NewMemoryReader(), store, 0)

	_, err := c.GetByID(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 0, store.Len())
}

func TestCachedReader_GetManyLoadsOnlyMisses(t *testing.T) {
	ctx := context.Background()
	a, b := newProduct("A"), newProduct("B")
	inner := &countingReader{Reader: product.NewMemoryReader(a, b)}
	c := NewCachedReader(inner, NewMemoryStore(), time.Minute)

	_, err := c.GetByID(ctx, a.ID)
	require.NoError(t, err)

	got, err := c.GetMany(ctx, []id.ID{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, inner.many, 1)
	assert.Equal(t, []id.ID{b.ID}, inner.many[0])

	_, err = c.GetMany(ctx, []id.ID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, inner.many, 1)
}

func TestCachedReader_StoreFailureFallsThrough(t *testing.T) {
	p := newProduct("P")
	c := NewCachedReader(product.NewMemoryReader(p), failingStore{}, time.Minute)

	got, err := c.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", 42, time.Minute))

	var v int
	hit, err := s.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)

	now = now.Add(time.Minute)
	hit, err = s.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, s.Len())
}

type recordingInvalidator struct{ ids []id.ID }

func (r *recordingInvalidator) Invalidate(_ context.Context, ids ...id.ID) error {
	r.ids = append(r.ids, ids...)
	return nil
}

func TestProductListener_Handle(t *testing.T) {
	target := &recordingInvalidator{}
	l := NewProductListener(nil, target)
	pid := id.New()

	l.handle(context.Background(), " "+pid.String()+"\n")
	l.handle(context.Background(), "not-an-id")

	assert.Equal(t, []id.ID{pid}, target.ids)
}

func TestProductKey(t *testing.T) {
	pid := id.MustParse("01890000-0000-7000-8000-000000000001")
	assert.Equal(t, "distledger:product:01890000-0000-7000-8000-000000000001", ProductKey(pid))
}
