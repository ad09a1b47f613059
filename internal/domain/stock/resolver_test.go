package stock

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func rec(productID id.ID, qty int64, batch string, expiry *time.Time, created time.Time) *Record {
	r := NewRecord(id.New(), productID, qty)
	r.BatchNumber = batch
	r.ExpiryDate = expiry
	r.CreatedAt = created
	return r
}

func TestResolve(t *testing.T) {
	p1, p2 := id.New(), id.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	empty := rec(p1, 0, "B0", day(2024, 2, 1), base)
	late := rec(p1, 5, "B1", day(2024, 9, 1), base)
	early := rec(p1, 5, "B2", day(2024, 6, 1), base.Add(time.Hour))
	noExpiry := rec(p1, 50, "B3", nil, base.Add(-time.Hour))
	other := rec(p2, 100, "B1", day(2024, 1, 1), base)

	all := []*Record{empty, late, early, noExpiry, other}

	t.Run("explicit id wins", func(t *testing.T) {
		got, err := Resolve(all, ResolveQuery{ProductID: p1, StockRecordID: &empty.ID})
		require.NoError(t, err)
		assert.Equal(t, empty.ID, got.ID)
	})

	t.Run("explicit id of another product", func(t *testing.T) {
		_, err := Resolve(all, ResolveQuery{ProductID: p1, StockRecordID: &other.ID})
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("explicit id unknown", func(t *testing.T) {
		missing := id.New()
		_, err := Resolve(all, ResolveQuery{ProductID: p1, StockRecordID: &missing})
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("earliest expiry among stocked rows", func(t *testing.T) {
		got, err := Resolve(all, ResolveQuery{ProductID: p1})
		require.NoError(t, err)
		assert.Equal(t, early.ID, got.ID)
	})

	t.Run("batch narrows candidates", func(t *testing.T) {
		got, err := Resolve(all, ResolveQuery{ProductID: p1, BatchNumber: "B1"})
		require.NoError(t, err)
		assert.Equal(t, late.ID, got.ID)
	})

	t.Run("empty row used when nothing is stocked", func(t *testing.T) {
		got, err := Resolve([]*Record{empty, other}, ResolveQuery{ProductID: p1})
		require.NoError(t, err)
		assert.Equal(t, empty.ID, got.ID)
	})

	t.Run("no expiry sorts last", func(t *testing.T) {
		got, err := Resolve([]*Record{noExpiry, late}, ResolveQuery{ProductID: p1})
		require.NoError(t, err)
		assert.Equal(t, late.ID, got.ID)
	})

	t.Run("creation time breaks expiry ties", func(t *testing.T) {
		a := rec(p1, 1, "", nil, base.Add(2*time.Hour))
		b := rec(p1, 1, "", nil, base.Add(time.Hour))
		got, err := Resolve([]*Record{a, b}, ResolveQuery{ProductID: p1})
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	})

	t.Run("row covering the quantity wins over earlier expiry", func(t *testing.T) {
		got, err := Resolve(all, ResolveQuery{ProductID: p1, Quantity: 8})
		require.NoError(t, err)
		assert.Equal(t, noExpiry.ID, got.ID)
	})

	t.Run("earliest expiry when no row covers the quantity", func(t *testing.T) {
		got, err := Resolve(all, ResolveQuery{ProductID: p1, Quantity: 500})
		require.NoError(t, err)
		assert.Equal(t, early.ID, got.ID)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := Resolve(all, ResolveQuery{ProductID: id.New()})
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := Resolve(all, ResolveQuery{ProductID: p1, BatchNumber: "NOPE"})
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestResolve_OrderIndependent(t *testing.T) {
	p := id.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candidates := []*Record{
		rec(p, 3, "", day(2024, 5, 1), base),
		rec(p, 3, "", day(2024, 5, 1), base),
		rec(p, 3, "", day(2024, 4, 1), base.Add(time.Minute)),
		rec(p, 3, "", nil, base.Add(-time.Minute)),
		rec(p, 0, "", day(2023, 1, 1), base),
	}

	want, err := Resolve(candidates, ResolveQuery{ProductID: p})
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]*Record(nil), candidates...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := Resolve(shuffled, ResolveQuery{ProductID: p})
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
	}
}

func TestApply(t *testing.T) {
	p := id.New()

	tests := []struct {
		name          string
		current       int64
		delta         int64
		mode          AdjustMode
		allowShortage bool
		want          int64
		wantShortage  int64
		wantCode      string
	}{
		{name: "add", current: 5, delta: 3, mode: ModeAdd, want: 8},
		{name: "subtract", current: 5, delta: 3, mode: ModeSubtract, want: 2},
		{name: "subtract all", current: 5, delta: 5, mode: ModeSubtract, want: 0},
		{name: "set", current: 5, delta: 40, mode: ModeSet, want: 40},
		{name: "shortage rejected", current: 5, delta: 8, mode: ModeSubtract, want: 5, wantCode: apperror.CodeInsufficientStock},
		{name: "shortage clamped", current: 5, delta: 8, mode: ModeSubtract, allowShortage: true, want: 0, wantShortage: 3},
		{name: "negative delta", current: 5, delta: -1, mode: ModeAdd, want: 5, wantCode: apperror.CodeValidation},
		{name: "unknown mode", current: 5, delta: 1, mode: "double", want: 5, wantCode: apperror.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, shortage, err := Apply(p, tt.current, tt.delta, tt.mode, tt.allowShortage)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperror.HasCode(err, tt.wantCode))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantShortage, shortage)
		})
	}
}
