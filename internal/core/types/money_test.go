package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name  string
		terms []WeightedTerm
		want  string
	}{
		{
			name:  "single term keeps cost",
			terms: []WeightedTerm{{Quantity: 60, Value: MustMoney("12.5")}},
			want:  "12.5",
		},
		{
			name: "weighted by quantity",
			terms: []WeightedTerm{
				{Quantity: 10, Value: MustMoney("10")},
				{Quantity: 30, Value: MustMoney("20")},
			},
			want: "17.5",
		},
		{
			name: "rounds to four places",
			terms: []WeightedTerm{
				{Quantity: 1, Value: MustMoney("1")},
				{Quantity: 2, Value: MustMoney("2")},
			},
			want: "1.6667",
		},
		{
			name: "ignores empty rows",
			terms: []WeightedTerm{
				{Quantity: 0, Value: MustMoney("99")},
				{Quantity: 5, Value: MustMoney("4")},
			},
			want: "4",
		},
		{
			name:  "no stock",
			terms: nil,
			want:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverage(tt.terms)
			assert.True(t, MustMoney(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestWeightedPricing(t *testing.T) {
	p := WeightedPricing(
		[]int64{10, 10},
		[]Pricing{
			{UnitCost: MustMoney("10"), TradePrice: MustMoney("12"), RetailPrice: MustMoney("15")},
			{UnitCost: MustMoney("20"), TradePrice: MustMoney("22"), RetailPrice: MustMoney("25")},
		},
	)

	assert.True(t, MustMoney("15").Equal(p.UnitCost))
	assert.True(t, MustMoney("17").Equal(p.TradePrice))
	assert.True(t, MustMoney("20").Equal(p.RetailPrice))
}

func TestNewBreakdown(t *testing.T) {
	b := NewBreakdown(60, 24)
	assert.Equal(t, int64(2), b.Cartons)
	assert.Equal(t, int64(12), b.Pieces)
	assert.Equal(t, int64(60), b.Total())

	loose := NewBreakdown(7, 0)
	assert.Equal(t, int64(0), loose.Cartons)
	assert.Equal(t, int64(7), loose.Pieces)
	assert.Equal(t, int64(7), loose.Total())
}
