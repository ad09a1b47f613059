// Package types provides value types shared by the ledger: money, pricing
// snapshots and carton breakdowns.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// CostPlaces is the rounding scale used for derived unit costs.
const CostPlaces int32 = 4

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Pricing is the price snapshot copied onto a stock row or document line at
// write time, so later catalogue changes do not rewrite history.
type Pricing struct {
	UnitCost    Money `db:"unit_cost" json:"unitCost"`
	TradePrice  Money `db:"trade_price" json:"tradePrice"`
	RetailPrice Money `db:"retail_price" json:"retailPrice"`
}

// IsZero reports whether no price is set.
func (p Pricing) IsZero() bool {
	return p.UnitCost.IsZero() && p.TradePrice.IsZero() && p.RetailPrice.IsZero()
}

// IsNegative reports whether any price in the snapshot is below zero.
func (p Pricing) IsNegative() bool {
	return p.UnitCost.IsNegative() || p.TradePrice.IsNegative() || p.RetailPrice.IsNegative()
}

// WeightedTerm is one (quantity, value) pair of a weighted average.
type WeightedTerm struct {
	Quantity int64
	Value    Money
}

// WeightedAverage returns Σ(qᵢ·vᵢ)/Σqᵢ rounded to CostPlaces.
// Terms with non-positive quantity are ignored; the result is zero when no
// positive quantity remains.
func WeightedAverage(terms []WeightedTerm) Money {
	total := decimal.Zero
	weighted := decimal.Zero
	for _, t := range terms {
		if t.Quantity <= 0 {
			continue
		}
		q := decimal.NewFromInt(t.Quantity)
		total = total.Add(q)
		weighted = weighted.Add(q.Mul(t.Value))
	}
	if total.IsZero() {
		return decimal.Zero
	}
	return weighted.DivRound(total, CostPlaces)
}

// WeightedPricing averages each price of the snapshot by quantity.
func WeightedPricing(quantities []int64, prices []Pricing) Pricing {
	cost := make([]WeightedTerm, 0, len(prices))
	trade := make([]WeightedTerm, 0, len(prices))
	retail := make([]WeightedTerm, 0, len(prices))
	for i, p := range prices {
		if i >= len(quantities) {
			break
		}
		cost = append(cost, WeightedTerm{Quantity: quantities[i], Value: p.UnitCost})
		trade = append(trade, WeightedTerm{Quantity: quantities[i], Value: p.TradePrice})
		retail = append(retail, WeightedTerm{Quantity: quantities[i], Value: p.RetailPrice})
	}
	return Pricing{
		UnitCost:    WeightedAverage(cost),
		TradePrice:  WeightedAverage(trade),
		RetailPrice: WeightedAverage(retail),
	}
}
