// Package stock provides the StockRecord store: batch-level on-hand quantity
// rows per product and tenant, mutated by receipt and issue postings.
package stock

import (
	"context"
	"strings"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
)

// Record is one on-hand quantity row. Many records may exist for the same
// product and tenant, one per batch or receipt lineage.
type Record struct {
	entity.BaseDocument

	ProductID   id.ID      `db:"product_id" json:"productId"`
	Quantity    int64      `db:"quantity" json:"quantity"`
	BatchNumber string     `db:"batch_number" json:"batchNumber,omitempty"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`
	Location    string     `db:"location" json:"location,omitempty"`

	types.Pricing

	// SourceReceiptID links rows created by receipt posting back to the document
	SourceReceiptID *id.ID `db:"source_receipt_id" json:"sourceReceiptId,omitempty"`
}

// NewRecord creates a record for a tenant and product.
func NewRecord(tenantID tenant.ID, productID id.ID, quantity int64) *Record {
	return &Record{
		BaseDocument: entity.NewBaseDocument(tenantID),
		ProductID:    productID,
		Quantity:     quantity,
	}
}

// Validate implements entity.Validatable.
func (r *Record) Validate(ctx context.Context) error {
	if err := r.BaseDocument.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.ProductID) {
		return apperror.NewFieldValidation("productId", "product is required")
	}
	if r.Quantity < 0 {
		return apperror.NewFieldValidation("quantity", "quantity must not be negative")
	}
	if r.Pricing.IsNegative() {
		return apperror.NewFieldValidation("unitCost", "prices must not be negative")
	}
	r.BatchNumber = strings.TrimSpace(r.BatchNumber)
	return nil
}

// AdjustMode selects how Adjust applies its delta.
type AdjustMode string

const (
	ModeAdd      AdjustMode = "add"
	ModeSubtract AdjustMode = "subtract"
	ModeSet      AdjustMode = "set"
)

// ParseAdjustMode converts user input to an AdjustMode.
func ParseAdjustMode(s string) (AdjustMode, error) {
	switch AdjustMode(s) {
	case ModeAdd, ModeSubtract, ModeSet:
		return AdjustMode(s), nil
	default:
		return "", apperror.NewFieldValidation("mode", "mode must be add, subtract or set")
	}
}

// AdjustOptions tunes a single adjustment.
type AdjustOptions struct {
	// AllowShortage clamps a subtract at zero instead of failing.
	AllowShortage bool
}

// AdjustResult describes the outcome of an adjustment.
type AdjustResult struct {
	Record   *Record `json:"record"`
	Previous int64   `json:"previous"`

	// Shortage is the quantity absorbed by clamping at zero.
	Shortage int64 `json:"shortage"`
}

// Apply computes the new quantity for an adjustment without touching storage.
// Subtracting more than is on hand fails with INSUFFICIENT_STOCK unless
// allowShortage is set, in which case the result is zero and the absorbed
// amount is returned as shortage.
func Apply(productID id.ID, current, delta int64, mode AdjustMode, allowShortage bool) (next, shortage int64, err error) {
	if delta < 0 {
		return current, 0, apperror.NewFieldValidation("delta", "delta must not be negative")
	}

	switch mode {
	case ModeAdd:
		return current + delta, 0, nil
	case ModeSet:
		return delta, 0, nil
	case ModeSubtract:
		if delta <= current {
			return current - delta, 0, nil
		}
		if !allowShortage {
			return current, 0, apperror.NewInsufficientStock(productID.String(), delta, current)
		}
		return 0, delta - current, nil
	default:
		return current, 0, apperror.NewFieldValidation("mode", "mode must be add, subtract or set")
	}
}
