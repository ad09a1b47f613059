// Package snapshot provides dated Opening and Closing quantity records per
// product and tenant. Posting a snapshot is a status change only; snapshots
// are audit facts and never move stock.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain"
)

// Kind is the semantic role of a snapshot.
type Kind string

const (
	KindOpening Kind = "opening"
	KindClosing Kind = "closing"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindOpening || k == KindClosing
}

// ParseKind converts user input to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", apperror.NewFieldValidation("kind", fmt.Sprintf("kind must be opening or closing, got %q", s))
	}
	return k, nil
}

// Snapshot is a recorded quantity for a product on a day.
// At most one exists per (kind, tenant, product, date).
type Snapshot struct {
	entity.BaseDocument
	entity.Lifecycle

	// Kind selects the table; it is not a column.
	Kind Kind `db:"-" json:"kind"`

	ProductID id.ID     `db:"product_id" json:"productId"`
	Date      time.Time `db:"date" json:"date"`
	Quantity  int64     `db:"quantity" json:"quantity"`

	types.Breakdown
	types.Pricing
}

// New creates a draft snapshot.
func New(kind Kind, tenantID tenant.ID, productID id.ID, date time.Time, quantity int64) *Snapshot {
	return &Snapshot{
		BaseDocument: entity.NewBaseDocument(tenantID),
		Lifecycle:    entity.Lifecycle{Status: entity.StatusDraft},
		Kind:         kind,
		ProductID:    productID,
		Date:         domain.TruncateDay(date),
		Quantity:     quantity,
	}
}

// Validate implements entity.Validatable.
func (s *Snapshot) Validate(ctx context.Context) error {
	if err := s.BaseDocument.Validate(ctx); err != nil {
		return err
	}
	if !s.Kind.IsValid() {
		return apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}
	if id.IsNil(s.ProductID) {
		return apperror.NewFieldValidation("productId", "product is required")
	}
	if s.Date.IsZero() {
		return apperror.NewFieldValidation("date", "date is required")
	}
	if s.Quantity < 0 {
		return apperror.NewFieldValidation("quantity", "quantity must not be negative")
	}
	if s.Cartons < 0 || s.Pieces < 0 || s.PiecesPerPack < 0 {
		return apperror.NewFieldValidation("cartons", "breakdown must not be negative")
	}
	if !s.Breakdown.IsZero() && s.Breakdown.Total() != s.Quantity {
		return apperror.NewFieldValidation("cartons", "cartons and pieces do not add up to quantity").
			WithDetail("breakdownTotal", s.Breakdown.Total())
	}
	if s.Pricing.IsNegative() {
		return apperror.NewFieldValidation("unitCost", "prices must not be negative")
	}
	if s.Status != "" && !s.Status.IsValid() {
		return apperror.NewFieldValidation("status", "unknown status")
	}

	s.Date = domain.TruncateDay(s.Date)
	return nil
}

// entityName is used in error details.
func (s *Snapshot) entityName() string {
	return string(s.Kind) + " snapshot"
}

// ListFilter for snapshot listings.
type ListFilter struct {
	domain.ListFilter

	Kind      Kind
	ProductID *id.ID
}

// Validate normalizes the filter.
func (f *ListFilter) Validate() error {
	if !f.Kind.IsValid() {
		return apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}
	return f.ListFilter.Validate()
}
