// Package domain provides types shared by the ledger services: list filters,
// paginated results, accounting periods and lifecycle hooks.
package domain

import (
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
)

// MaxListLimit caps page size for list endpoints.
const MaxListLimit = 500

// ListFilter contains common filtering options for document listings.
type ListFilter struct {
	// TenantID scopes the listing; required.
	TenantID tenant.ID

	// Search matches product name/code and document number
	Search string

	// Status filters by lifecycle state; empty means any
	Status entity.Status

	// DateFrom/DateTo bound the business date (inclusive)
	DateFrom *time.Time
	DateTo   *time.Time

	// OrderBy specifies sorting (e.g., "date", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults for a tenant.
func DefaultListFilter(tenantID tenant.ID) ListFilter {
	return ListFilter{
		TenantID: tenantID,
		Limit:    50,
		OrderBy:  "-date",
	}
}

// WithMonth restricts the date range to a calendar month.
func (f ListFilter) WithMonth(m Month) ListFilter {
	start, end := m.Start(), m.End()
	f.DateFrom = &start
	f.DateTo = &end
	return f
}

// Validate checks the filter before it reaches storage.
func (f *ListFilter) Validate() error {
	if id.IsNil(f.TenantID) {
		return apperror.NewFieldValidation("tenantId", "tenant is required")
	}
	if f.Status != "" && !f.Status.IsValid() {
		return apperror.NewFieldValidation("status", "unknown status")
	}
	if f.Limit < 0 || f.Offset < 0 {
		return apperror.NewValidation("limit and offset must not be negative")
	}
	if f.Limit == 0 || f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return apperror.NewFieldValidation("dateTo", "dateTo is before dateFrom")
	}
	return nil
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// MovementStatus selects which documents count toward movement sums.
type MovementStatus string

const (
	// MovementPosted counts posted documents only (default).
	MovementPosted MovementStatus = "posted"

	// MovementAll counts drafts as well.
	MovementAll MovementStatus = "all"
)

// ParseMovementStatus converts user input; empty input yields MovementPosted.
func ParseMovementStatus(s string) (MovementStatus, error) {
	switch MovementStatus(s) {
	case "", MovementPosted:
		return MovementPosted, nil
	case MovementAll:
		return MovementAll, nil
	default:
		return "", apperror.NewFieldValidation("status", "status must be posted or all")
	}
}

// MovementQuery selects receipt or issue lines to be summed.
type MovementQuery struct {
	TenantID  tenant.ID
	ProductID id.ID
	From      time.Time
	// To is inclusive; nil means open-ended.
	To     *time.Time
	Status MovementStatus
}

// Includes reports whether a document in the given state and date is counted.
func (q MovementQuery) Includes(status entity.Status, date time.Time) bool {
	if q.Status != MovementAll && status != entity.StatusPosted {
		return false
	}
	d := TruncateDay(date)
	if d.Before(TruncateDay(q.From)) {
		return false
	}
	if q.To != nil && d.After(TruncateDay(*q.To)) {
		return false
	}
	return true
}
