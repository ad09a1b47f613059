// Package reports builds the monthly reconciliation: opening, in, out and
// closing (or live available) quantities per product for a tenant.
package reports

import (
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
)

// OpeningSource records which rule produced a row's opening quantity.
type OpeningSource string

const (
	// OpeningFromSnapshot - posted opening snapshot on the first day of the month
	OpeningFromSnapshot OpeningSource = "opening_snapshot"

	// OpeningFromPriorClosing - posted closing snapshot on the last day of the previous month
	OpeningFromPriorClosing OpeningSource = "prior_closing"

	// OpeningDerived - current stock with movements since month start reversed out
	OpeningDerived OpeningSource = "derived"
)

// ReconciliationQuery selects the report.
type ReconciliationQuery struct {
	TenantID tenant.ID
	Month    domain.Month

	// ProductIDs restricts the report; empty means every product with any
	// stock, snapshot or movement in the tenant.
	ProductIDs []id.ID

	// MovementStatus selects which documents count toward in/out.
	MovementStatus domain.MovementStatus

	// Now decides whether Month is current; zero means time.Now().
	Now time.Time
}

// Validate normalizes the query.
func (q *ReconciliationQuery) Validate() error {
	if id.IsNil(q.TenantID) {
		return apperror.NewFieldValidation("tenantId", "tenant is required")
	}
	if q.Month.Year == 0 || q.Month.Month == 0 {
		return apperror.NewFieldValidation("month", "month is required")
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	if domain.MonthOf(q.Now).Before(q.Month) {
		return apperror.NewFieldValidation("month", "month is in the future").
			WithDetail("month", q.Month.String())
	}
	status, err := domain.ParseMovementStatus(string(q.MovementStatus))
	if err != nil {
		return err
	}
	q.MovementStatus = status
	return nil
}

// Inputs are the facts Derive needs for one product.
type Inputs struct {
	Month domain.Month
	Now   time.Time

	// Posted snapshot quantities; nil when absent.
	OpeningAtStart     *int64
	ClosingBeforeStart *int64
	ClosingAtEnd       *int64

	// Aggregate is the live stock total.
	Aggregate int64

	// Movements dated from month start onward, without an upper bound.
	ReceiptsSinceStart int64
	IssuesSinceStart   int64

	// Movements dated within the month.
	In  int64
	Out int64
}

// Row is one product line of the report. Exactly one of Closing and
// Available is set.
type Row struct {
	ProductID   id.ID  `json:"productId"`
	ProductName string `json:"productName"`
	ProductCode string `json:"productCode"`
	TenantName  string `json:"tenantName"`

	Opening   int64  `json:"opening"`
	In        int64  `json:"in"`
	Out       int64  `json:"out"`
	Closing   *int64 `json:"closing"`
	Available *int64 `json:"available"`
	IsClosed  bool   `json:"isClosed"`

	OpeningSource OpeningSource `json:"openingSource"`
}

// IsZero reports whether the row carries no activity and may be suppressed.
func (r Row) IsZero() bool {
	return r.Opening == 0 && r.In == 0 && r.Out == 0 &&
		(r.Closing == nil || *r.Closing == 0) &&
		(r.Available == nil || *r.Available == 0)
}

// Derive computes a row from inputs.
//
// Opening prefers the posted opening snapshot, then the previous month's
// posted closing snapshot, then aggregate - receipts since start + issues
// since start. Closing uses the posted closing snapshot at month end;
// otherwise the current month reports the live aggregate as Available and a
// past month reports opening + in - out.
func Derive(in Inputs) Row {
	row := Row{In: in.In, Out: in.Out}

	switch {
	case in.OpeningAtStart != nil:
		row.Opening = *in.OpeningAtStart
		row.OpeningSource = OpeningFromSnapshot
	case in.ClosingBeforeStart != nil:
		row.Opening = *in.ClosingBeforeStart
		row.OpeningSource = OpeningFromPriorClosing
	default:
		row.Opening = in.Aggregate - in.ReceiptsSinceStart + in.IssuesSinceStart
		row.OpeningSource = OpeningDerived
	}

	switch {
	case in.ClosingAtEnd != nil:
		closing := *in.ClosingAtEnd
		row.Closing = &closing
		row.IsClosed = true
	case in.Month == domain.MonthOf(in.Now):
		available := in.Aggregate
		row.Available = &available
	default:
		closing := row.Opening + row.In - row.Out
		row.Closing = &closing
	}

	return row
}
