package dto

import (
	"distledger/internal/core/apperror"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/reports"
)

// --- Reconciliation Report ---

// ReconciliationRequest selects the month and filters.
type ReconciliationRequest struct {
	Month      string   `form:"month" binding:"required"`
	Status     string   `form:"status" binding:"omitempty,oneof=posted all"`
	ProductIDs []string `form:"productId"`
}

// ToQuery converts the request to a domain query.
func (r *ReconciliationRequest) ToQuery(tenantID tenant.ID) (reports.ReconciliationQuery, error) {
	m, err := domain.ParseMonth(r.Month)
	if err != nil {
		return reports.ReconciliationQuery{}, apperror.NewFieldValidation("month", "month must be YYYY-MM")
	}
	q := reports.ReconciliationQuery{
		TenantID:       tenantID,
		Month:          m,
		MovementStatus: domain.MovementStatus(r.Status),
	}
	for _, raw := range r.ProductIDs {
		pid, err := ParseID("productId", raw)
		if err != nil {
			return q, err
		}
		q.ProductIDs = append(q.ProductIDs, pid)
	}
	return q, nil
}

// ReconciliationResponse is the report for one tenant and month.
type ReconciliationResponse struct {
	Month  string                      `json:"month"`
	Status string                      `json:"status"`
	Rows   []ReconciliationRowResponse `json:"rows"`
	Totals ReconciliationTotals        `json:"totals"`
}

// ReconciliationRowResponse is one product line.
type ReconciliationRowResponse struct {
	ProductID     string `json:"productId"`
	ProductCode   string `json:"productCode"`
	ProductName   string `json:"productName"`
	TenantName    string `json:"tenantName"`
	Opening       int64  `json:"opening"`
	In            int64  `json:"in"`
	Out           int64  `json:"out"`
	Closing       *int64 `json:"closing"`
	Available     *int64 `json:"available"`
	IsClosed      bool   `json:"isClosed"`
	OpeningSource string `json:"openingSource"`
}

// ReconciliationTotals sums every column; Closing and Available only over
// rows that carry them.
type ReconciliationTotals struct {
	Opening   int64 `json:"opening"`
	In        int64 `json:"in"`
	Out       int64 `json:"out"`
	Closing   int64 `json:"closing"`
	Available int64 `json:"available"`
}

// FromReconciliation converts report rows to the response DTO.
func FromReconciliation(q reports.ReconciliationQuery, rows []reports.Row) ReconciliationResponse {
	resp := ReconciliationResponse{
		Month:  q.Month.String(),
		Status: string(q.MovementStatus),
		Rows:   make([]ReconciliationRowResponse, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, ReconciliationRowResponse{
			ProductID:     row.ProductID.String(),
			ProductCode:   row.ProductCode,
			ProductName:   row.ProductName,
			TenantName:    row.TenantName,
			Opening:       row.Opening,
			In:            row.In,
			Out:           row.Out,
			Closing:       row.Closing,
			Available:     row.Available,
			IsClosed:      row.IsClosed,
			OpeningSource: string(row.OpeningSource),
		})
		resp.Totals.Opening += row.Opening
		resp.Totals.In += row.In
		resp.Totals.Out += row.Out
		if row.Closing != nil {
			resp.Totals.Closing += *row.Closing
		}
		if row.Available != nil {
			resp.Totals.Available += *row.Available
		}
	}
	return resp
}

