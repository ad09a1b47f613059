package audit

import (
	"time"

	"distledger/internal/domain"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
)

// Receipt describes a receipt with its lines.
func Receipt(doc *receipt.Receipt) Subject {
	lines := make([]map[string]any, 0, len(doc.Items))
	for _, it := range doc.Items {
		lines = append(lines, map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"batch":      it.BatchNumber,
			"unit_cost":  it.UnitCost.String(),
		})
	}
	return Subject{
		TenantID:   doc.TenantID,
		EntityType: "receipt",
		EntityID:   doc.ID,
		Changes: map[string]any{
			"number":  doc.Number,
			"date":    doc.Date.Format(time.DateOnly),
			"status":  doc.Status,
			"version": doc.Version,
			"items":   lines,
		},
	}
}

// Issue describes an issue including resolved records and shortages.
func Issue(doc *issue.Issue) Subject {
	lines := make([]map[string]any, 0, len(doc.Items))
	for _, it := range doc.Items {
		line := map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
		}
		if it.ResolvedRecordID != nil {
			line["stock_record_id"] = *it.ResolvedRecordID
		}
		if it.ShortageQty > 0 {
			line["shortage"] = it.ShortageQty
		}
		lines = append(lines, line)
	}
	return Subject{
		TenantID:   doc.TenantID,
		EntityType: "issue",
		EntityID:   doc.ID,
		Changes: map[string]any{
			"number":         doc.Number,
			"date":           doc.Date.Format(time.DateOnly),
			"status":         doc.Status,
			"allow_shortage": doc.AllowShortage,
			"version":        doc.Version,
			"items":          lines,
		},
	}
}

// Snapshot describes an opening or closing snapshot.
func Snapshot(s *snapshot.Snapshot) Subject {
	return Subject{
		TenantID:   s.TenantID,
		EntityType: string(s.Kind) + "_snapshot",
		EntityID:   s.ID,
		Changes: map[string]any{
			"product_id": s.ProductID,
			"date":       s.Date.Format(time.DateOnly),
			"quantity":   s.Quantity,
			"status":     s.Status,
			"unit_cost":  s.UnitCost.String(),
		},
	}
}

// StockRecord describes a stock record.
func StockRecord(r *stock.Record) Subject {
	return Subject{
		TenantID:   r.TenantID,
		EntityType: "stock_record",
		EntityID:   r.ID,
		Changes: map[string]any{
			"product_id": r.ProductID,
			"quantity":   r.Quantity,
			"batch":      r.BatchNumber,
			"version":    r.Version,
		},
	}
}

// Services groups the hook owners the ledger audits.
type Services struct {
	Stock     *stock.Service
	Receipts  *receipt.Service
	Issues    *issue.Service
	Snapshots *snapshot.Service
}

// AttachAll wires w to every ledger service. Stock creations are implied by
// receipt posts, so only stock adjustments and deletes are recorded.
func AttachAll(w Writer, s Services) {
	if s.Stock != nil {
		Attach(w, s.Stock.Hooks(), StockRecord, domain.AfterUpdate, domain.AfterDelete)
	}
	if s.Receipts != nil {
		Attach(w, s.Receipts.Hooks(), Receipt)
	}
	if s.Issues != nil {
		Attach(w, s.Issues.Hooks(), Issue)
	}
	if s.Snapshots != nil {
		Attach(w, s.Snapshots.Hooks(), Snapshot)
	}
}
