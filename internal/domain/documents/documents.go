// Package documents holds what receipts and issues share: the header/line
// contracts, numbering and an in-memory store.
package documents

import (
	"context"
	"fmt"

	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/numerator"
)

// Header is implemented by every stock-moving document.
type Header interface {
	DocumentHeader() *entity.Document
}

// Line is implemented by document items.
type Line interface {
	LineProduct() id.ID
	LineQuantity() int64
}

// AssignNumber fills an empty document number from the generator, using the
// document date as the numbering period.
func AssignNumber(ctx context.Context, gen numerator.Generator, doc *entity.Document, prefix string) error {
	if doc.Number != "" {
		return nil
	}
	number, err := gen.GetNextNumber(ctx, doc.TenantID, numerator.DefaultConfig(prefix), nil, doc.Date)
	if err != nil {
		return fmt.Errorf("generate number: %w", err)
	}
	doc.Number = number
	return nil
}

// ProductIDs returns the distinct products referenced by lines, in line order.
func ProductIDs[L Line](lines []L) []id.ID {
	seen := make(map[id.ID]struct{}, len(lines))
	out := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		pid := l.LineProduct()
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}
	return out
}

// TotalQuantity sums line quantities.
func TotalQuantity[L Line](lines []L) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineQuantity()
	}
	return total
}
