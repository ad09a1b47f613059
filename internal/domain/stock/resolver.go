package stock

import (
	"sort"
	"strings"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
)

// ResolveQuery identifies the record an issue line draws from.
type ResolveQuery struct {
	ProductID     id.ID
	BatchNumber   string
	StockRecordID *id.ID

	// Quantity is the amount the line needs; zero skips the coverage rule
	Quantity int64
}

// Resolve picks the record an issue line decrements from a full candidate set.
//
// An explicit StockRecordID wins and must belong to the product. Otherwise
// records of the product (and batch, when given) are considered; rows that
// cover q.Quantity are preferred, then rows with stock on hand, then earliest
// expiry (no expiry last), then earliest creation, then id. The result does
// not depend on candidate order.
func Resolve(candidates []*Record, q ResolveQuery) (*Record, error) {
	if q.StockRecordID != nil {
		for _, c := range candidates {
			if c.ID != *q.StockRecordID {
				continue
			}
			if c.ProductID != q.ProductID {
				return nil, apperror.NewFieldValidation("stockRecordId", "stock record belongs to another product").
					WithDetail("stockRecordId", c.ID.String())
			}
			return c, nil
		}
		return nil, apperror.NewNotFound("stock record", q.StockRecordID.String())
	}

	batch := strings.TrimSpace(q.BatchNumber)
	matches := make([]*Record, 0, len(candidates))
	for _, c := range candidates {
		if c.ProductID != q.ProductID {
			continue
		}
		if batch != "" && c.BatchNumber != batch {
			continue
		}
		matches = append(matches, c)
	}
	if len(matches) == 0 {
		return nil, apperror.NewNotFound("stock record", q.ProductID.String()).
			WithDetail("batchNumber", batch)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return resolveLess(matches[i], matches[j], q.Quantity)
	})
	return matches[0], nil
}

func resolveLess(a, b *Record, need int64) bool {
	if need > 0 && (a.Quantity >= need) != (b.Quantity >= need) {
		return a.Quantity >= need
	}
	if (a.Quantity > 0) != (b.Quantity > 0) {
		return a.Quantity > 0
	}
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return id.Less(a.ID, b.ID)
}
