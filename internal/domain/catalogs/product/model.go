// Package product exposes the read-only Product reference the ledger consumes:
// code, name, pack size and default pricing.
package product

import (
	"context"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/types"
)

// Product is catalogue reference data. The ledger never writes it.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// PiecesPerPack is the carton size used for cartons/pieces breakdowns
	PiecesPerPack int64 `db:"pieces_per_pack" json:"piecesPerPack"`

	// Default pricing copied onto lines that do not carry their own
	types.Pricing

	Active bool `db:"active" json:"active"`
}

// DefaultPricing returns the catalogue price snapshot.
func (p *Product) DefaultPricing() types.Pricing {
	return p.Pricing
}

// Reader loads products by id.
type Reader interface {
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetMany returns the products found; missing ids are simply absent.
	GetMany(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)
}

// RequireAll loads every id and fails with NOT_FOUND on the first one missing.
func RequireAll(ctx context.Context, r Reader, productIDs []id.ID) (map[id.ID]*Product, error) {
	found, err := r.GetMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, pid := range productIDs {
		if _, ok := found[pid]; !ok {
			return nil, apperror.NewNotFound("product", pid.String())
		}
	}
	return found, nil
}
