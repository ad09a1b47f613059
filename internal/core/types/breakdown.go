package types

// Breakdown splits a unit count into full cartons and loose pieces.
type Breakdown struct {
	Cartons       int64 `db:"cartons" json:"cartons"`
	Pieces        int64 `db:"pieces" json:"pieces"`
	PiecesPerPack int64 `db:"pieces_per_pack" json:"piecesPerPack"`
}

// NewBreakdown derives cartons = quantity / piecesPerPack and pieces = remainder.
// A pack size of zero or less puts everything into pieces.
func NewBreakdown(quantity, piecesPerPack int64) Breakdown {
	if piecesPerPack <= 0 {
		return Breakdown{Pieces: quantity}
	}
	return Breakdown{
		Cartons:       quantity / piecesPerPack,
		Pieces:        quantity % piecesPerPack,
		PiecesPerPack: piecesPerPack,
	}
}

// Total returns the unit count represented by the breakdown.
func (b Breakdown) Total() int64 {
	if b.PiecesPerPack <= 0 {
		return b.Pieces
	}
	return b.Cartons*b.PiecesPerPack + b.Pieces
}

// IsZero reports whether no breakdown was supplied.
func (b Breakdown) IsZero() bool {
	return b.Cartons == 0 && b.Pieces == 0
}
