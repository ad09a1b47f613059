package dto

import (
	"time"

	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain/snapshot"
)

// --- Request DTOs ---

// SnapshotRequest creates or replaces a draft snapshot. The breakdown is
// derived from the product pack size when omitted.
type SnapshotRequest struct {
	ProductID string            `json:"productId" binding:"required"`
	Date      string            `json:"date" binding:"required"`
	Quantity  int64             `json:"quantity" binding:"gte=0"`
	Breakdown *BreakdownRequest `json:"breakdown,omitempty"`
	// Status is honoured on create only.
	Status string `json:"status,omitempty" binding:"omitempty,oneof=draft posted"`
	PricingRequest
}

// BreakdownRequest is an explicit cartons/pieces split.
type BreakdownRequest struct {
	Cartons       int64 `json:"cartons" binding:"gte=0"`
	Pieces        int64 `json:"pieces" binding:"gte=0"`
	PiecesPerPack int64 `json:"piecesPerPack" binding:"gte=0"`
}

// ToEntity builds a new snapshot of kind.
func (r *SnapshotRequest) ToEntity(kind snapshot.Kind, tenantID tenant.ID, actor string) (*snapshot.Snapshot, error) {
	snap := snapshot.New(kind, tenantID, id.Nil(), time.Time{}, 0)
	if err := r.ApplyTo(snap); err != nil {
		return nil, err
	}
	snap.CreatedBy = actor
	status, err := entity.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	if status == entity.StatusPosted {
		snap.MarkPosted(actor, time.Now())
	}
	return snap, nil
}

// ApplyTo writes the editable fields onto snap. Prices not sent are cleared
// so the catalogue fills them again.
func (r *SnapshotRequest) ApplyTo(snap *snapshot.Snapshot) error {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return err
	}
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return err
	}
	snap.ProductID = productID
	snap.Date = date
	snap.Quantity = r.Quantity

	snap.Breakdown = types.Breakdown{}
	if r.Breakdown != nil {
		snap.Breakdown = types.Breakdown{
			Cartons:       r.Breakdown.Cartons,
			Pieces:        r.Breakdown.Pieces,
			PiecesPerPack: r.Breakdown.PiecesPerPack,
		}
	}
	snap.Pricing = types.Pricing{}
	r.PricingRequest.ApplyTo(&snap.Pricing)
	return nil
}

// ConvertRequest runs the batch aggregation converter.
type ConvertRequest struct {
	Date   string `json:"date,omitempty"`
	Status string `json:"status,omitempty" binding:"omitempty,oneof=draft posted"`
}

// ToOptions builds converter options for kind.
func (r *ConvertRequest) ToOptions(kind snapshot.Kind, actor string) (snapshot.ConvertOptions, error) {
	opts := snapshot.ConvertOptions{Kind: kind, Actor: actor}
	date, err := ParseOptionalDate("date", r.Date)
	if err != nil {
		return opts, err
	}
	if date != nil {
		opts.Date = *date
	}
	status, err := entity.ParseStatus(r.Status)
	if err != nil {
		return opts, err
	}
	opts.Status = status
	return opts, nil
}

// ConvertResponse reports how many snapshots were created.
type ConvertResponse struct {
	Created int `json:"created"`
}

// SnapshotListQuery adds snapshot filters to the list parameters.
type SnapshotListQuery struct {
	ListQuery
	ProductID string `form:"productId"`
}

func (q SnapshotListQuery) ToFilter(kind snapshot.Kind, tenantID tenant.ID) (snapshot.ListFilter, error) {
	base, err := q.ListQuery.ToFilter(tenantID)
	if err != nil {
		return snapshot.ListFilter{}, err
	}
	productID, err := ParseOptionalID("productId", q.ProductID)
	if err != nil {
		return snapshot.ListFilter{}, err
	}
	return snapshot.ListFilter{ListFilter: base, Kind: kind, ProductID: productID}, nil
}

// --- Response DTOs ---

// SnapshotResponse represents a snapshot in API responses.
type SnapshotResponse struct {
	BaseResponse
	LifecycleResponse
	Kind          snapshot.Kind `json:"kind"`
	ProductID     string        `json:"productId"`
	Date          string        `json:"date"`
	Quantity      int64         `json:"quantity"`
	Cartons       int64         `json:"cartons"`
	Pieces        int64         `json:"pieces"`
	PiecesPerPack int64         `json:"piecesPerPack"`
	PricingResponse
}

func FromSnapshot(s *snapshot.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		BaseResponse:      FromBaseDocument(s.BaseDocument),
		LifecycleResponse: FromLifecycle(s.Lifecycle),
		Kind:              s.Kind,
		ProductID:         s.ProductID.String(),
		Date:              s.Date.Format(DateLayout),
		Quantity:          s.Quantity,
		Cartons:           s.Cartons,
		Pieces:            s.Pieces,
		PiecesPerPack:     s.PiecesPerPack,
		PricingResponse:   FromPricing(s.Pricing),
	}
}
