package dto

import (
	"strings"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain/stock"
)

// --- Request DTOs ---

// CreateStockRequest registers an on-hand row directly.
type CreateStockRequest struct {
	ProductID   string `json:"productId" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"gte=0"`
	BatchNumber string `json:"batchNumber,omitempty" binding:"max=64"`
	ExpiryDate  string `json:"expiryDate,omitempty"`
	Location    string `json:"location,omitempty" binding:"max=128"`
	PricingRequest
}

// ToEntity converts request to domain entity.
func (r *CreateStockRequest) ToEntity(tenantID tenant.ID, actor string) (*stock.Record, error) {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return nil, err
	}
	expiry, err := ParseOptionalDate("expiryDate", r.ExpiryDate)
	if err != nil {
		return nil, err
	}

	rec := stock.NewRecord(tenantID, productID, r.Quantity)
	rec.BatchNumber = strings.TrimSpace(r.BatchNumber)
	rec.ExpiryDate = expiry
	rec.Location = r.Location
	rec.CreatedBy = actor
	r.PricingRequest.ApplyTo(&rec.Pricing)
	return rec, nil
}

// AdjustStockRequest changes a row's quantity.
type AdjustStockRequest struct {
	Delta         int64  `json:"delta" binding:"gte=0"`
	Mode          string `json:"mode" binding:"required,oneof=add subtract set"`
	AllowShortage bool   `json:"allowShortage,omitempty"`
}

// StockListQuery adds stock-specific filters to the list parameters.
type StockListQuery struct {
	Search            string `form:"search"`
	ProductID         string `form:"productId"`
	BatchNumber       string `form:"batchNumber"`
	LowStock          bool   `form:"lowStock"`
	LowStockThreshold int64  `form:"lowStockThreshold" binding:"omitempty,min=0"`
	OrderBy           string `form:"orderBy"`
	Limit             int    `form:"limit" binding:"omitempty,min=0,max=500"`
	Offset            int    `form:"offset" binding:"omitempty,min=0"`
}

func (q StockListQuery) ToFilter(tenantID tenant.ID) (stock.ListFilter, error) {
	productID, err := ParseOptionalID("productId", q.ProductID)
	if err != nil {
		return stock.ListFilter{}, err
	}
	return stock.ListFilter{
		TenantID:          tenantID,
		Search:            strings.TrimSpace(q.Search),
		ProductID:         productID,
		BatchNumber:       strings.TrimSpace(q.BatchNumber),
		LowStock:          q.LowStock,
		LowStockThreshold: q.LowStockThreshold,
		OrderBy:           q.OrderBy,
		Limit:             q.Limit,
		Offset:            q.Offset,
	}, nil
}

// --- Response DTOs ---

// StockResponse represents a stock record in API responses.
type StockResponse struct {
	BaseResponse
	ProductID       string  `json:"productId"`
	Quantity        int64   `json:"quantity"`
	BatchNumber     string  `json:"batchNumber,omitempty"`
	ExpiryDate      *string `json:"expiryDate,omitempty"`
	Location        string  `json:"location,omitempty"`
	SourceReceiptID *string `json:"sourceReceiptId,omitempty"`
	PricingResponse
}

func FromStockRecord(r *stock.Record) StockResponse {
	resp := StockResponse{
		BaseResponse:    FromBaseDocument(r.BaseDocument),
		ProductID:       r.ProductID.String(),
		Quantity:        r.Quantity,
		BatchNumber:     r.BatchNumber,
		Location:        r.Location,
		PricingResponse: FromPricing(r.Pricing),
	}
	if r.ExpiryDate != nil {
		s := r.ExpiryDate.Format(DateLayout)
		resp.ExpiryDate = &s
	}
	resp.SourceReceiptID = idString(r.SourceReceiptID)
	return resp
}

// AdjustStockResponse reports the outcome of an adjustment.
type AdjustStockResponse struct {
	Record   StockResponse `json:"record"`
	Previous int64         `json:"previous"`
	Shortage int64         `json:"shortage"`
}

func FromAdjustResult(r *stock.AdjustResult) AdjustStockResponse {
	return AdjustStockResponse{
		Record:   FromStockRecord(r.Record),
		Previous: r.Previous,
		Shortage: r.Shortage,
	}
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
