package dto

import (
	"strings"

	"distledger/internal/core/tenant"
	"distledger/internal/domain/documents/receipt"
)

// --- Request DTOs ---

// ReceiptRequest creates or replaces a draft receipt.
type ReceiptRequest struct {
	DocumentHeaderRequest
	Items []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiptItemRequest represents one received line.
type ReceiptItemRequest struct {
	ProductID   string `json:"productId" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	BatchNumber string `json:"batchNumber,omitempty" binding:"max=64"`
	ExpiryDate  string `json:"expiryDate,omitempty"`
	Location    string `json:"location,omitempty" binding:"max=128"`
	PricingRequest
}

// ToEntity builds a new draft receipt.
func (r *ReceiptRequest) ToEntity(tenantID tenant.ID, actor string) (*receipt.Receipt, error) {
	doc := receipt.New(tenantID)
	doc.CreatedBy = actor
	if err := r.ApplyTo(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApplyTo replaces header fields and items of doc.
func (r *ReceiptRequest) ApplyTo(doc *receipt.Receipt) error {
	if err := r.DocumentHeaderRequest.ApplyTo(&doc.Document); err != nil {
		return err
	}

	doc.Items = make([]receipt.Item, 0, len(r.Items))
	for _, line := range r.Items {
		productID, err := ParseID("productId", line.ProductID)
		if err != nil {
			return err
		}
		expiry, err := ParseOptionalDate("expiryDate", line.ExpiryDate)
		if err != nil {
			return err
		}
		item := doc.AddItem(productID, line.Quantity)
		item.BatchNumber = strings.TrimSpace(line.BatchNumber)
		item.ExpiryDate = expiry
		item.Location = line.Location
		line.PricingRequest.ApplyTo(&item.Pricing)
	}
	return nil
}

// --- Response DTOs ---

// ReceiptResponse represents a receipt in API responses.
type ReceiptResponse struct {
	DocumentResponse
	Items         []ReceiptItemResponse `json:"items"`
	TotalQuantity int64                 `json:"totalQuantity"`
}

// ReceiptItemResponse represents a receipt line.
type ReceiptItemResponse struct {
	LineID      string  `json:"lineId"`
	LineNo      int     `json:"lineNo"`
	ProductID   string  `json:"productId"`
	Quantity    int64   `json:"quantity"`
	BatchNumber string  `json:"batchNumber,omitempty"`
	ExpiryDate  *string `json:"expiryDate,omitempty"`
	Location    string  `json:"location,omitempty"`
	PricingResponse
}

// FromReceipt converts entity to response DTO.
func FromReceipt(doc *receipt.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		DocumentResponse: FromDocument(doc.Document),
		Items:            make([]ReceiptItemResponse, 0, len(doc.Items)),
	}
	for _, item := range doc.Items {
		line := ReceiptItemResponse{
			LineID:          item.LineID.String(),
			LineNo:          item.LineNo,
			ProductID:       item.ProductID.String(),
			Quantity:        item.Quantity,
			BatchNumber:     item.BatchNumber,
			Location:        item.Location,
			PricingResponse: FromPricing(item.Pricing),
		}
		if item.ExpiryDate != nil {
			s := item.ExpiryDate.Format(DateLayout)
			line.ExpiryDate = &s
		}
		resp.Items = append(resp.Items, line)
		resp.TotalQuantity += item.Quantity
	}
	return resp
}
