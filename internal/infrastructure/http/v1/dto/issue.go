package dto

import (
	"strings"

	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain/documents/issue"
)

// --- Request DTOs ---

// IssueRequest creates or replaces a draft issue.
type IssueRequest struct {
	DocumentHeaderRequest
	AllowShortage bool               `json:"allowShortage,omitempty"`
	Items         []IssueItemRequest `json:"items" binding:"required,min=1,dive"`
}

// IssueItemRequest represents one issued line. StockRecordID pins the
// record to draw from; otherwise posting resolves one.
type IssueItemRequest struct {
	ProductID     string       `json:"productId" binding:"required"`
	Quantity      int64        `json:"quantity" binding:"required,gt=0"`
	BatchNumber   string       `json:"batchNumber,omitempty" binding:"max=64"`
	StockRecordID string       `json:"stockRecordId,omitempty"`
	UnitCost      *types.Money `json:"unitCost,omitempty"`
}

// ToEntity builds a new draft issue.
func (r *IssueRequest) ToEntity(tenantID tenant.ID, actor string) (*issue.Issue, error) {
	doc := issue.New(tenantID)
	doc.CreatedBy = actor
	if err := r.ApplyTo(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ApplyTo replaces header fields and items of doc.
func (r *IssueRequest) ApplyTo(doc *issue.Issue) error {
	if err := r.DocumentHeaderRequest.ApplyTo(&doc.Document); err != nil {
		return err
	}
	doc.AllowShortage = r.AllowShortage

	doc.Items = make([]issue.Item, 0, len(r.Items))
	for _, line := range r.Items {
		productID, err := ParseID("productId", line.ProductID)
		if err != nil {
			return err
		}
		recordID, err := ParseOptionalID("stockRecordId", line.StockRecordID)
		if err != nil {
			return err
		}
		item := doc.AddItem(productID, line.Quantity)
		item.BatchNumber = strings.TrimSpace(line.BatchNumber)
		item.StockRecordID = recordID
		if line.UnitCost != nil {
			item.UnitCost = *line.UnitCost
		}
	}
	return nil
}

// --- Response DTOs ---

// IssueResponse represents an issue in API responses.
type IssueResponse struct {
	DocumentResponse
	AllowShortage bool                `json:"allowShortage"`
	Items         []IssueItemResponse `json:"items"`
	TotalQuantity int64               `json:"totalQuantity"`
	TotalShortage int64               `json:"totalShortage"`
}

// IssueItemResponse represents an issue line with its posting outcome.
type IssueItemResponse struct {
	LineID           string  `json:"lineId"`
	LineNo           int     `json:"lineNo"`
	ProductID        string  `json:"productId"`
	Quantity         int64   `json:"quantity"`
	BatchNumber      string  `json:"batchNumber,omitempty"`
	StockRecordID    *string `json:"stockRecordId,omitempty"`
	UnitCost         string  `json:"unitCost"`
	ResolvedRecordID *string `json:"resolvedRecordId,omitempty"`
	ShortageQty      int64   `json:"shortageQty"`
}

// FromIssue converts entity to response DTO.
func FromIssue(doc *issue.Issue) IssueResponse {
	resp := IssueResponse{
		DocumentResponse: FromDocument(doc.Document),
		AllowShortage:    doc.AllowShortage,
		Items:            make([]IssueItemResponse, 0, len(doc.Items)),
		TotalShortage:    doc.TotalShortage(),
	}
	for _, item := range doc.Items {
		resp.Items = append(resp.Items, IssueItemResponse{
			LineID:           item.LineID.String(),
			LineNo:           item.LineNo,
			ProductID:        item.ProductID.String(),
			Quantity:         item.Quantity,
			BatchNumber:      item.BatchNumber,
			StockRecordID:    idString(item.StockRecordID),
			UnitCost:         item.UnitCost.StringFixed(types.CostPlaces),
			ResolvedRecordID: idString(item.ResolvedRecordID),
			ShortageQty:      item.ShortageQty,
		})
		resp.TotalQuantity += item.Quantity
	}
	return resp
}
