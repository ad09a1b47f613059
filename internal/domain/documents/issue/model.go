// Package issue provides the Issue document: goods shipped or consumed.
// Posting an issue decrements one resolved stock record per item.
package issue

import (
	"context"
	"strings"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain/stock"
)

// NumberPrefix is prepended to generated issue numbers.
const NumberPrefix = "ISS"

// Issue is a goods issue.
type Issue struct {
	entity.Document

	// AllowShortage lets posting clamp records at zero instead of failing.
	AllowShortage bool `db:"allow_shortage" json:"allowShortage"`

	Items []Item `db:"-" json:"items"`
}

// Item is one issued line. Resolution fields are filled on posting.
type Item struct {
	LineID     id.ID `db:"line_id" json:"lineId"`
	DocumentID id.ID `db:"document_id" json:"-"`
	LineNo     int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID  `db:"product_id" json:"productId"`
	Quantity    int64  `db:"quantity" json:"quantity"`
	BatchNumber string `db:"batch_number" json:"batchNumber,omitempty"`

	// StockRecordID pins the line to a specific record
	StockRecordID *id.ID `db:"stock_record_id" json:"stockRecordId,omitempty"`

	// UnitCost is copied from the resolved record
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	ResolvedRecordID *id.ID `db:"resolved_record_id" json:"resolvedRecordId,omitempty"`
	ShortageQty      int64  `db:"shortage_qty" json:"shortageQty"`
}

func (i Item) LineProduct() id.ID  { return i.ProductID }
func (i Item) LineQuantity() int64 { return i.Quantity }

// ResolveQuery returns the stock lookup for this line.
func (i Item) ResolveQuery() stock.ResolveQuery {
	return stock.ResolveQuery{
		ProductID:     i.ProductID,
		BatchNumber:   i.BatchNumber,
		StockRecordID: i.StockRecordID,
		Quantity:      i.Quantity,
	}
}

// New creates a draft issue.
func New(tenantID tenant.ID) *Issue {
	return &Issue{
		Document: entity.NewDocument(tenantID),
		Items:    make([]Item, 0),
	}
}

// AddItem appends a line and returns it for further population.
func (d *Issue) AddItem(productID id.ID, quantity int64) *Item {
	d.Items = append(d.Items, Item{
		LineID:     id.New(),
		DocumentID: d.ID,
		LineNo:     len(d.Items) + 1,
		ProductID:  productID,
		Quantity:   quantity,
	})
	return &d.Items[len(d.Items)-1]
}

// Validate implements entity.Validatable.
func (d *Issue) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}

	if len(d.Items) == 0 {
		return apperror.NewFieldValidation("items", "at least one item is required")
	}

	for i := range d.Items {
		item := &d.Items[i]
		if id.IsNil(item.ProductID) {
			return apperror.NewFieldValidation("items", "product is required").
				WithDetail("lineNo", i+1)
		}
		if item.Quantity <= 0 {
			return apperror.NewFieldValidation("items", "quantity must be positive").
				WithDetail("lineNo", i+1)
		}

		if id.IsNil(item.LineID) {
			item.LineID = id.New()
		}
		item.DocumentID = d.ID
		item.LineNo = i + 1
		item.BatchNumber = strings.TrimSpace(item.BatchNumber)

		// resolution is owned by posting
		item.ResolvedRecordID = nil
		item.ShortageQty = 0
	}

	return nil
}

// TotalShortage sums shortages absorbed on posting.
func (d *Issue) TotalShortage() int64 {
	var total int64
	for _, item := range d.Items {
		total += item.ShortageQty
	}
	return total
}

func clone(d *Issue) *Issue {
	cp := *d
	cp.Items = nil
	return &cp
}
