// Package receipt provides the Receipt document: goods received into stock.
// Posting a receipt creates one stock record per item.
package receipt

import (
	"context"
	"strings"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain/stock"
)

// NumberPrefix is prepended to generated receipt numbers.
const NumberPrefix = "RCP"

// Receipt is a goods receipt. Number carries the supplier reference
// (bilty number) when one is given.
type Receipt struct {
	entity.Document

	Items []Item `db:"-" json:"items"`
}

// Item is one received line.
type Item struct {
	LineID     id.ID `db:"line_id" json:"lineId"`
	DocumentID id.ID `db:"document_id" json:"-"`
	LineNo     int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID      `db:"product_id" json:"productId"`
	Quantity    int64      `db:"quantity" json:"quantity"`
	BatchNumber string     `db:"batch_number" json:"batchNumber,omitempty"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`
	Location    string     `db:"location" json:"location,omitempty"`

	types.Pricing
}

func (i Item) LineProduct() id.ID  { return i.ProductID }
func (i Item) LineQuantity() int64 { return i.Quantity }

// New creates a draft receipt.
func New(tenantID tenant.ID) *Receipt {
	return &Receipt{
		Document: entity.NewDocument(tenantID),
		Items:    make([]Item, 0),
	}
}

// AddItem appends a line and returns it for further population.
func (r *Receipt) AddItem(productID id.ID, quantity int64) *Item {
	r.Items = append(r.Items, Item{
		LineID:     id.New(),
		DocumentID: r.ID,
		LineNo:     len(r.Items) + 1,
		ProductID:  productID,
		Quantity:   quantity,
	})
	return &r.Items[len(r.Items)-1]
}

// normalizeItems renumbers lines and binds them to the document.
func (r *Receipt) normalizeItems() {
	for i := range r.Items {
		if id.IsNil(r.Items[i].LineID) {
			r.Items[i].LineID = id.New()
		}
		r.Items[i].DocumentID = r.ID
		r.Items[i].LineNo = i + 1
		r.Items[i].BatchNumber = strings.TrimSpace(r.Items[i].BatchNumber)
	}
}

// Validate implements entity.Validatable.
func (r *Receipt) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if len(r.Items) == 0 {
		return apperror.NewFieldValidation("items", "at least one item is required")
	}

	for i, item := range r.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewFieldValidation("items", "product is required").
				WithDetail("lineNo", i+1)
		}
		if item.Quantity <= 0 {
			return apperror.NewFieldValidation("items", "quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if item.Pricing.IsNegative() {
			return apperror.NewFieldValidation("items", "prices must not be negative").
				WithDetail("lineNo", i+1)
		}
	}

	r.normalizeItems()
	return nil
}

// StockRecord builds the stock record an item produces on posting.
func (r *Receipt) StockRecord(item Item) *stock.Record {
	rec := stock.NewRecord(r.TenantID, item.ProductID, item.Quantity)
	rec.BatchNumber = item.BatchNumber
	rec.ExpiryDate = item.ExpiryDate
	rec.Location = item.Location
	rec.Pricing = item.Pricing
	rec.CreatedBy = r.PostedBy
	docID := r.ID
	rec.SourceReceiptID = &docID
	return rec
}

func clone(r *Receipt) *Receipt {
	cp := *r
	cp.Items = nil
	return &cp
}
