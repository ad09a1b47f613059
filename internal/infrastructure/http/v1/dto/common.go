// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/types"
	"distledger/internal/domain"
)

// DateLayout is the wire format of business dates.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the UTC day.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperror.NewFieldValidation(field, "date must be YYYY-MM-DD")
	}
	return domain.TruncateDay(t), nil
}

// ParseOptionalDate is ParseDate that maps "" to nil.
func ParseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseID parses a required id field.
func ParseID(field, s string) (id.ID, error) {
	v, err := id.Parse(s)
	if err != nil {
		return id.Nil(), apperror.NewFieldValidation(field, "invalid id format")
	}
	return v, nil
}

// ParseOptionalID parses an id field that may be empty.
func ParseOptionalID(field, s string) (*id.ID, error) {
	v, err := id.ParseOptional(s)
	if err != nil {
		return nil, apperror.NewFieldValidation(field, "invalid id format")
	}
	return v, nil
}

// --- Pricing ---

// PricingRequest carries optional prices; decimals may be sent as strings or numbers.
type PricingRequest struct {
	UnitCost    *types.Money `json:"unitCost,omitempty"`
	TradePrice  *types.Money `json:"tradePrice,omitempty"`
	RetailPrice *types.Money `json:"retailPrice,omitempty"`
}

// ApplyTo overwrites the prices that were sent.
func (r PricingRequest) ApplyTo(p *types.Pricing) {
	if r.UnitCost != nil {
		p.UnitCost = *r.UnitCost
	}
	if r.TradePrice != nil {
		p.TradePrice = *r.TradePrice
	}
	if r.RetailPrice != nil {
		p.RetailPrice = *r.RetailPrice
	}
}

// PricingResponse renders prices as fixed-point strings.
type PricingResponse struct {
	UnitCost    string `json:"unitCost"`
	TradePrice  string `json:"tradePrice"`
	RetailPrice string `json:"retailPrice"`
}

func FromPricing(p types.Pricing) PricingResponse {
	return PricingResponse{
		UnitCost:    p.UnitCost.StringFixed(types.CostPlaces),
		TradePrice:  p.TradePrice.StringFixed(types.CostPlaces),
		RetailPrice: p.RetailPrice.StringFixed(types.CostPlaces),
	}
}

// --- List ---

// ListQuery contains the common list parameters.
type ListQuery struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Month    string `form:"month"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	OrderBy  string `form:"orderBy"`
	Limit    int    `form:"limit" binding:"omitempty,min=0,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a domain filter. Month wins over the date range.
func (q ListQuery) ToFilter(tenantID tenant.ID) (domain.ListFilter, error) {
	f := domain.DefaultListFilter(tenantID)
	f.Search = strings.TrimSpace(q.Search)
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset

	status, err := entity.ParseStatus(q.Status)
	if err != nil {
		return f, err
	}
	f.Status = status

	if q.Month != "" {
		m, err := domain.ParseMonth(q.Month)
		if err != nil {
			return f, apperror.NewFieldValidation("month", "month must be YYYY-MM")
		}
		return f.WithMonth(m), nil
	}
	if f.DateFrom, err = ParseOptionalDate("dateFrom", q.DateFrom); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseOptionalDate("dateTo", q.DateTo); err != nil {
		return f, err
	}
	return f, nil
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// MapList converts a domain page with fn.
func MapList[S any, T any](res domain.ListResult[S], fn func(S) T) ListResponse[T] {
	items := make([]T, 0, len(res.Items))
	for _, v := range res.Items {
		items = append(items, fn(v))
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// --- Base DTOs ---

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
}

func FromBaseDocument(b entity.BaseDocument) BaseResponse {
	return BaseResponse{
		ID:        b.ID.String(),
		TenantID:  b.TenantID.String(),
		Version:   b.Version,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
		CreatedBy: b.CreatedBy,
	}
}

// LifecycleResponse renders the draft/posted state.
type LifecycleResponse struct {
	Status   entity.Status `json:"status"`
	PostedBy string        `json:"postedBy,omitempty"`
	PostedAt *time.Time    `json:"postedAt,omitempty"`
}

func FromLifecycle(l entity.Lifecycle) LifecycleResponse {
	return LifecycleResponse{Status: l.Status, PostedBy: l.PostedBy, PostedAt: l.PostedAt}
}

// DocumentResponse contains document header fields.
type DocumentResponse struct {
	BaseResponse
	LifecycleResponse
	Number  string `json:"number"`
	Date    string `json:"date"`
	Comment string `json:"comment,omitempty"`
}

// FromDocument creates DocumentResponse from entity.Document.
func FromDocument(d entity.Document) DocumentResponse {
	return DocumentResponse{
		BaseResponse:      FromBaseDocument(d.BaseDocument),
		LifecycleResponse: FromLifecycle(d.Lifecycle),
		Number:            d.Number,
		Date:              d.Date.Format(DateLayout),
		Comment:           d.Comment,
	}
}

// DocumentHeaderRequest carries editable header fields.
type DocumentHeaderRequest struct {
	Number  string `json:"number,omitempty" binding:"max=64"`
	Date    string `json:"date" binding:"required"`
	Comment string `json:"comment,omitempty"`
}

// ApplyTo writes the header onto d.
func (r DocumentHeaderRequest) ApplyTo(d *entity.Document) error {
	date, err := ParseDate("date", r.Date)
	if err != nil {
		return err
	}
	d.Number = strings.TrimSpace(r.Number)
	d.Date = date
	d.Comment = r.Comment
	return nil
}

// --- Misc ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
