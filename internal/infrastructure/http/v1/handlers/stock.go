package handlers

import (
	"github.com/gin-gonic/gin"

	"distledger/internal/domain/stock"
	"distledger/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for stock records.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// List handles GET /stock
func (h *StockHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.StockListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter(tenantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MapList(res, dto.FromStockRecord))
}

// Create handles POST /stock
func (h *StockHandler) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.CreateStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rec, err := req.ToEntity(tenantID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), rec); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromStockRecord(rec))
}

// Get handles GET /stock/:id
func (h *StockHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	recordID, ok := h.ParamID(c)
	if !ok {
		return
	}

	rec, err := h.service.GetByID(c.Request.Context(), tenantID, recordID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockRecord(rec))
}

// Adjust handles POST /stock/:id/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	recordID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mode, err := stock.ParseAdjustMode(req.Mode)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Adjust(c.Request.Context(), tenantID, recordID, req.Delta, mode,
		stock.AdjustOptions{AllowShortage: req.AllowShortage})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAdjustResult(res))
}

// Delete handles DELETE /stock/:id
func (h *StockHandler) Delete(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	recordID, ok := h.ParamID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, recordID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
