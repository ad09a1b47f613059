package handlers

import (
	"github.com/gin-gonic/gin"

	"distledger/internal/domain/documents/receipt"
	"distledger/internal/infrastructure/http/v1/dto"
)

// ReceiptHandler handles HTTP requests for receipts.
type ReceiptHandler struct {
	*BaseHandler
	service *receipt.Service
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service) *ReceiptHandler {
	return &ReceiptHandler{BaseHandler: base, service: service}
}

// List handles GET /receipts
func (h *ReceiptHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
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
	h.OK(c, dto.MapList(res, dto.FromReceipt))
}

// Create handles POST /receipts
func (h *ReceiptHandler) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.ReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity(tenantID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromReceipt(doc))
}

// Get handles GET /receipts/:id
func (h *ReceiptHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), tenantID, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReceipt(doc))
}

// Update handles PUT /receipts/:id
func (h *ReceiptHandler) Update(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.ReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	doc, err := h.service.GetByID(ctx, tenantID, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(doc); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReceipt(doc))
}

// Delete handles DELETE /receipts/:id
func (h *ReceiptHandler) Delete(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Post handles POST /receipts/:id/post
func (h *ReceiptHandler) Post(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	doc, err := h.service.Post(c.Request.Context(), tenantID, docID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReceipt(doc))
}
