package handlers

import (
	"github.com/gin-gonic/gin"

	"distledger/internal/domain/reports"
	"distledger/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// GetReconciliation handles GET /reports/reconciliation?month=YYYY-MM&status=posted|all&productId=...
func (h *ReportsHandler) GetReconciliation(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.ReconciliationRequest
	if !h.BindQuery(c, &req) {
		return
	}
	q, err := req.ToQuery(tenantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := q.Validate(); err != nil {
		h.Error(c, err)
		return
	}

	rows, err := h.service.Build(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReconciliation(q, rows))
}
