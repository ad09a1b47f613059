package handlers

import (
	"github.com/gin-gonic/gin"

	"distledger/internal/domain/documents/issue"
	"distledger/internal/infrastructure/http/v1/dto"
)

// IssueHandler handles HTTP requests for issues.
type IssueHandler struct {
	*BaseHandler
	service *issue.Service

	// allowShortage is the default when the request does not say.
	allowShortage bool
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(base *BaseHandler, service *issue.Service, allowShortage bool) *IssueHandler {
	return &IssueHandler{BaseHandler: base, service: service, allowShortage: allowShortage}
}

// List handles GET /issues
func (h *IssueHandler) List(c *gin.Context) {
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
	h.OK(c, dto.MapList(res, dto.FromIssue))
}

// Create handles POST /issues
func (h *IssueHandler) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req dto.IssueRequest
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
	h.Created(c, dto.FromIssue(doc))
}

// Get handles GET /issues/:id
func (h *IssueHandler) Get(c *gin.Context) {
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
	h.OK(c, dto.FromIssue(doc))
}

// Update handles PUT /issues/:id
func (h *IssueHandler) Update(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.IssueRequest
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
	h.OK(c, dto.FromIssue(doc))
}

// Delete handles DELETE /issues/:id
func (h *IssueHandler) Delete(c *gin.Context) {
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

// Post handles POST /issues/:id/post. ?allowShortage=true clamps lines
// short of stock at zero instead of failing.
func (h *IssueHandler) Post(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}

	opts := issue.PostOptions{AllowShortage: h.ParseBoolQuery(c, "allowShortage", h.allowShortage)}
	doc, err := h.service.Post(c.Request.Context(), tenantID, docID, h.ActorID(c), opts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromIssue(doc))
}
