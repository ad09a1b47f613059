package handlers

import (
	"github.com/gin-gonic/gin"

	"distledger/internal/domain/snapshot"
	"distledger/internal/infrastructure/http/v1/dto"
)

// SnapshotHandler serves both snapshot kinds; the kind comes from the
// :kind path parameter.
type SnapshotHandler struct {
	*BaseHandler
	service   *snapshot.Service
	converter *snapshot.Converter
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(base *BaseHandler, service *snapshot.Service, converter *snapshot.Converter) *SnapshotHandler {
	return &SnapshotHandler{BaseHandler: base, service: service, converter: converter}
}

func (h *SnapshotHandler) kind(c *gin.Context) (snapshot.Kind, bool) {
	kind, err := snapshot.ParseKind(c.Param("kind"))
	if err != nil {
		h.Error(c, err)
		return "", false
	}
	return kind, true
}

// List handles GET /snapshots/:kind
func (h *SnapshotHandler) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var q dto.SnapshotListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter(kind, tenantID)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MapList(res, dto.FromSnapshot))
}

// Create handles POST /snapshots/:kind
func (h *SnapshotHandler) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var req dto.SnapshotRequest
	if !h.BindJSON(c, &req) {
		return
	}
	snap, err := req.ToEntity(kind, tenantID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), snap); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSnapshot(snap))
}

// Get handles GET /snapshots/:kind/:id
func (h *SnapshotHandler) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	snapshotID, ok := h.ParamID(c)
	if !ok {
		return
	}

	snap, err := h.service.GetByID(c.Request.Context(), kind, tenantID, snapshotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSnapshot(snap))
}

// Update handles PUT /snapshots/:kind/:id
func (h *SnapshotHandler) Update(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	snapshotID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.SnapshotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	snap, err := h.service.GetByID(ctx, kind, tenantID, snapshotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(snap); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, snap); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSnapshot(snap))
}

// Delete handles DELETE /snapshots/:kind/:id
func (h *SnapshotHandler) Delete(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	snapshotID, ok := h.ParamID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), kind, tenantID, snapshotID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Post handles POST /snapshots/:kind/:id/post
func (h *SnapshotHandler) Post(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	snapshotID, ok := h.ParamID(c)
	if !ok {
		return
	}

	snap, err := h.service.Post(c.Request.Context(), kind, tenantID, snapshotID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSnapshot(snap))
}

// Revert handles POST /snapshots/:kind/:id/revert
func (h *SnapshotHandler) Revert(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	snapshotID, ok := h.ParamID(c)
	if !ok {
		return
	}

	snap, err := h.service.Revert(c.Request.Context(), kind, tenantID, snapshotID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSnapshot(snap))
}

// Convert handles POST /snapshots/:kind/convert. The body is optional.
func (h *SnapshotHandler) Convert(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var req dto.ConvertRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	opts, err := req.ToOptions(kind, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.converter.ConvertFromStocks(c.Request.Context(), tenantID, opts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ConvertResponse{Created: created})
}
