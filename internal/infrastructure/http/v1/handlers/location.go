package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/location"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// LocationHandler serves the location registry.
type LocationHandler struct {
	*BaseHandler
	service *location.Service
	items   *item.Service
	history audit.HistoryReader
}

// NewLocationHandler creates a location handler. history may be nil.
func NewLocationHandler(base *BaseHandler, service *location.Service, items *item.Service, history audit.HistoryReader) *LocationHandler {
	return &LocationHandler{BaseHandler: base, service: service, items: items, history: history}
}

// List handles GET /locations?includeInactive=
func (h *LocationHandler) List(c *gin.Context) {
	var q dto.ListLocationsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	locs, err := h.service.List(c.Request.Context(), q.IncludeInactive)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(locs))
}

// Create handles POST /locations
func (h *LocationHandler) Create(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	loc := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, loc)
}

// Get handles GET /locations/:id
func (h *LocationHandler) Get(c *gin.Context) {
	locationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	loc, err := h.service.Get(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// Update handles PATCH /locations/:id
func (h *LocationHandler) Update(c *gin.Context) {
	locationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	loc, err := h.service.Update(c.Request.Context(), locationID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// Delete handles DELETE /locations/:id
func (h *LocationHandler) Delete(c *gin.Context) {
	locationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), locationID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Items handles GET /locations/:id/items
func (h *LocationHandler) Items(c *gin.Context) {
	locationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	items, err := h.items.ListByLocation(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(dto.FromItems(items)))
}

// History handles GET /locations/:id/history
func (h *LocationHandler) History(c *gin.Context) {
	historyFor(h.BaseHandler, h.history, location.EntityType)(c)
}
