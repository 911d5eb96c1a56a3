package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/availability"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// AvailabilityHandler answers cross-location stock questions for a product.
type AvailabilityHandler struct {
	*BaseHandler
	service *availability.Service
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(base *BaseHandler, service *availability.Service) *AvailabilityHandler {
	return &AvailabilityHandler{BaseHandler: base, service: service}
}

// Totals handles GET /availability/:productId
func (h *AvailabilityHandler) Totals(c *gin.Context) {
	totals, err := h.service.TotalsForProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, totals)
}

// Check handles GET /availability/:productId/check?quantity=
func (h *AvailabilityHandler) Check(c *gin.Context) {
	var q dto.AvailabilityCheckQuery
	if !h.BindQuery(c, &q) {
		return
	}
	check, err := h.service.IsAvailable(c.Request.Context(), c.Param("productId"), q.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, check)
}
