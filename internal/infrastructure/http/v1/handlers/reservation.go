package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ReservationHandler places and resolves stock holds.
type ReservationHandler struct {
	*BaseHandler
	service    *reservation.Service
	defaultTTL time.Duration
}

// NewReservationHandler creates a reservation handler. defaultTTL applies to
// requests without expiresAt.
func NewReservationHandler(base *BaseHandler, service *reservation.Service, defaultTTL time.Duration) *ReservationHandler {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &ReservationHandler{BaseHandler: base, service: service, defaultTTL: defaultTTL}
}

// Create handles POST /reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	createReq, err := req.ToRequest(time.Now().UTC(), h.defaultTTL)
	if err != nil {
		h.Error(c, err)
		return
	}
	r, err := h.service.Create(c.Request.Context(), createReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r)
}

// Get handles GET /reservations/:id
func (h *ReservationHandler) Get(c *gin.Context) {
	reservationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), reservationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// Transition handles POST /reservations/:id/transition
func (h *ReservationHandler) Transition(c *gin.Context) {
	reservationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := h.service.Transition(c.Request.Context(), reservationID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// List handles GET /reservations?orderId=|cartId=
// Order lookups return every status; cart lookups only active holds.
func (h *ReservationHandler) List(c *gin.Context) {
	var q dto.ListReservationsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if err := q.Validate(); err != nil {
		h.Error(c, err)
		return
	}

	var (
		res []*reservation.Reservation
		err error
	)
	if q.OrderID != "" {
		res, err = h.service.ListByOrder(c.Request.Context(), q.OrderID)
	} else {
		res, err = h.service.ListByCart(c.Request.Context(), q.CartID)
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(res))
}
