package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ItemHandler serves inventory items and their ledger views.
type ItemHandler struct {
	*BaseHandler
	service      *item.Service
	ledger       *ledger.Service
	reservations *reservation.Service
	history      audit.HistoryReader
}

// NewItemHandler creates an item handler. history may be nil.
func NewItemHandler(
	base *BaseHandler,
	service *item.Service,
	ledgerService *ledger.Service,
	reservations *reservation.Service,
	history audit.HistoryReader,
) *ItemHandler {
	return &ItemHandler{
		BaseHandler:  base,
		service:      service,
		ledger:       ledgerService,
		reservations: reservations,
		history:      history,
	}
}

// List handles GET /items
func (h *ItemHandler) List(c *gin.Context) {
	var q dto.ListItemsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.GenericListResponse[dto.ItemResponse]{
		Data:       dto.FromItems(result.Items),
		Pagination: dto.NewPaginationResponse(q.Page, q.PageSize, result.TotalCount),
	})
}

// Create handles POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	createReq, err := req.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}
	it, err := h.service.Create(c.Request.Context(), createReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromItem(it))
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	it, err := h.service.Get(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(it))
}

// Update handles PATCH /items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	it, err := h.service.Update(c.Request.Context(), itemID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(it))
}

// Delete handles DELETE /items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// LowStock handles GET /items/low-stock
func (h *ItemHandler) LowStock(c *gin.Context) {
	items, err := h.service.ListLowStock(c.Request.Context())
	h.list(c, items, err)
}

// OutOfStock handles GET /items/out-of-stock
func (h *ItemHandler) OutOfStock(c *gin.Context) {
	items, err := h.service.ListOutOfStock(c.Request.Context())
	h.list(c, items, err)
}

// BySKU handles GET /items/by-sku/:sku?locationId=
func (h *ItemHandler) BySKU(c *gin.Context) {
	var q dto.FindBySKUQuery
	if !h.BindQuery(c, &q) {
		return
	}
	locationID, err := q.Location()
	if err != nil {
		h.Error(c, err)
		return
	}
	items, err := h.service.FindBySKU(c.Request.Context(), c.Param("sku"), locationID)
	h.list(c, items, err)
}

// ByProduct handles GET /items/by-product/:productId
func (h *ItemHandler) ByProduct(c *gin.Context) {
	items, err := h.service.ListByProduct(c.Request.Context(), c.Param("productId"))
	h.list(c, items, err)
}

// Adjust handles POST /items/:id/adjust
func (h *ItemHandler) Adjust(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	it, err := h.service.AdjustQuantity(c.Request.Context(), itemID, req.Delta, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(it))
}

// Transactions handles GET /items/:id/transactions
func (h *ItemHandler) Transactions(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	txs, err := h.ledger.ListByItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(txs))
}

// Reservations handles GET /items/:id/reservations
func (h *ItemHandler) Reservations(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	res, err := h.reservations.ListByItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(res))
}

// Reconcile handles GET /items/:id/reconcile
func (h *ItemHandler) Reconcile(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	report, err := h.ledger.Reconcile(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// History handles GET /items/:id/history
func (h *ItemHandler) History(c *gin.Context) {
	historyFor(h.BaseHandler, h.history, item.EntityType)(c)
}

func (h *ItemHandler) list(c *gin.Context, items []*item.Item, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(dto.FromItems(items)))
}
