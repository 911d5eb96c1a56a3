package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// LedgerHandler posts and lists inventory transactions.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// Post handles POST /transactions
func (h *LedgerHandler) Post(c *gin.Context) {
	var req dto.PostTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	postReq, err := req.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}
	t, err := h.service.Post(c.Request.Context(), postReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t)
}

// Get handles GET /transactions/:id
func (h *LedgerHandler) Get(c *gin.Context) {
	transactionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	t, err := h.service.Get(c.Request.Context(), transactionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// ListByReference handles GET /transactions?reference=
func (h *LedgerHandler) ListByReference(c *gin.Context) {
	var q dto.ListTransactionsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	txs, err := h.service.ListByReference(c.Request.Context(), q.Reference)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewDataResponse(txs))
}

// Transfer handles POST /transfers
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	transferReq, err := req.ToRequest()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.Transfer(c.Request.Context(), transferReq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}
