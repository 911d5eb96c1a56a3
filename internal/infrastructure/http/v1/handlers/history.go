package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/audit"
	"stockledger/internal/infrastructure/http/v1/dto"
)

const defaultHistoryLimit = 50

// historyFor serves the audit trail of the entity named by the :id parameter.
func historyFor(h *BaseHandler, reader audit.HistoryReader, entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reader == nil {
			h.Error(c, apperror.NewNotFound("audit history", entityType))
			return
		}
		entityID, ok := h.ParseID(c, "id")
		if !ok {
			return
		}
		var q dto.HistoryQuery
		if !h.BindQuery(c, &q) {
			return
		}
		if q.Limit == 0 {
			q.Limit = defaultHistoryLimit
		}

		entries, err := reader.History(c.Request.Context(), entityType, entityID, q.Limit)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NewDataResponse(entries))
	}
}
