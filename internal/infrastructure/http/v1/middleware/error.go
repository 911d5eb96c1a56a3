// Package middleware holds the gin middleware chain: tracing, logging, auth, idempotency and error rendering.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
			finishIdempotency(c, appErr.HTTPStatus, body)
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error", "error", err)

		body := gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString(keyRequestID),
			},
		}
		finishIdempotency(c, http.StatusInternalServerError, body)
		c.JSON(http.StatusInternalServerError, body)
	}
}

// finishIdempotency records the error response for the request's key. Client
// errors are stored for replay; server errors release the key so a retry runs
// the operation again.
func finishIdempotency(c *gin.Context, status int, body any) {
	key, store, ok := IdempotencyFromContext(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var err error
	if status >= http.StatusInternalServerError {
		err = store.ReleaseKey(ctx, key)
	} else {
		err = store.FailKey(ctx, key, status, "application/json", body)
	}
	if err != nil {
		logger.Warn(ctx, "idempotency key not finalized", "key", key, "error", err)
	}
}
