package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidTransition_NamesBothStates(t *testing.T) {
	err := NewInvalidTransition("reservation", "fulfilled", "active")

	assert.Equal(t, CodeInvalidTransition, err.Code)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Equal(t, "fulfilled", err.Details["from"])
	assert.Equal(t, "active", err.Details["to"])
	assert.Contains(t, err.Message, "fulfilled")
	assert.Contains(t, err.Message, "active")
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create reservation: %w", NewInsufficientStock("item-1", 5, 3))

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(wrapped))

	appErr, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, int64(5), appErr.Details["requested"])
}

func TestIsConflict_Family(t *testing.T) {
	assert.True(t, IsConflict(NewConflict("location has associated inventory items")))
	assert.True(t, IsConflict(NewDuplicate("inventory item", "sku", "A1")))
	assert.False(t, IsConflict(NewValidation("quantity must be positive")))
	assert.False(t, IsConflict(NewConcurrentModification("item", "x")))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestError_IncludesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
