package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusActive, StatusFulfilled, StatusExpired, StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := from == StatusActive && to != StatusActive
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(StatusActive, Status("paused")))
}

func TestCreateRequestValidate(t *testing.T) {
	now := time.Now()
	valid := CreateRequest{InventoryID: id.New(), Quantity: 1, CartID: "c1", ExpiresAt: now.Add(time.Minute)}
	assert.NoError(t, valid.Validate(now))

	tests := map[string]func(r *CreateRequest){
		"zero quantity":       func(r *CreateRequest) { r.Quantity = 0 },
		"no order or cart":    func(r *CreateRequest) { r.CartID = "" },
		"both order and cart": func(r *CreateRequest) { r.OrderID = "o1" },
		"missing expiry":      func(r *CreateRequest) { r.ExpiresAt = time.Time{} },
		"expiry in the past":  func(r *CreateRequest) { r.ExpiresAt = now.Add(-time.Second) },
		"missing item":        func(r *CreateRequest) { r.InventoryID = id.ID{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := valid
			mutate(&r)
			assert.True(t, apperror.IsValidation(r.Validate(now)))
		})
	}
}
