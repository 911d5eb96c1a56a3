package item

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/apperror"
)

func TestAvailable(t *testing.T) {
	assert.Equal(t, int64(7), Available(10, 3))
	assert.Equal(t, int64(0), Available(3, 10))
	assert.Equal(t, int64(0), Available(0, 0))
}

func TestApply_ClampsAndRecomputes(t *testing.T) {
	it := &Item{Quantity: 5, ReservedQuantity: 2, AvailableQuantity: 3}

	it.Apply(Delta{Quantity: -8})
	assert.Equal(t, int64(0), it.Quantity)
	assert.Equal(t, int64(2), it.ReservedQuantity)
	assert.Equal(t, int64(0), it.AvailableQuantity)
	assert.NoError(t, it.CheckInvariant())

	it.Apply(Delta{Quantity: 10, Reserved: -5})
	assert.Equal(t, int64(10), it.Quantity)
	assert.Equal(t, int64(0), it.ReservedQuantity)
	assert.Equal(t, int64(10), it.AvailableQuantity)
}

func TestCheckDelta(t *testing.T) {
	it := &Item{Quantity: 10, ReservedQuantity: 2}

	assert.NoError(t, it.CheckDelta(Delta{Quantity: math.MaxInt64 - 10}))
	assert.NoError(t, it.CheckDelta(Delta{Quantity: math.MinInt64 + 1, Reserved: -2}))
	assert.True(t, apperror.IsValidation(it.CheckDelta(Delta{Quantity: math.MaxInt64 - 9})))
	assert.True(t, apperror.IsValidation(it.CheckDelta(Delta{Reserved: math.MaxInt64})))
}

func TestStockLevels(t *testing.T) {
	it := &Item{AvailableQuantity: 3, LowStockThreshold: 3}
	assert.True(t, it.IsLowStock())
	assert.False(t, it.IsOutOfStock())

	it.AvailableQuantity = 0
	assert.True(t, it.IsOutOfStock())
}

func TestPatchValidate(t *testing.T) {
	reserved := int64(1)
	assert.True(t, apperror.IsValidation(Patch{ReservedQuantity: &reserved}.Validate()))

	negative := int64(-1)
	assert.True(t, apperror.IsValidation(Patch{Quantity: &negative}.Validate()))
	assert.True(t, apperror.IsValidation(Patch{ReorderPoint: &negative}.Validate()))

	ok := int64(4)
	assert.NoError(t, Patch{LowStockThreshold: &ok, Quantity: &ok}.Validate())
}
