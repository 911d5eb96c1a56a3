package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/item"
)

func TestDeltas(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		qty  int64
		want item.Delta
	}{
		{"restock", TypeRestock, 5, item.Delta{Quantity: 5}},
		{"return", TypeReturn, 2, item.Delta{Quantity: 2}},
		{"sale consumes the hold", TypeSale, 3, item.Delta{Quantity: -3, Reserved: -3}},
		{"positive adjustment", TypeAdjustment, 4, item.Delta{Quantity: 4}},
		{"negative adjustment", TypeAdjustment, -4, item.Delta{Quantity: -4}},
		{"reservation", TypeReservation, 6, item.Delta{Reserved: 6}},
		{"release", TypeRelease, 6, item.Delta{Reserved: -6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deltas(tt.typ, tt.qty)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeltas_Rejects(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		qty  int64
	}{
		{"transfer", TypeTransfer, 1},
		{"unknown type", Type("shrinkage"), 1},
		{"zero restock", TypeRestock, 0},
		{"negative sale", TypeSale, -1},
		{"zero adjustment", TypeAdjustment, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deltas(tt.typ, tt.qty)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func TestReplayDelta_TransferSign(t *testing.T) {
	src, dst := id.New(), id.New()
	tr := &Transaction{Type: TypeTransfer, Quantity: 7, SourceLocationID: &src, DestinationLocationID: &dst}

	assert.Equal(t, int64(-7), tr.replayDelta(src).Quantity)
	assert.Equal(t, int64(7), tr.replayDelta(dst).Quantity)
}
