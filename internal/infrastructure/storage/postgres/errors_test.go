package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	pg := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, TableName: "inventory_items", ConstraintName: "c"})
	}

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unique", pg("23505"), apperror.IsConflict},
		{"foreign key", pg("23503"), apperror.IsConflict},
		{"check", pg("23514"), apperror.IsValidation},
		{"out of range", pg("22003"), apperror.IsValidation},
		{"serialization", pg("40001"), apperror.IsConcurrentModification},
		{"deadlock", pg("40P01"), apperror.IsConcurrentModification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			assert.True(t, tt.check(mapped), "got %v", mapped)
			var pgErr *pgconn.PgError
			assert.True(t, errors.As(mapped, &pgErr), "cause must be kept")
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, MapError(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, MapError(plain))

	appErr := apperror.NewNotFound("inventory item", "x")
	assert.Same(t, appErr, MapError(appErr))

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), MapError(other))
}
