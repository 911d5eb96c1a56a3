package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTrace(t *testing.T) {
	assert.Nil(t, GetTrace(context.Background()))

	tc := NewTraceContext()
	got := GetTrace(WithTrace(context.Background(), tc))
	assert.Same(t, tc, got)
	assert.NotEqual(t, got.TraceID, got.RequestID)
}
