package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig_Defaults(t *testing.T) {
	pc, err := PoolConfig{URL: "postgres://app@localhost:5432/stock", AppName: "stockledger"}.pgxConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(25), pc.MaxConns)
	assert.Equal(t, int32(5), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, pc.MaxConnIdleTime)
	assert.Equal(t, "stockledger", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_MinNeverExceedsMax(t *testing.T) {
	pc, err := PoolConfig{URL: "postgres://app@localhost:5432/stock", MaxConns: 2, MinConns: 10}.pgxConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
}

func TestPoolConfig_BadURL(t *testing.T) {
	_, err := PoolConfig{URL: "postgres://%zz"}.pgxConfig()
	assert.Error(t, err)
}
