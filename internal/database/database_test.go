package database

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client, err := ConnectRedis(context.Background(), m.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestConnectRedisUnreachable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	addr := m.Addr()
	m.Close()

	_, err = ConnectRedis(context.Background(), addr, "", 0)
	require.Error(t, err)
}

func TestConnectMongoRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := ConnectMongoRetry(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50", 100*time.Millisecond, 3)
	require.Error(t, err)
}
