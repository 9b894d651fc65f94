package revocation

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newDenylist(t *testing.T) (*Denylist, *mr.Miniredis) {
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return New(redis.NewClient(&redis.Options{Addr: m.Addr()})), m
}

func TestRevokeUntilExpiry(t *testing.T) {
	d, m := newDenylist(t)
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "access-token-1", time.Now().Add(2*time.Second)))

	ok, err := d.IsRevoked(ctx, "access-token-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = d.IsRevoked(ctx, "other-token")
	require.NoError(t, err)
	require.False(t, ok)

	m.FastForward(3 * time.Second)
	ok, err = d.IsRevoked(ctx, "access-token-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevokeStoresHashOnly(t *testing.T) {
	d, m := newDenylist(t)
	require.NoError(t, d.Revoke(context.Background(), "secret-token", time.Time{}))

	keys := m.Keys()
	require.Len(t, keys, 1)
	require.NotContains(t, keys[0], "secret-token")
	require.Equal(t, MaxTTL, m.TTL(keys[0]))
}

func TestRevokeExpiredToken(t *testing.T) {
	d, _ := newDenylist(t)
	err := d.Revoke(context.Background(), "old", time.Now().Add(-time.Minute))
	require.ErrorIs(t, err, ErrAlreadyExpired)
}
