// Package revocation keeps a Redis denylist of bearer tokens that were
// revoked before they expired.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:access:"

// MaxTTL bounds how long an entry is kept when the token carries no expiry.
const MaxTTL = 24 * time.Hour

var ErrAlreadyExpired = errors.New("token already expired")

type Denylist struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Denylist {
	return &Denylist{client: client, now: time.Now}
}

// key hashes the token so raw credentials never sit in Redis.
func key(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Revoke denylists raw until expiresAt. A zero expiresAt uses MaxTTL.
func (d *Denylist) Revoke(ctx context.Context, raw string, expiresAt time.Time) error {
	ttl := MaxTTL
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(d.now())
		if ttl <= 0 {
			return ErrAlreadyExpired
		}
		if ttl > MaxTTL {
			ttl = MaxTTL
		}
	}
	return d.client.Set(ctx, key(raw), "1", ttl).Err()
}

func (d *Denylist) IsRevoked(ctx context.Context, raw string) (bool, error) {
	n, err := d.client.Exists(ctx, key(raw)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Denylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
