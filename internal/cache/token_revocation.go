package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RevokedTokenPrefix is the prefix for revoked access token IDs
	RevokedTokenPrefix = "attendance:revoked:"
)

// TokenRevocations is a Redis deny-list of access token IDs. Entries expire
// together with the token they revoke.
type TokenRevocations struct {
	client *redis.Client
	now    func() time.Time
}

func NewTokenRevocations(client *redis.Client) *TokenRevocations {
	return &TokenRevocations{client: client, now: time.Now}
}

// Revoke denies tokenID until its expiry. Already expired tokens are ignored.
func (r *TokenRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, RevokedTokenPrefix+tokenID, 1, ttl).Err()
}

func (r *TokenRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, RevokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
