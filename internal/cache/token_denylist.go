package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenDenylist records revoked JWT IDs in redis until their natural expiry.
// Logout writes here; the authenticate middleware reads.
type TokenDenylist struct {
	client *redis.Client
}

func NewTokenDenylist(addr string, db int) *TokenDenylist {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &TokenDenylist{client: client}
}

func (d *TokenDenylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *TokenDenylist) Close() error {
	return d.client.Close()
}

func denylistKey(jti string) string {
	return "denylist:" + jti
}

func (d *TokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired, nothing to revoke.
		return nil
	}
	if err := d.client.Set(ctx, denylistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("TokenDenylist.Revoke: %w", err)
	}
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, denylistKey(jti)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("TokenDenylist.IsRevoked: %w", err)
	}
	return true, nil
}
