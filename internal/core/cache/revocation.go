package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations 已登出 token 的 jti 黑名单，过期时间与 token 一致
type Revocations struct{ c *Cache }

func NewRevocations(c *Cache) *Revocations { return &Revocations{c: c} }

func (r *Revocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.c.RDB.Set(ctx, r.c.key("revoked:"+jti), "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.c.RDB.Get(ctx, r.c.key("revoked:"+jti)).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
