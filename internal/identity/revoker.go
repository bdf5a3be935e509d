package identity

import (
	"context"
	"sync"
	"time"
)

// Revoker 登出后的 jti 黑名单；cache.Revocations 是 Redis 版本
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker 未配置 Redis 时的单进程实现
type MemoryRevoker struct {
	mu  sync.Mutex
	m   map[string]time.Time
	now func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{m: map[string]time.Time{}, now: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	// 顺手清掉已过期的条目
	for k, exp := range r.m {
		if !exp.After(now) {
			delete(r.m, k)
		}
	}
	if until.After(now) {
		r.m[jti] = until
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.m[jti]
	return ok && exp.After(r.now()), nil
}
