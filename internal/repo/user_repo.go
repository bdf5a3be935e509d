package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"clinic-manager/internal/core/cache"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
)

const rolesCacheKey = "roles:all"

// UserRepo 身份侧查询档案与角色，全部经由 store.Adapter
type UserRepo struct {
	a        *store.Adapter
	cache    *cache.Cache // 可为空
	rolesTTL time.Duration
}

func NewUserRepo(a *store.Adapter, c *cache.Cache, rolesTTL time.Duration) *UserRepo {
	if rolesTTL <= 0 {
		rolesTTL = 5 * time.Minute
	}
	return &UserRepo{a: a, cache: c, rolesTTL: rolesTTL}
}

// FindByAuthID 软删或不存在的档案都返回 nil, nil
func (r *UserRepo) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	u, err := store.GetByID[domain.User](ctx, r.a, domain.TableUsers, store.By("auth_id", authID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, nil
	}
	return u, nil
}

func (r *UserRepo) allRoles(ctx context.Context) ([]domain.Role, error) {
	load := func(ctx context.Context) (*[]domain.Role, error) {
		rows, err := store.GetAll[domain.Role](ctx, r.a, domain.TableRoles, store.ListOptions{OrderBy: "name"})
		if err != nil {
			return nil, err
		}
		return &rows, nil
	}
	if r.cache == nil {
		rows, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return *rows, nil
	}
	rows, err := cache.GetOrLoadJSON(r.cache, ctx, rolesCacheKey, r.rolesTTL, load)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return []domain.Role{}, nil
	}
	return *rows, nil
}

// InvalidateRoles roles 表写入后调用
func (r *UserRepo) InvalidateRoles(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx, rolesCacheKey)
}

// RoleNames 主角色 + 有效的附加角色，去重后按名称排序
func (r *UserRepo) RoleNames(ctx context.Context, u *domain.User) ([]string, error) {
	roles, err := r.allRoles(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(roles))
	for _, role := range roles {
		byID[role.ID] = role.Name
	}

	set := map[string]struct{}{}
	if u.RoleID != nil {
		if n, ok := byID[*u.RoleID]; ok {
			set[n] = struct{}{}
		}
	}
	assigned, err := store.GetAll[domain.UserRole](ctx, r.a, domain.TableUserRoles, store.ListOptions{
		Filter: map[string]any{"user_id": u.ID},
	})
	if err != nil {
		return nil, err
	}
	for _, ur := range assigned {
		if n, ok := byID[ur.RoleID]; ok {
			set[n] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}
