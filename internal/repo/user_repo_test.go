package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-manager/internal/core/cache"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
	"clinic-manager/internal/store/storetest"
)

func TestFindByAuthID(t *testing.T) {
	_, a := storetest.Open(t)
	r := NewUserRepo(a, nil, 0)
	ctx := context.Background()

	got, err := r.FindByAuthID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	auth := "acc-1"
	u, err := store.Create(ctx, a, domain.TableUsers, &domain.User{AuthID: &auth, Email: "a@b.c"})
	require.NoError(t, err)
	got, err = r.FindByAuthID(ctx, auth)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
}

func TestRoleNamesUsesCache(t *testing.T) {
	_, a := storetest.Open(t)
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	r := NewUserRepo(a, c, time.Minute)
	ctx := context.Background()

	doctor, err := store.Create(ctx, a, domain.TableRoles, &domain.Role{Name: domain.RoleDoctor})
	require.NoError(t, err)
	u, err := store.Create(ctx, a, domain.TableUsers, &domain.User{Email: "a@b.c", RoleID: &doctor.ID})
	require.NoError(t, err)

	names, err := r.RoleNames(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"doctor"}, names)
	assert.True(t, mr.Exists("clinic:"+rolesCacheKey))

	// 新角色在缓存失效前不可见
	admin, err := store.Create(ctx, a, domain.TableRoles, &domain.Role{Name: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = store.Create(ctx, a, domain.TableUserRoles, &domain.UserRole{UserID: u.ID, RoleID: admin.ID})
	require.NoError(t, err)
	names, err = r.RoleNames(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"doctor"}, names)

	require.NoError(t, r.InvalidateRoles(ctx))
	names, err = r.RoleNames(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "doctor"}, names)
}

func TestRoleNamesIgnoresRemovedAssignments(t *testing.T) {
	_, a := storetest.Open(t)
	r := NewUserRepo(a, nil, 0)
	ctx := context.Background()

	admin, err := store.Create(ctx, a, domain.TableRoles, &domain.Role{Name: domain.RoleAdmin})
	require.NoError(t, err)
	u, err := store.Create(ctx, a, domain.TableUsers, &domain.User{Email: "a@b.c"})
	require.NoError(t, err)
	ur, err := store.Create(ctx, a, domain.TableUserRoles, &domain.UserRole{UserID: u.ID, RoleID: admin.ID})
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, a, domain.TableUserRoles, store.ByID(ur.ID)))

	names, err := r.RoleNames(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, names)
}
