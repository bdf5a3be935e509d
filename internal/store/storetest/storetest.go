// Package storetest 测试用的 sqlite 内存库 + 已迁移的 Adapter。
package storetest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-manager/internal/core/database"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/feature/account"
	"clinic-manager/internal/store"
)

var seq atomic.Int64

// OpenDB 每个测试独立的共享缓存内存库，测试结束自动关闭
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
		LogLevel:     "silent",
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	models := append(domain.Models(), &account.Model{})
	require.NoError(t, db.AutoMigrate(models...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Clock 可手动推进的时钟
type Clock struct{ t atomic.Int64 }

func NewClock(start time.Time) *Clock {
	c := &Clock{}
	c.t.Store(start.UnixNano())
	return c
}

func (c *Clock) Now() time.Time { return time.Unix(0, c.t.Load()).UTC() }

func (c *Clock) Advance(d time.Duration) { c.t.Add(int64(d)) }

// Open 返回迁移好的 DB 与 Adapter
func Open(t testing.TB, opts ...store.Option) (*gorm.DB, *store.Adapter) {
	t.Helper()
	db := OpenDB(t)
	return db, store.New(db, domain.Schema(), opts...)
}
