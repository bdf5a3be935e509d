// Package app 组装根：按依赖顺序显式构造所有共享组件。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-manager/internal/core/auth"
	"clinic-manager/internal/core/cache"
	"clinic-manager/internal/core/config"
	"clinic-manager/internal/core/database"
	"clinic-manager/internal/core/server"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/feature/account"
	"clinic-manager/internal/identity"
	"clinic-manager/internal/repo"
	"clinic-manager/internal/store"
	"clinic-manager/internal/transport/http/router"
)

var ErrMissingJWTSecret = errors.New("app: jwt.secret is required")

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Store    *store.Adapter
	Cache    *cache.Cache // 未配置 redis 时为空
	JWT      *auth.JWTer
	Users    *repo.UserRepo
	Identity *identity.Service

	closers []func() error
}

// OpenDB Store.URL 即 DSN
func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.Store.URL,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
}

// Migrate 建表：业务表 + 身份账号表
func Migrate(db *gorm.DB) error {
	models := append(domain.Models(), &account.Model{})
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// New db → schema 探测 → adapter → cache → identity
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}
	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &App{Cfg: cfg, Log: l, DB: db}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.DB.AutoMigrate {
		if err := Migrate(db); err != nil {
			a.Close()
			return nil, err
		}
		l.Info("automigrate done")
	}

	sch, err := store.DetectSchema(ctx, db, domain.Schema(), l)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("detect schema: %w", err)
	}
	a.Store = store.New(db, sch, store.WithLogger(l.Named("store")))

	var revoker identity.Revoker
	if cfg.Redis.Addr != "" {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.closers = append(a.closers, a.Cache.Close)
		if err := a.Cache.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		revoker = cache.NewRevocations(a.Cache)
	} else {
		l.Warn("redis not configured; token revocation is process-local")
		revoker = identity.NewMemoryRevoker()
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	a.Users = repo.NewUserRepo(a.Store, a.Cache, time.Duration(cfg.Redis.RoleTTLSec)*time.Second)
	a.Identity = identity.NewService(db, a.JWT, revoker, a.Users, l)
	return a, nil
}

func (a *App) health() map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{
		"db": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Cache != nil {
		checks["redis"] = a.Cache.Ping
	}
	return checks
}

func (a *App) Engine() *gin.Engine {
	return router.NewEngine(router.Deps{
		Log:      a.Log,
		Config:   a.Cfg,
		Store:    a.Store,
		Identity: a.Identity,
		JWT:      a.JWT,
		Users:    a.Users,
		Health:   a.health(),
	})
}

func (a *App) Server() *http.Server {
	h := a.Cfg.App.HTTP
	return server.BuildServer(
		server.Addr(h.Host, h.Port), a.Engine(),
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)
}

// Close 逆序释放
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
