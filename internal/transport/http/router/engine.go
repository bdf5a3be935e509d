package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"clinic-manager/internal/core/auth"
	"clinic-manager/internal/core/config"
	"clinic-manager/internal/core/server"
	"clinic-manager/internal/identity"
	"clinic-manager/internal/repo"
	"clinic-manager/internal/session"
	"clinic-manager/internal/store"
	mdw "clinic-manager/internal/transport/http/middleware"
)

// HealthCheck 健康检查项（数据库、Redis）
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Log      *zap.Logger
	Config   *config.Config
	Store    *store.Adapter
	Identity *identity.Service
	JWT      *auth.JWTer
	Users    *repo.UserRepo // 角色缓存失效，可为空
	Health   map[string]HealthCheck
	Modules  *Registry // 额外的 /api 模块，可为空
}

type engine struct{ d Deps }

// NewEngine 组装完整路由：/health、/metrics、/auth/v1、/api、页面
func NewEngine(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := &engine{d: d}
	h := d.Config.App.HTTP

	r := server.NewRouter(d.Log, h, mdw.RecoveryResponse)
	r.Use(mdw.RequestID())
	// 未配置（0）的限制项不挂
	if h.RPS > 0 {
		r.Use(mdw.RateLimit(rate.Limit(h.RPS), h.Burst))
	}
	if h.PerIPRPS > 0 {
		r.Use(mdw.RateLimitPerIP(rate.Limit(h.PerIPRPS), h.PerIPBurst))
	}
	if h.MaxInFlight > 0 {
		r.Use(mdw.ConcurrencyLimit(h.MaxInFlight))
	}
	if h.MaxBodyMB > 0 {
		r.Use(mdw.MaxBodyBytes(h.MaxBodyMB << 20))
	}
	if h.RequestTimeoutSec > 0 {
		r.Use(mdw.Timeout(time.Duration(h.RequestTimeoutSec) * time.Second))
	}
	r.Use(mdw.Metrics(), mdw.AccessLog(d.Log))

	r.GET("/health", e.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	keyed := r.Group("", mdw.APIKey(d.Config.Store.APIKey))
	e.mountAuthActions(keyed.Group("/auth/v1"))

	api := keyed.Group("/api", mdw.Session(d.Identity, d.Config.JWT.CookieName, true, d.Log))
	mods := &Registry{}
	mods.Register(e.resourceModules()...)
	if d.Modules != nil {
		mods.Register(d.Modules.apiMods...)
	}
	mods.MountAllAPI(api)

	e.mountPages(r)
	return r
}

func (e *engine) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	checks := gin.H{}
	for name, check := range e.d.Health {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(status, gin.H{"ok": status == http.StatusOK, "checks": checks})
}

func (e *engine) rules() session.Rules {
	s := e.d.Config.Session
	return session.Rules{Protected: s.ProtectedPrefixes, Login: s.LoginPath, Home: s.HomePath}
}
