package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-manager/internal/core/cache"
	"clinic-manager/internal/core/config"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:   config.App{HTTP: config.HTTP{Host: "127.0.0.1", Port: 0}},
		JWT:   config.JWT{Secret: "secret", Issuer: "clinic-test", AccessTokenTTLMin: 60, CookieName: "clinic-access-token"},
		DB:    config.DB{Driver: "sqlite", AutoMigrate: true, LogLevel: "silent"},
		Store: config.Store{URL: "file:" + filepath.Join(t.TempDir(), "clinic.db"), APIKey: "anon-key"},
	}
}

func TestNewWiresEverything(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Cache)
	info, err := a.Store.Schema().Lookup("roles")
	require.NoError(t, err)
	assert.False(t, info.SoftDelete)

	w := httptest.NewRecorder()
	a.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"checks":{"db":"ok","redis":"ok"}}`, w.Body.String())

	// 登出吊销写进 redis
	ctx := context.Background()
	_, err = a.Identity.CreateAccount(ctx, "ana@clinic.test", "pw")
	require.NoError(t, err)
	tok, err := a.Identity.SignInWithPassword(ctx, "ana@clinic.test", "pw")
	require.NoError(t, err)
	require.NoError(t, a.Identity.SignOut(ctx, tok.Claims))
	revoked, err := cache.NewRevocations(a.Cache).IsRevoked(ctx, tok.Claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.Equal(t, "127.0.0.1:0", a.Server().Addr)
}

func TestNewWithoutRedis(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Cache)
	rows, err := store.GetAll[domain.Patient](context.Background(), a.Store, domain.TablePatients, store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNewValidates(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.Secret = ""
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrMissingJWTSecret)

	cfg = testConfig(t)
	cfg.Store.APIKey = ""
	_, err = New(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrMissingStoreAPIKey)
}

func TestNewFailsOnMissingTables(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.AutoMigrate = false
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, store.ErrUnknownTable)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()
	mr.Close()
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "redis ping")
}
