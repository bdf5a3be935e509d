package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"clinic-manager/internal/core/auth"
	"clinic-manager/internal/identity"
	"clinic-manager/internal/session"
)

const cookieName = "clinic-access-token"

type fakeAuth map[string]string // token -> uid

func (f fakeAuth) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	if token == "redis-down" {
		return nil, errors.New("dial tcp: connection refused")
	}
	uid, ok := f[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return &auth.Claims{UID: uid}, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKey(t *testing.T) {
	r := newEngine(APIKey("anon-key"))
	r.GET("/api/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	w := do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid api key"}`, w.Body.String())

	req.Header.Set(HeaderAPIKey, "wrong")
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req.Header.Set(HeaderAPIKey, "anon-key")
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

func TestSessionRequired(t *testing.T) {
	r := newEngine(Session(fakeAuth{"good": "acc-1"}, cookieName, true, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyUID)) })

	assert.Equal(t, http.StatusUnauthorized, do(r, httptest.NewRequest(http.MethodGet, "/me", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-1", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "good"})
	assert.Equal(t, http.StatusOK, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "revoked"})
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer redis-down")
	assert.Equal(t, http.StatusServiceUnavailable, do(r, req).Code)
}

func TestSessionOptional(t *testing.T) {
	r := newEngine(Session(fakeAuth{}, cookieName, false, zap.NewNop()))
	r.POST("/logout", func(c *gin.Context) {
		assert.Nil(t, ClaimsFrom(c))
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer stale")
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)
}

func TestPageGuard(t *testing.T) {
	r := newEngine(PageGuard(fakeAuth{"good": "acc-1"}, cookieName, session.DefaultRules()))
	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.URL.Path) }
	r.GET("/login", ok)
	r.GET("/dashboard/*rest", ok)
	r.GET("/health", ok)

	cases := []struct {
		path     string
		token    string
		code     int
		location string
	}{
		{"/dashboard/stats", "", http.StatusFound, "/login"},
		{"/dashboard/stats", "good", http.StatusOK, ""},
		{"/login", "good", http.StatusFound, "/dashboard"},
		{"/login", "", http.StatusOK, ""},
		{"/login", "expired", http.StatusOK, ""},
		{"/health", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.token != "" {
			req.AddCookie(&http.Cookie{Name: cookieName, Value: tc.token})
		}
		w := do(r, req)
		assert.Equal(t, tc.code, w.Code, "%s token=%q", tc.path, tc.token)
		assert.Equal(t, tc.location, w.Header().Get("Location"), tc.path)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := newEngine(RateLimitPerIP(0.001, 1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusOK, do(r, req).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, req).Code)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, do(r, other).Code)
}

func TestTimeout(t *testing.T) {
	r := newEngine(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })
	w := do(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"error":"timeout"}`, w.Body.String())
}

func TestMaxBodyBytes(t *testing.T) {
	r := newEngine(MaxBodyBytes(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"full_name":"Ana Ruiz"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, req).Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(KeyRequestID))
	assert.Equal(t, w.Header().Get(KeyRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "rid-1")
	assert.Equal(t, "rid-1", do(r, req).Header().Get(KeyRequestID))

	for _, bad := range []string{strings.Repeat("x", maxRequestIDLen+1), "rid 1", "rid\x7f"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(KeyRequestID, bad)
		got := do(r, req).Header().Get(KeyRequestID)
		assert.NotEqual(t, bad, got)
		assert.Len(t, got, 36, "replaced by a uuid")
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := newEngine(Metrics())
	r.GET("/api/patients/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	routed := apiReqTotal.WithLabelValues("/api/patients/:id", http.MethodGet, "200")
	unmatched := apiReqTotal.WithLabelValues(RouteUnmatched, http.MethodGet, "404")
	beforeRouted, beforeUnmatched := testutil.ToFloat64(routed), testutil.ToFloat64(unmatched)

	do(r, httptest.NewRequest(http.MethodGet, "/api/patients/p1", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/.env", nil))

	assert.Equal(t, beforeRouted+1, testutil.ToFloat64(routed))
	assert.Equal(t, beforeUnmatched+2, testutil.ToFloat64(unmatched))
	assert.Zero(t, testutil.ToFloat64(apiReqTotal.WithLabelValues("/.env", http.MethodGet, "404")))
}
