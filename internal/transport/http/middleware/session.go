package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinic-manager/internal/core/auth"
	"clinic-manager/internal/identity"
	resp "clinic-manager/internal/transport/http/response"
)

const (
	KeyClaims = "claims"
	KeyUID    = "uid"
)

// Authenticator identity.Service 实现
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// TokenFrom Bearer 优先，其次 cookie
func TokenFrom(c *gin.Context, cookieName string) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return v
		}
	}
	return ""
}

func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil
	}
	cl, _ := v.(*auth.Claims)
	return cl
}

// Session 解析会话；required=false 时无会话也放行（例如登出）
func Session(a Authenticator, cookieName string, required bool, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := TokenFrom(c, cookieName)
		if tok == "" {
			if required {
				resp.Abort(c, resp.CodeUnauthorized, "missing session")
				return
			}
			c.Next()
			return
		}
		claims, err := a.Authenticate(c.Request.Context(), tok)
		switch {
		case err == nil:
			c.Set(KeyClaims, claims)
			c.Set(KeyUID, claims.UID)
		case errors.Is(err, identity.ErrInvalidToken):
			if required {
				resp.Abort(c, resp.CodeUnauthorized, err.Error())
				return
			}
		default:
			l.Error("session check failed", zap.Error(err))
			resp.Abort(c, resp.CodeUnavailable, "")
			return
		}
		c.Next()
	}
}
