package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-manager/internal/session"
)

// PageGuard 页面请求按 cookie 会话做 302 跳转
func PageGuard(a Authenticator, cookieName string, rules session.Rules) gin.HandlerFunc {
	return func(c *gin.Context) {
		authed := false
		if tok := TokenFrom(c, cookieName); tok != "" {
			_, err := a.Authenticate(c.Request.Context(), tok)
			authed = err == nil
		}
		if target, ok := rules.Redirect(c.Request.URL.Path, authed); ok {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
