package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	resp "clinic-manager/internal/transport/http/response"
)

const HeaderAPIKey = "apikey"

// APIKey 校验客户端公钥（与会话 token 无关）
func APIKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderAPIKey)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			resp.Abort(c, resp.CodeUnauthorized, "invalid api key")
			return
		}
		c.Next()
	}
}
