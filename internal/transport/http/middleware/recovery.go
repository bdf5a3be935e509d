package middleware

import (
	"github.com/gin-gonic/gin"

	resp "clinic-manager/internal/transport/http/response"
)

// RecoveryResponse 给 ginzap.CustomRecoveryWithZap 用：堆栈由 ginzap 记录，这里只写响应
func RecoveryResponse(c *gin.Context, _ any) {
	resp.Abort(c, resp.CodeServerError, "")
}
