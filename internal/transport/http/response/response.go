package response

import "github.com/gin-gonic/gin"

// ErrorBody 所有错误响应都是 {"error": "..."}
type ErrorBody struct {
	Error string `json:"error"`
}

// Error 失败响应（可以传自定义 msg 覆盖默认）
func Error(code int, customMsg string) ErrorBody {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	if msg == "" {
		msg = "error"
	}
	return ErrorBody{Error: msg}
}

// Abort 写错误响应并中断后续 handler
func Abort(c *gin.Context, code int, customMsg string) {
	c.AbortWithStatusJSON(code, Error(code, customMsg))
}
