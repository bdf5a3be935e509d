package response

import "net/http"

// 错误码直接用 HTTP 状态码
const (
	CodeBadRequest   = http.StatusBadRequest
	CodeUnauthorized = http.StatusUnauthorized
	CodeForbidden    = http.StatusForbidden
	CodeNotFound     = http.StatusNotFound
	CodeConflict     = http.StatusConflict
	CodeTooLarge     = http.StatusRequestEntityTooLarge
	CodeTooMany      = http.StatusTooManyRequests
	CodeServerError  = http.StatusInternalServerError
	CodeUnavailable  = http.StatusServiceUnavailable
	CodeTimeout      = http.StatusGatewayTimeout
)

// CodeMsgMap 未给自定义消息时的默认文案
var CodeMsgMap = map[int]string{
	CodeBadRequest:   "bad request",
	CodeUnauthorized: "unauthorized",
	CodeForbidden:    "forbidden",
	CodeNotFound:     "not found",
	CodeConflict:     "conflict",
	CodeTooLarge:     "request body too large",
	CodeTooMany:      "too many requests",
	CodeServerError:  "internal error",
	CodeUnavailable:  "server busy",
	CodeTimeout:      "timeout",
}
