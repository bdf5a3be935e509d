package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// RouteUnmatched 未命中任何路由的请求统一记这个标签，避免扫描器撑爆序列数
const RouteUnmatched = "unmatched"

var (
	apiReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by route template"},
		[]string{"route", "method", "status"},
	)
	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route template",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"},
	)
)

func init() { prometheus.MustRegister(apiReqTotal, apiLatency) }

// routeLabel 用路由模板（/api/patients/:id）而不是原始路径
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return RouteUnmatched
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := routeLabel(c)
		apiReqTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		apiLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
