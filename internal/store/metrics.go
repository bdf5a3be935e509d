package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_operations_total", Help: "Record store operations by result"},
		[]string{"table", "op", "result"},
	)
	opLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Latency of record store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "op"},
	)
)

func init() { prometheus.MustRegister(opsTotal, opLatency) }

func (a *Adapter) observe(table, op string, start time.Time, errp *error) {
	result := "ok"
	if err := *errp; err != nil {
		result = "error"
		if errors.Is(err, ErrNotFound) {
			result = "not_found"
		}
	}
	opsTotal.WithLabelValues(table, op, result).Inc()
	opLatency.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
}
