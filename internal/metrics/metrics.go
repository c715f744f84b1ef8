// Package metrics exposes Prometheus collectors for the document store and
// the HTTP API.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/chepyr/go-group-tasks/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	storeOps      *prometheus.CounterVec
	storeLockWait *prometheus.HistogramVec
	storeDuration *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskgroups",
			Name:      "store_operations_total",
			Help:      "Document store operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		storeLockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskgroups",
			Name:      "store_lock_wait_seconds",
			Help:      "Time spent waiting for the document lock.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskgroups",
			Name:      "store_operation_seconds",
			Help:      "Total store operation time including the lock wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskgroups",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.storeOps, m.storeLockWait, m.storeDuration, m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// outcome separates rule rejections from infrastructure failures.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.KindOf(err) != apperr.KindUnknown:
		return "rejected"
	default:
		return "error"
	}
}

// ObserveStoreOp satisfies db.Observer.
func (m *Metrics) ObserveStoreOp(op string, wait, total time.Duration, err error) {
	m.storeOps.WithLabelValues(op, outcome(err)).Inc()
	m.storeLockWait.WithLabelValues(op).Observe(wait.Seconds())
	m.storeDuration.WithLabelValues(op).Observe(total.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through so websocket upgrades work behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
