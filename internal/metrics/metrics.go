// Package metrics содержит коллекторы Prometheus сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки result для попыток входа.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Metrics набор коллекторов. Нулевой указатель допустим и ничего не пишет.
type Metrics struct {
	loginTotal          *prometheus.CounterVec
	authFailuresTotal   *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		loginTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_auth_login_total",
				Help: "Login attempts by result.",
			},
			[]string{"result"},
		),
		authFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_auth_failures_total",
				Help: "Authentication and authorization failures by kind.",
			},
			[]string{"kind"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_http_requests_total",
				Help: "HTTP requests by method, route and status code.",
			},
			[]string{"method", "path", "code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bizledger_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}
}

// LoginAttempt учитывает попытку входа.
func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginTotal.WithLabelValues(result).Inc()
}

// AuthFailure учитывает отказ по виду ошибки.
func (m *Metrics) AuthFailure(kind string) {
	if m == nil {
		return
	}
	m.authFailuresTotal.WithLabelValues(kind).Inc()
}

// Middleware считает запросы и их длительность. Путь берётся из шаблона маршрута chi,
// чтобы не плодить серии на каждый id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		code := strconv.Itoa(status)
		m.httpRequestsTotal.WithLabelValues(r.Method, path, code).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}
