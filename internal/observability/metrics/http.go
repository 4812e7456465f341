package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TenantMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	cacheLookupsTotal   *prometheus.CounterVec
	answersTotal        *prometheus.CounterVec
	lowConfidenceTotal  *prometheus.CounterVec
	rerankStrategyTotal *prometheus.CounterVec
	lowConfidenceRate   *prometheus.GaugeVec
}

func NewTenantMetrics(service string) *TenantMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "qa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qa",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by endpoint, tenant, and outcome.",
		},
		[]string{"service", "endpoint", "tenant", "outcome"},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qa",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Answered requests by tenant, retrieval mode, and rerank use.",
		},
		[]string{"service", "tenant", "mode", "reranked"},
	)
	lowConfidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qa",
			Subsystem: "pipeline",
			Name:      "low_confidence_total",
			Help:      "Answers below the abstention threshold.",
		},
		[]string{"service", "tenant"},
	)
	rerankStrategyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qa",
			Subsystem: "pipeline",
			Name:      "rerank_strategy_total",
			Help:      "Rerank executions by effective strategy.",
		},
		[]string{"service", "tenant", "strategy"},
	)
	lowConfidenceRate := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "qa",
			Subsystem: "pipeline",
			Name:      "low_confidence_rate",
			Help:      "Fraction of recent answers below the abstention threshold.",
		},
		[]string{"service", "tenant"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		cacheLookupsTotal,
		answersTotal,
		lowConfidenceTotal,
		rerankStrategyTotal,
		lowConfidenceRate,
	)

	return &TenantMetrics{
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		cacheLookupsTotal:   cacheLookupsTotal,
		answersTotal:        answersTotal,
		lowConfidenceTotal:  lowConfidenceTotal,
		rerankStrategyTotal: rerankStrategyTotal,
		lowConfidenceRate:   lowConfidenceRate,
	}
}

func (m *TenantMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *TenantMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *TenantMetrics) RecordCacheLookup(endpoint, tenant string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(m.service, endpoint, tenant, outcome).Inc()
}

func (m *TenantMetrics) RecordAnswer(tenant, mode string, reranked bool) {
	m.answersTotal.WithLabelValues(m.service, tenant, mode, strconv.FormatBool(reranked)).Inc()
}

func (m *TenantMetrics) RecordLowConfidence(tenant string) {
	m.lowConfidenceTotal.WithLabelValues(m.service, tenant).Inc()
}

func (m *TenantMetrics) RecordRerankStrategy(tenant, strategy string) {
	if strategy == "" {
		strategy = "none"
	}
	m.rerankStrategyTotal.WithLabelValues(m.service, tenant, strategy).Inc()
}

func (m *TenantMetrics) SetLowConfidenceRate(tenant string, rate float64) {
	m.lowConfidenceRate.WithLabelValues(m.service, tenant).Set(rate)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
