package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	deliveryTotal   *prometheus.CounterVec
	accessDecisions *prometheus.CounterVec
	streamsActive   prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	deliveryTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Notification delivery attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	accessDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Authorization decisions by resource type and outcome",
	}, []string{"resource", "outcome"})

	streamsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notification_streams_active",
		Help: "Currently attached notification streams",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, deliveryTotal, accessDecisions, streamsActive, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		deliveryTotal:   deliveryTotal,
		accessDecisions: accessDecisions,
		streamsActive:   streamsActive,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// NotificationDelivered records one delivery attempt on a channel.
func (m *MetricsService) NotificationDelivered(channel, outcome string) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(channel, outcome).Inc()
}

// AccessDecision records an authorization verdict.
func (m *MetricsService) AccessDecision(resource, outcome string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(resource, outcome).Inc()
}

// StreamAttached bumps the active stream gauge.
func (m *MetricsService) StreamAttached() {
	if m != nil {
		m.streamsActive.Inc()
	}
}

// StreamDetached lowers the active stream gauge.
func (m *MetricsService) StreamDetached() {
	if m != nil {
		m.streamsActive.Dec()
	}
}
