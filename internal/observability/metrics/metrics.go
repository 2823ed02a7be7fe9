package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "platform_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec

	deviceOps *prometheus.CounterVec

	subscriptionCreateTotal *prometheus.CounterVec
	subscriptionsCreated    prometheus.Counter

	latestQueryLatency *prometheus.HistogramVec
	seriesQueryLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)

		deviceOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_ops_total",
				Help: "Total device lifecycle operations by op and result",
			},
			[]string{"op", "result"},
		)

		subscriptionCreateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "subscription_create_total",
				Help: "Total subscription batch requests by result",
			},
			[]string{"result"},
		)
		subscriptionsCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "subscriptions_created_total",
				Help: "Total subscription rows created",
			},
		)

		latestQueryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "latest_metric_latency_seconds",
				Help:    "Latest-metric query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		seriesQueryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "time_series_latency_seconds",
				Help:    "Time-series query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			httpRequests,
			deviceOps,
			subscriptionCreateTotal,
			subscriptionsCreated,
			latestQueryLatency,
			seriesQueryLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncHTTPRequest counts a completed HTTP request.
func IncHTTPRequest(method, status string) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, status).Inc()
	}
}

// IncDeviceOp increments device lifecycle counters.
func IncDeviceOp(op, result string) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if deviceOps != nil {
		deviceOps.WithLabelValues(op, result).Inc()
	}
}

// IncSubscriptionCreate counts a subscription batch request by result.
func IncSubscriptionCreate(result string) {
	if result == "" {
		result = resultSuccess
	}
	if subscriptionCreateTotal != nil {
		subscriptionCreateTotal.WithLabelValues(result).Inc()
	}
}

// AddSubscriptionsCreated counts newly created subscription rows.
func AddSubscriptionsCreated(count int) {
	if count <= 0 {
		return
	}
	if subscriptionsCreated != nil {
		subscriptionsCreated.Add(float64(count))
	}
}

// ObserveLatestQuery records latest-metric query duration and result.
func ObserveLatestQuery(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if latestQueryLatency != nil {
		latestQueryLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveSeriesQuery records time-series query duration and result.
func ObserveSeriesQuery(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if seriesQueryLatency != nil {
		seriesQueryLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
)
