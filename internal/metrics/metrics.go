package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts dashboard HTTP requests by route and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycleview_http_requests_total",
			Help: "Total number of dashboard HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cycleview_http_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamRequests counts calls to the snapshots API. status is the
	// HTTP status code, or "error" when no response arrived.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycleview_upstream_requests_total",
			Help: "Total number of snapshots API requests",
		},
		[]string{"op", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cycleview_upstream_request_duration_seconds",
			Help:    "Snapshots API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycleview_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"kind", "result"},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycleview_anomalies_detected_total",
			Help: "Anomalies reported for served cycle details",
		},
		[]string{"type"},
	)

	CyclesExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cycleview_cycles_exported_total",
			Help: "Cycle rows written to CSV exports",
		},
	)
)
