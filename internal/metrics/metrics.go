// Package metrics provides Prometheus metrics for the focus timer service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SurfacesOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_surfaces_opened_total",
			Help: "Total number of timer surfaces opened by presentation mode",
		},
		[]string{"mode"},
	)
	SurfaceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_surface_fallbacks_total",
			Help: "Total number of times the floating surface was unavailable and a window was used instead",
		},
		[]string{"reason"},
	)
	SurfacesBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focus_surfaces_blocked_total",
			Help: "Total number of timer opens refused by the host",
		},
	)
	SurfacesReused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focus_surfaces_reused_total",
			Help: "Total number of timer opens that focused an existing surface",
		},
	)
	SurfacesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_surfaces_active",
			Help: "Number of currently open timer surfaces",
		},
	)
	SyncPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_sync_messages_published_total",
			Help: "Total number of sync channel messages published",
		},
		[]string{"type"},
	)
	SyncDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_sync_messages_dropped_total",
			Help: "Total number of sync channel messages dropped before delivery",
		},
		[]string{"transport"},
	)
	SyncReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_sync_messages_received_total",
			Help: "Total number of sync channel messages handled by the main view",
		},
		[]string{"type", "outcome"},
	)
	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_tasks_completed_total",
			Help: "Total number of tasks completed",
		},
		[]string{"trigger"},
	)
	FocusTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focus_actual_time_seconds",
			Help:    "Recorded actual focus time per completed task",
			Buckets: []float64{60, 300, 600, 900, 1500, 1800, 2700, 3600, 5400, 7200},
		},
		[]string{"trigger"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func RecordSurfaceOpened(mode string) {
	SurfacesOpened.WithLabelValues(mode).Inc()
	SurfacesActive.Inc()
}

func RecordSurfaceClosed() {
	SurfacesActive.Dec()
}

func RecordSurfaceFallback(reason string) {
	SurfaceFallbacks.WithLabelValues(reason).Inc()
}

func RecordSurfaceBlocked() {
	SurfacesBlocked.Inc()
}

func RecordSurfaceReused() {
	SurfacesReused.Inc()
}

func RecordSyncPublished(messageType string) {
	SyncPublished.WithLabelValues(messageType).Inc()
}

func RecordSyncDropped(transport string) {
	SyncDropped.WithLabelValues(transport).Inc()
}

func RecordSyncReceived(messageType, outcome string) {
	SyncReceived.WithLabelValues(messageType, outcome).Inc()
}

func RecordTaskCompleted(trigger string, actual time.Duration) {
	TasksCompleted.WithLabelValues(trigger).Inc()
	FocusTime.WithLabelValues(trigger).Observe(actual.Seconds())
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
