package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DetectionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "detections_processed_total",
		Help:      "Total number of detection results run through the pipeline",
	}, []string{"camera_id"})

	FacesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "faces_rejected_total",
		Help:      "Faces rejected by validation before persistence",
	})

	EventsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "detection_events_persisted_total",
		Help:      "Detection events written to the event store",
	})

	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "alerts_created_total",
		Help:      "Alert notifications created",
	}, []string{"type", "severity"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "alerts_suppressed_total",
		Help:      "Alert intents dropped by the cooldown window",
	}, []string{"type"})

	ChannelDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "channel_dispatch_total",
		Help:      "Notification channel dispatches by outcome",
	}, []string{"channel", "outcome"})

	ChannelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "channel_dispatch_duration_seconds",
		Help:      "Duration of notification channel dispatches",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"channel"})

	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "stage_failures_total",
		Help:      "Pipeline stage failures",
	}, []string{"stage"})

	EvidenceUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fd",
		Subsystem: "alert",
		Name:      "evidence_uploads_total",
		Help:      "Evidence uploads by outcome",
	}, []string{"outcome"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fd",
		Name:      "queue_depth",
		Help:      "Number of pending detection messages in queue",
	})

	ActiveCameras = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fd",
		Name:      "active_cameras",
		Help:      "Number of cameras with an open detection lane",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fd",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fd",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
