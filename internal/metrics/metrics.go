package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_ingest_events_received_total",
			Help: "Raw events handed to ingestion",
		},
		[]string{"source"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_ingest_events_rejected_total",
			Help: "Raw events rejected by validation",
		},
		[]string{"reason"},
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_ingest_events_skipped_total",
			Help: "Valid events whose kind is not mapped to an internal event",
		},
		[]string{"kind"},
	)

	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_ingest_events_dispatched_total",
			Help: "Internal events handed to the dispatcher",
		},
		[]string{"source"},
	)

	RawLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackframe_ingest_raw_log_failures_total",
			Help: "Failed appends to the raw event log",
		},
	)

	DispatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_dispatch_errors_total",
			Help: "Internal events a sink failed to deliver",
		},
		[]string{"sink"},
	)

	BufferDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackframe_dispatch_buffer_dropped_total",
			Help: "Internal events evicted from a full event buffer",
		},
	)

	// Live listener metrics
	LiveMessagesMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_live_messages_malformed_total",
			Help: "Live bus messages dropped because they were not valid JSON",
		},
		[]string{"camera_id"},
	)

	// Hot buffer / capture metrics
	HotBufferFrames = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trackframe_hot_buffer_frames",
			Help: "Frames currently retained in the hot buffer",
		},
		[]string{"camera_id"},
	)

	HotBufferBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trackframe_hot_buffer_bytes",
			Help: "Encoded bytes currently retained in the hot buffer",
		},
		[]string{"camera_id"},
	)

	CaptureFramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_capture_frames_dropped_total",
			Help: "Frames read but dropped by the capture rate gate",
		},
		[]string{"camera_id"},
	)

	CaptureReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_capture_reconnects_total",
			Help: "Stream reopen attempts after open or read failures",
		},
		[]string{"camera_id", "cause"},
	)

	// Recorder metrics
	RecorderExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_recorder_exits_total",
			Help: "Recording subprocess exits not requested by stop",
		},
		[]string{"camera_id"},
	)

	SegmentsPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_recorder_segments_pruned_total",
			Help: "Recorded segments removed by retention",
		},
		[]string{"camera_id"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackframe_http_requests_total",
			Help: "HTTP requests served by the worker API",
		},
		[]string{"method", "route", "status"},
	)
)
