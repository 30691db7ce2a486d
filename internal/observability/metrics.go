package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DiscsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "discid",
		Name:      "discs_registered_total",
		Help:      "Total number of discs registered",
	})

	ImagesRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discid",
		Name:      "images_registered_total",
		Help:      "Total number of disc images indexed, by encoder",
	}, []string{"encoder"})

	SearchesPerformed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discid",
		Name:      "searches_total",
		Help:      "Total number of find_matches calls, by encoder and whether any match was returned",
	}, []string{"encoder", "result"})

	BorderDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discid",
		Name:      "border_detections_total",
		Help:      "Total border detection attempts, by outcome",
	}, []string{"outcome"}) // circle | ellipse | none

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discid",
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of each identification pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	StoreQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discid",
		Name:      "store_query_duration_seconds",
		Help:      "Duration of vector store operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discid",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "discid",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections watching the live feed",
	})
)
