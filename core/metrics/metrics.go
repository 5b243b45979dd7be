package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchRequests counts upstream requests by outcome ("2xx", "429", "error", ...).
	FetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waypoint_sync_fetch_requests_total",
		Help: "Upstream requests by status class.",
	}, []string{"status"})

	// RateLimited counts HTTP 429 responses.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waypoint_sync_rate_limited_total",
		Help: "Upstream responses with HTTP 429.",
	})

	// AssetsIngested counts enriched and upserted assets per kind.
	AssetsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waypoint_sync_assets_ingested_total",
		Help: "Assets enriched and upserted.",
	}, []string{"kind"})

	// AssetsSkipped counts skip-listed assets per kind.
	AssetsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waypoint_sync_assets_skipped_total",
		Help: "Assets bypassed through the skip list.",
	}, []string{"kind"})

	// AssetsDeleted counts assets removed by reconciliation per kind.
	AssetsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waypoint_sync_assets_deleted_total",
		Help: "Assets deleted after failing the existence probe.",
	}, []string{"kind"})

	// PhaseDuration observes phase durations ("Map", "recommended", "reconcile:Map", ...).
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waypoint_sync_phase_duration_seconds",
		Help:    "Duration of sync phases.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"phase", "outcome"})
)

// StatusClass maps an HTTP status to its metric label.
func StatusClass(code int) string {
	switch {
	case code == 401, code == 404, code == 429:
		return strconv.Itoa(code)
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}
