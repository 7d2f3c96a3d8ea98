// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	ScanCycles        prometheus.Counter
	ScanCycleErrors   prometheus.Counter
	ScanCycleDuration prometheus.Histogram

	// Candidate metrics
	CandidatesFetched  prometheus.Counter
	CandidatesAccepted prometheus.Counter
	CandidatesRejected *prometheus.CounterVec
	CandidateErrors    prometheus.Counter

	// Delivery metrics
	NotificationsSent  prometheus.Counter
	NotificationErrors prometheus.Counter
	SummariesGenerated prometheus.Counter

	// State metrics
	SeenRecords        prometheus.Gauge
	SeenRecordsPurged  prometheus.Counter
	LastSuccessfulScan prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "guild_scout"
	}

	return &Metrics{
		ScanCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycles_total",
			Help:      "Total number of completed scan cycles",
		}),
		ScanCycleErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_errors_total",
			Help:      "Total number of scan cycles that failed before filtering",
		}),
		ScanCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full scan cycle in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		CandidatesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candidates",
			Name:      "fetched_total",
			Help:      "Total number of candidates fetched from the listing",
		}),
		CandidatesAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candidates",
			Name:      "accepted_total",
			Help:      "Total number of candidates that passed all eligibility rules",
		}),
		CandidatesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candidates",
			Name:      "rejected_total",
			Help:      "Total number of candidates dropped, by stage",
		}, []string{"stage"}),
		CandidateErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candidates",
			Name:      "errors_total",
			Help:      "Total number of candidates that failed with an unexpected error",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "notifications_sent_total",
			Help:      "Total number of candidate notifications delivered",
		}),
		NotificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "notification_errors_total",
			Help:      "Total number of notification deliveries that failed",
		}),
		SummariesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "summaries_generated_total",
			Help:      "Total number of AI summaries generated",
		}),
		SeenRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "seen_records",
			Help:      "Current number of seen-player records",
		}),
		SeenRecordsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "seen_records_purged_total",
			Help:      "Total number of seen-player records removed by retention sweeps",
		}),
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful scan cycle",
		}),
	}
}

// Rejection stages used as the stage label of CandidatesRejected.
const (
	StageBlacklisted = "blacklisted"
	StageAlreadySeen = "already_seen"
	StageIneligible  = "ineligible"
)

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
