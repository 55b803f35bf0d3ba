package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Sync Metrics
var (
	PushItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePushItemsTotal,
			Help: HelpTextPushItemsTotal,
		},
		[]string{LabelMapping, LabelOutcome},
	)

	PullRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePullRecordsTotal,
			Help: HelpTextPullRecordsTotal,
		},
		[]string{LabelMapping, LabelOutcome},
	)

	DeletesReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameDeletesTotal,
			Help: HelpTextDeletesTotal,
		},
	)

	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameCycleDuration,
			Help:    HelpTextCycleDuration,
			Buckets: CycleDurationBuckets,
		},
		[]string{LabelCycle},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameQueueDepth,
			Help: HelpTextQueueDepth,
		},
	)

	QuarantineDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameQuarantineDepth,
			Help: HelpTextQuarantineDepth,
		},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameRemoteCallDuration,
			Help:    HelpTextRemoteCallDuration,
			Buckets: RemoteLatencyBuckets,
		},
		[]string{LabelCall},
	)

	RemoteCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRemoteCallErrors,
			Help: HelpTextRemoteCallErrors,
		},
		[]string{LabelCall, LabelKind},
	)
)

// Histogram buckets
var (
	HTTPLatencyBuckets   = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	RemoteLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	CycleDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300}
)
