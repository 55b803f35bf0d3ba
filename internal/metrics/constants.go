package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// Sync metric names
const (
	MetricNamePushItemsTotal      = "sync_push_items_total"
	MetricNamePullRecordsTotal    = "sync_pull_records_total"
	MetricNameDeletesTotal        = "sync_deletes_reconciled_total"
	MetricNameCycleDuration       = "sync_cycle_duration_seconds"
	MetricNameQueueDepth          = "sync_push_queue_depth"
	MetricNameQuarantineDepth     = "sync_push_queue_quarantined"
	MetricNameRemoteCallDuration  = "sync_remote_call_duration_seconds"
	MetricNameRemoteCallErrors    = "sync_remote_call_errors_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Sync metric help text
const (
	HelpTextPushItemsTotal     = "Total number of push queue items processed, by outcome"
	HelpTextPullRecordsTotal   = "Total number of remote records pulled, by outcome"
	HelpTextDeletesTotal       = "Total number of remote deletions reconciled locally"
	HelpTextCycleDuration      = "Sync cycle duration in seconds, by cycle kind"
	HelpTextQueueDepth         = "Current number of active push queue items"
	HelpTextQuarantineDepth    = "Current number of quarantined push queue items"
	HelpTextRemoteCallDuration = "Remote API call latency in seconds, by call"
	HelpTextRemoteCallErrors   = "Total number of failed remote API calls, by call and kind"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
	LabelMapping = "mapping"
	LabelOutcome = "outcome"
	LabelCycle   = "cycle"
	LabelCall    = "call"
	LabelKind    = "kind"
)

// Outcome label values
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeFailed      = "failed"
	OutcomeSkipped     = "skipped"
	OutcomeQuarantined = "quarantined"
)

// Cycle label values
const (
	CyclePush      = "push"
	CyclePull      = "pull"
	CycleReconcile = "reconcile"
)
