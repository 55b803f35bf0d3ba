package worker

// ============================================================================
// Log Messages - Worker Pool
// ============================================================================

// LogMsgWorkerJobFailed is logged when a worker fails to process a job
const LogMsgWorkerJobFailed = "Worker job failed"

// ============================================================================
// Log Messages - Sync Cycle Jobs
// ============================================================================

// Log messages for the scheduled sync cycle jobs
const (
	LogMsgPushCycleFailed      = "Push cycle failed"
	LogMsgPullCycleFailed      = "Pull cycle failed"
	LogMsgReconcileCycleFailed = "Delete reconcile cycle failed"
	LogMsgQueueGaugeFailed     = "Failed to read push queue depth"
)

// ============================================================================
// Test Configuration
// ============================================================================

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount           = 2
	TestQueueSize             = 10
	TestExpectedJobCount      = 2
	TestWorkerProcessWaitTime = 100 // milliseconds
)
