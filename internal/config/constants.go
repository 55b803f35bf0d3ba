package config

import "time"

// Default Server Configuration
const (
	DefaultPort = 8080
)

// Default Sync Engine Tuning
const (
	// DefaultPushBatchSize is the number of queue items claimed per batch
	DefaultPushBatchSize = 50

	// DefaultPushMaxFailures is the failure count after which an item
	// is quarantined instead of retried
	DefaultPushMaxFailures = 5

	// DefaultPushLease is how long a claimed queue item is invisible
	// to other processors
	DefaultPushLease = 2 * time.Minute

	// DefaultCycleBudget bounds the wall-clock time of one cycle
	DefaultCycleBudget = 5 * time.Minute

	// DefaultWorkerCount is the size of the background worker pool
	DefaultWorkerCount = 2
)

// Default Scheduler Intervals (0 disables the scheduled cycle)
const (
	DefaultPushInterval      = time.Minute
	DefaultPullInterval      = 5 * time.Minute
	DefaultReconcileInterval = 30 * time.Minute
)
