package bootstrap

// =============================================================================
// Wiring Messages
// =============================================================================

const (
	LogMsgRepositoriesInitialized = "Repositories initialized"
	LogMsgSyncEngineInitialized   = "Sync engine initialized"
	LogMsgSubscribersRegistered   = "Bus subscribers registered"
	LogMsgSchedulerStarted        = "Cycle scheduler started"
)

// =============================================================================
// Shutdown Messages
// =============================================================================

const (
	LogMsgShuttingDownServer    = "Shutting down server..."
	LogMsgShuttingDownScheduler = "Shutting down scheduler..."
	LogMsgShuttingDownWorkers   = "Shutting down worker pool..."
	LogMsgClosingDatabase       = "Closing database pool..."
	LogMsgServerStopped         = "Server stopped"
	LogMsgServerForcedShutdown  = "Server forced to shutdown"
)
