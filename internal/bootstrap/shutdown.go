package bootstrap

import (
	"context"
	"log/slog"

	"github.com/forcelink/forcelink/internal/database"
	"github.com/forcelink/forcelink/internal/scheduler"
	"github.com/forcelink/forcelink/internal/server"
	"github.com/forcelink/forcelink/internal/worker"
)

// ShutdownComponents holds all components that need graceful shutdown.
type ShutdownComponents struct {
	Server    *server.Server
	Scheduler *scheduler.Scheduler
	Pool      *worker.Pool
	DBPool    database.Pool
}

// GracefulShutdown stops the application components in order:
//  1. Scheduler (stop queueing new cycles)
//  2. Worker pool (let in-flight cycles finish)
//  3. HTTP server (stop accepting new requests)
//  4. Database pool
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, components ShutdownComponents) {
	if components.Scheduler != nil {
		slog.Info(LogMsgShuttingDownScheduler)
		components.Scheduler.Stop()
	}

	if components.Pool != nil {
		slog.Info(LogMsgShuttingDownWorkers)
		components.Pool.Stop()
	}

	if components.Server != nil {
		slog.Info(LogMsgShuttingDownServer)
		if err := components.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if components.DBPool != nil {
		slog.Info(LogMsgClosingDatabase)
		components.DBPool.Close()
	}

	slog.Info(LogMsgServerStopped)
}
