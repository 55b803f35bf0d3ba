package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forcelink/forcelink/internal/bootstrap"
	"github.com/forcelink/forcelink/internal/config"
	"github.com/forcelink/forcelink/internal/database"
	"github.com/forcelink/forcelink/internal/handler"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/scheduler"
	"github.com/forcelink/forcelink/internal/server"
	"github.com/forcelink/forcelink/internal/store"
	"github.com/forcelink/forcelink/internal/worker"
)

// Connection pool and shutdown tuning for the service process.
const (
	DBMaxConnections = 10
	DBMaxIdleTime    = 30 * time.Minute
	DBMaxLifetime    = time.Hour
	WorkerQueueSize  = 16
	ShutdownTimeout  = 10 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration failed", "error", err)
		os.Exit(1)
	}

	// Setup logging and request validation
	initLogger(cfg)
	handler.InitValidator()

	// Connect to the database and apply migrations
	connString := cfg.GetDBConnString()
	dbPool, err := database.NewPool(connString, DBMaxConnections, DBMaxIdleTime, DBMaxLifetime)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(context.Background(), connString); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		dbPool.Close()
		os.Exit(1)
	}

	// Wire repositories and the sync engine. The entity store and remote
	// backend are in-process; swap the client here to sync against a real
	// remote system.
	repos := bootstrap.InitializeRepositories(dbPool)
	entityStore := store.NewMemoryStore()
	tokens := remote.StaticTokenProvider{Token: cfg.RemoteToken}
	client := remote.Instrument(remote.WithAuth(remote.NewFakeClient(), tokens))
	services := bootstrap.InitializeServices(cfg, repos, entityStore, client)

	// Start the worker pool and schedule the sync cycles. An interval of
	// zero disables that cycle; it can still be triggered over HTTP.
	pool := worker.NewPool(cfg.WorkerCount, WorkerQueueSize)
	pool.Start()

	sched := scheduler.New(pool)
	if cfg.PushInterval > 0 {
		sched.Schedule(cfg.PushInterval, &worker.PushCycleJob{Engine: services.Engine, Queue: repos.Queue})
	}
	if cfg.PullInterval > 0 {
		sched.Schedule(cfg.PullInterval, &worker.PullCycleJob{Engine: services.Engine})
	}
	if cfg.ReconcileInterval > 0 {
		sched.Schedule(cfg.ReconcileInterval, &worker.ReconcileJob{Engine: services.Engine})
	}
	slog.Info(bootstrap.LogMsgSchedulerStarted,
		"push_interval", cfg.PushInterval,
		"pull_interval", cfg.PullInterval,
		"reconcile_interval", cfg.ReconcileInterval)

	// Start the HTTP server
	srv := server.NewServer(cfg.Port, cfg.APIKey, nil, dbPool,
		services.Engine, repos.Queue, repos.Mappings, repos.Links, services.Registry)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	bootstrap.GracefulShutdown(ctx, bootstrap.ShutdownComponents{
		Server:    srv,
		Scheduler: sched,
		Pool:      pool,
		DBPool:    dbPool,
	})
}
