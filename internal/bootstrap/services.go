package bootstrap

import (
	"log/slog"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/config"
	"github.com/forcelink/forcelink/internal/engine"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/fieldmap"
	"github.com/forcelink/forcelink/internal/pull"
	"github.com/forcelink/forcelink/internal/push"
	"github.com/forcelink/forcelink/internal/reconcile"
	"github.com/forcelink/forcelink/internal/registry"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/store"
)

// Services holds the wired sync engine and its collaborators.
type Services struct {
	Bus      event.Bus
	Registry *registry.Registry
	Engine   *engine.Engine
}

// InitializeServices wires the sync engine on top of the repositories, the
// local entity store and the remote client. Local saves flow through the
// enqueuer observer, which is what turns entity edits into push queue items.
func InitializeServices(cfg *config.Config, repos *Repositories, st *store.MemoryStore, client remote.Client) *Services {
	bus := event.NewMemoryBus()
	clk := clock.NewRealClock()

	reg := registry.New(repos.Mappings)
	translator := fieldmap.NewTranslator(repos.Links, bus)

	enqueuer := push.NewEnqueuer(reg, repos.Queue, bus)
	st.Observe(enqueuer.RecordChanged)

	processor := push.NewProcessor(repos.Queue, repos.Links, st, translator, client, bus, clk, push.Options{
		BatchSize:   cfg.PushBatchSize,
		Lease:       cfg.PushLease,
		MaxFailures: cfg.PushMaxFailures,
	})

	planner := pull.NewPlanner(bus)
	pullWorker := pull.NewWorker(repos.Links, st, translator, client, bus, clk)
	puller := pull.NewService(repos.Mappings, planner, pullWorker, client, clk)

	reconciler := reconcile.NewReconciler(repos.Mappings, repos.Links, st, client, bus, clk)

	eng := engine.New(reg, processor, puller, reconciler, repos.Links, st, clk, cfg.CycleBudget)

	RegisterMetricsSubscribers(bus)

	slog.Info(LogMsgSyncEngineInitialized,
		"push_batch_size", cfg.PushBatchSize,
		"push_lease", cfg.PushLease,
		"push_max_failures", cfg.PushMaxFailures,
		"cycle_budget", cfg.CycleBudget)

	return &Services{
		Bus:      bus,
		Registry: reg,
		Engine:   eng,
	}
}
