package worker

import (
	"context"
	"time"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/metrics"
	"github.com/forcelink/forcelink/internal/repository"
)

// SyncEngine is the subset of the engine the scheduled cycle jobs drive.
type SyncEngine interface {
	RunPushCycle(ctx context.Context) (domain.CycleSummary, error)
	RunPullCycle(ctx context.Context) (domain.CycleSummary, error)
	RunDeleteReconcile(ctx context.Context) (domain.CycleSummary, error)
}

// PushCycleJob drains the push queue across all scheduled mappings and
// refreshes the queue depth gauges afterwards.
type PushCycleJob struct {
	Engine SyncEngine
	Queue  repository.PushQueue
}

// Process implements Job.
func (j *PushCycleJob) Process(ctx context.Context) error {
	start := time.Now()
	_, err := j.Engine.RunPushCycle(ctx)
	metrics.CycleDuration.WithLabelValues(metrics.CyclePush).Observe(time.Since(start).Seconds())
	RefreshQueueGauges(ctx, j.Queue)
	if err != nil {
		logger.FromContext(ctx).Error(LogMsgPushCycleFailed, "error", err)
	}
	return err
}

// PullCycleJob runs one inbound pull cycle across all scheduled mappings.
type PullCycleJob struct {
	Engine SyncEngine
}

// Process implements Job.
func (j *PullCycleJob) Process(ctx context.Context) error {
	start := time.Now()
	_, err := j.Engine.RunPullCycle(ctx)
	metrics.CycleDuration.WithLabelValues(metrics.CyclePull).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.FromContext(ctx).Error(LogMsgPullCycleFailed, "error", err)
	}
	return err
}

// ReconcileJob propagates remote deletions for all pull mappings.
type ReconcileJob struct {
	Engine SyncEngine
}

// Process implements Job.
func (j *ReconcileJob) Process(ctx context.Context) error {
	start := time.Now()
	summary, err := j.Engine.RunDeleteReconcile(ctx)
	metrics.CycleDuration.WithLabelValues(metrics.CycleReconcile).Observe(time.Since(start).Seconds())
	metrics.DeletesReconciled.Add(float64(summary.Succeeded))
	if err != nil {
		logger.FromContext(ctx).Error(LogMsgReconcileCycleFailed, "error", err)
	}
	return err
}

// RefreshQueueGauges updates the push queue depth gauges. Failures are logged
// and swallowed so a metrics hiccup never fails a cycle.
func RefreshQueueGauges(ctx context.Context, queue repository.PushQueue) {
	depth, err := queue.Depth(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgQueueGaugeFailed, "error", err)
		return
	}
	metrics.QueueDepth.Set(float64(depth))

	quarantined, err := queue.ListQuarantined(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgQueueGaugeFailed, "error", err)
		return
	}
	metrics.QuarantineDepth.Set(float64(len(quarantined)))
}
