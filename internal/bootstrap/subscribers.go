package bootstrap

import (
	"context"
	"log/slog"

	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/metrics"
)

// RegisterMetricsSubscribers attaches the metrics collector to the bus. The
// collector rides the same extension points plugins use, so per-mapping
// outcome counters stay in step with what subscribers actually saw.
func RegisterMetricsSubscribers(bus event.Bus) {
	bus.Subscribe(event.PushSucceeded, func(_ context.Context, hc *event.Context) error {
		metrics.PushItemsProcessed.WithLabelValues(mappingLabel(hc), metrics.OutcomeSucceeded).Inc()
		return nil
	})

	bus.Subscribe(event.PushFailed, func(_ context.Context, hc *event.Context) error {
		metrics.PushItemsProcessed.WithLabelValues(mappingLabel(hc), metrics.OutcomeFailed).Inc()
		return nil
	})

	bus.Subscribe(event.PullApplied, func(_ context.Context, hc *event.Context) error {
		metrics.PullRecordsProcessed.WithLabelValues(mappingLabel(hc), metrics.OutcomeSucceeded).Inc()
		return nil
	})

	slog.Info(LogMsgSubscribersRegistered)
}

func mappingLabel(hc *event.Context) string {
	if hc.Mapping == nil {
		return "unknown"
	}
	return hc.Mapping.Name
}
