package pull

import (
	"context"
	"fmt"

	"github.com/forcelink/forcelink/internal/clock"
	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/logger"
	"github.com/forcelink/forcelink/internal/remote"
	"github.com/forcelink/forcelink/internal/repository"
)

// Service runs pull cycles: one windowed query per mapping, applied page
// by page, with the watermark advanced only after a fully clean cycle.
type Service struct {
	mappings repository.Mapping
	planner  *Planner
	worker   *Worker
	client   remote.Client
	clk      clock.Clock
}

func NewService(
	mappings repository.Mapping,
	planner *Planner,
	worker *Worker,
	client remote.Client,
	clk clock.Clock,
) *Service {
	return &Service{
		mappings: mappings,
		planner:  planner,
		worker:   worker,
		client:   client,
		clk:      clk,
	}
}

// RunCycle pulls one mapping's window. force bypasses conflict resolution
// for every record (operator re-seed). Any record failure leaves the
// watermark where it was, so the next cycle re-reads the same window;
// at-least-once is the contract, applying is idempotent.
func (s *Service) RunCycle(ctx context.Context, m *domain.Mapping, force bool) (domain.CycleSummary, error) {
	log := logger.FromContext(ctx)
	var summary domain.CycleSummary
	start := s.clk.Now()

	// The window closes at cycle start, exactly once. Records changing
	// mid-cycle belong to the next window.
	windowEnd := start

	q, err := s.planner.Plan(ctx, m, windowEnd)
	if err != nil {
		summary.Duration = s.clk.Since(start)
		return summary, fmt.Errorf("planning pull for %s: %w", m.ID, err)
	}

	res, err := s.client.Query(ctx, *q)
	if err != nil {
		summary.Duration = s.clk.Since(start)
		return summary, s.classifyCycleError(m, err)
	}

	for {
		for _, rec := range res.Records {
			if ctx.Err() != nil {
				summary.Duration = s.clk.Since(start)
				return summary, ctx.Err()
			}

			item := domain.PullItem{MappingID: m.ID, Record: rec, Force: force}
			out, err := s.worker.Apply(ctx, m, item)
			switch {
			case err == nil && out == outcomeApplied:
				summary.Succeeded++
			case err == nil:
				summary.Skipped++
			case remote.IsAuth(err):
				summary.Duration = s.clk.Since(start)
				return summary, fmt.Errorf("%w: %s", domain.ErrCycleAborted, err.Error())
			default:
				summary.Failed++
				log.Warn("failed to apply remote record",
					"mapping_id", m.ID, "remote_id", rec.ID(), "error", err)
			}
		}
		if res.Done {
			break
		}
		res, err = s.client.QueryMore(ctx, res.NextPageToken)
		if err != nil {
			summary.Duration = s.clk.Since(start)
			return summary, s.classifyCycleError(m, err)
		}
	}

	if summary.Failed == 0 {
		if err := s.mappings.AdvancePullWatermark(ctx, m.ID, windowEnd); err != nil {
			summary.Duration = s.clk.Since(start)
			return summary, fmt.Errorf("advancing pull watermark for %s: %w", m.ID, err)
		}
	} else {
		log.Warn("pull cycle had failures, watermark not advanced",
			"mapping_id", m.ID, "failed", summary.Failed)
	}

	summary.Duration = s.clk.Since(start)
	return summary, nil
}

func (s *Service) classifyCycleError(m *domain.Mapping, err error) error {
	if remote.IsAuth(err) {
		return fmt.Errorf("%w: %s", domain.ErrCycleAborted, err.Error())
	}
	return fmt.Errorf("querying %s: %w", m.RemoteObject, err)
}
