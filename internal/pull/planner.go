// Package pull implements the inbound half of the sync engine: planning
// windowed remote queries, applying remote values to local records, and
// advancing the per-mapping watermark.
package pull

import (
	"context"
	"time"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/event"
	"github.com/forcelink/forcelink/internal/remote"
)

// Planner builds the remote query for one pull cycle window.
type Planner struct {
	bus event.Bus
}

func NewPlanner(bus event.Bus) *Planner {
	return &Planner{bus: bus}
}

// Plan selects the id, the trigger-date field, and every pull-eligible
// bound field, bounded to (lastPull, windowEnd]. The upper bound is fixed
// by the caller once per cycle so records modified while the cycle runs
// fall into the next window instead of being half-seen by this one.
// Subscribers of PullQueryBuild may append conditions before execution.
func (p *Planner) Plan(ctx context.Context, m *domain.Mapping, windowEnd time.Time) (*remote.Query, error) {
	q := remote.NewQuery(m.RemoteObject).Select(remote.IDField, m.PullDateField)
	for _, b := range m.Bindings {
		if b.PullEligible() && b.Kind != domain.BindingConstant {
			q.Select(b.RemoteField)
		}
	}

	if m.PullDateField != "" {
		if m.LastPullAt != nil {
			q.Where(m.PullDateField, ">", remote.TimeValue(*m.LastPullAt))
		}
		q.Where(m.PullDateField, "<=", remote.TimeValue(windowEnd))
	}

	hc := &event.Context{
		Hook:    event.PullQueryBuild,
		Mapping: m,
		Query:   q,
	}
	if err := p.bus.Fire(ctx, hc); err != nil {
		return nil, err
	}
	return hc.Query, nil
}
