package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcelink/forcelink/internal/domain"
	"github.com/forcelink/forcelink/internal/repository"
)

type stubEngine struct {
	pushCalls      int
	pullCalls      int
	reconcileCalls int
	err            error
}

func (e *stubEngine) RunPushCycle(ctx context.Context) (domain.CycleSummary, error) {
	e.pushCalls++
	return domain.CycleSummary{Succeeded: 1}, e.err
}

func (e *stubEngine) RunPullCycle(ctx context.Context) (domain.CycleSummary, error) {
	e.pullCalls++
	return domain.CycleSummary{}, e.err
}

func (e *stubEngine) RunDeleteReconcile(ctx context.Context) (domain.CycleSummary, error) {
	e.reconcileCalls++
	return domain.CycleSummary{}, e.err
}

func TestPushCycleJobRunsEngine(t *testing.T) {
	eng := &stubEngine{}
	job := &PushCycleJob{Engine: eng, Queue: repository.NewFakePushQueue()}

	require.NoError(t, job.Process(context.Background()))
	assert.Equal(t, 1, eng.pushCalls)
}

func TestPushCycleJobReturnsEngineError(t *testing.T) {
	eng := &stubEngine{err: assert.AnError}
	job := &PushCycleJob{Engine: eng, Queue: repository.NewFakePushQueue()}

	assert.Error(t, job.Process(context.Background()))
}

func TestPullAndReconcileJobsRunEngine(t *testing.T) {
	eng := &stubEngine{}

	require.NoError(t, (&PullCycleJob{Engine: eng}).Process(context.Background()))
	require.NoError(t, (&ReconcileJob{Engine: eng}).Process(context.Background()))

	assert.Equal(t, 1, eng.pullCalls)
	assert.Equal(t, 1, eng.reconcileCalls)
}
