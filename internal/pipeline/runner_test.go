package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(tp *testPipeline) *Runner {
	return NewRunner(tp.processor, 10*time.Millisecond, 5, 0)
}

func TestRunner_StartIsIdempotent(t *testing.T) {
	tp := newTestPipeline()
	runner := newTestRunner(tp)
	defer runner.Stop()

	assert.True(t, runner.Start(context.Background()))
	assert.False(t, runner.Start(context.Background()), "second start must be a no-op")

	status := runner.Status()
	assert.True(t, status.Running)
}

func TestRunner_StopSignalsOnly(t *testing.T) {
	a := freshAssessment()
	tp := newTestPipeline(a)
	tp.analyzer.delay = 50 * time.Millisecond

	runner := newTestRunner(tp)
	require.True(t, runner.Start(context.Background()))

	// Wait until the poller picked up the record, then stop mid-stage.
	waitFor(t, 2*time.Second, func() bool { return tp.analyzer.callCount() == 1 })
	assert.True(t, runner.Stop())
	assert.False(t, runner.Stop(), "stopping twice reports nothing to stop")

	// Stop does not cancel in-flight work: the record still completes.
	waitFor(t, 2*time.Second, func() bool { return tp.deliverer.callCount() == 1 })

	waitFor(t, 2*time.Second, func() bool { return !runner.Status().Alive })
	assert.False(t, runner.Status().Running)
}

func TestRunner_RestartAfterStop(t *testing.T) {
	tp := newTestPipeline()
	runner := newTestRunner(tp)

	require.True(t, runner.Start(context.Background()))
	require.True(t, runner.Stop())
	waitFor(t, 2*time.Second, func() bool { return !runner.Status().Alive })

	assert.True(t, runner.Start(context.Background()), "stopped runner can be started again")
	waitFor(t, 2*time.Second, func() bool { return runner.Status().Alive })
	runner.Stop()
}

func TestRunner_StatusIdle(t *testing.T) {
	runner := newTestRunner(newTestPipeline())

	status := runner.Status()
	assert.False(t, status.Running)
	assert.False(t, status.Alive)
}
