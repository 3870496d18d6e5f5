package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestPoller_SweepsUnsentRecords(t *testing.T) {
	a1 := freshAssessment()
	a2 := freshAssessment()
	sent := freshAssessment()
	sent.EmailSent = true

	tp := newTestPipeline(a1, a2, sent)
	poller := NewPoller(tp.processor, 10*time.Millisecond, 5, 0)

	go poller.Run(context.Background())
	defer poller.Stop()

	waitFor(t, 2*time.Second, func() bool { return tp.deliverer.callCount() == 2 })

	stored, _ := tp.store.GetByID(context.Background(), a1.ID)
	assert.True(t, stored.EmailSent)
	stored, _ = tp.store.GetByID(context.Background(), a2.ID)
	assert.True(t, stored.EmailSent)

	// The already-sent record is filtered out by the query and never touched.
	assert.Equal(t, 2, tp.analyzer.callCount())
}

func TestPoller_RespectsBatchSize(t *testing.T) {
	tp := newTestPipeline(freshAssessment(), freshAssessment(), freshAssessment())
	poller := NewPoller(tp.processor, 10*time.Millisecond, 2, 0)

	go poller.Run(context.Background())
	defer poller.Stop()

	// Two cycles are enough for all three records at batch size 2.
	waitFor(t, 2*time.Second, func() bool { return tp.deliverer.callCount() == 3 })
}

func TestPoller_StopInterruptsSweep(t *testing.T) {
	tp := newTestPipeline(freshAssessment(), freshAssessment(), freshAssessment())
	tp.analyzer.delay = 30 * time.Millisecond

	poller := NewPoller(tp.processor, 10*time.Millisecond, 5, 0)
	go poller.Run(context.Background())

	// Stop while the first record is mid-analysis. The in-flight record
	// finishes but the rest of the batch is abandoned.
	waitFor(t, 2*time.Second, func() bool { return tp.analyzer.callCount() >= 1 })
	poller.Stop()

	select {
	case <-poller.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	assert.False(t, poller.Alive())
	assert.Less(t, tp.deliverer.callCount(), 3, "stop must leave unstarted records for later")
}

func TestPoller_ContextCancel(t *testing.T) {
	tp := newTestPipeline()
	poller := NewPoller(tp.processor, 10*time.Millisecond, 5, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)

	waitFor(t, time.Second, poller.Alive)
	cancel()

	select {
	case <-poller.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not exit on context cancel")
	}
}

func TestPoller_Defaults(t *testing.T) {
	poller := NewPoller(nil, 0, 0, -1)
	require.Equal(t, DefaultPollInterval, poller.interval)
	require.Equal(t, DefaultBatchSize, poller.batchSize)
	require.Equal(t, DefaultRecordDelay, poller.recordDelay)
}
