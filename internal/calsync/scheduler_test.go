package calsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerSyncsOnStartAndTick(t *testing.T) {
	h := newHarness(t)
	tick := make(chan time.Time)
	stopped := make(chan struct{})
	sched, err := NewScheduler(h.syncer, SchedulerConfig{
		BatchSize: 10,
		Tick:      tick,
		Stop:      func() { close(stopped) },
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	callCount := func() int {
		h.api.mu.Lock()
		defer h.api.mu.Unlock()
		return len(h.api.calls)
	}
	require.Eventually(t, func() bool { return callCount() == 1 }, time.Second, 5*time.Millisecond)
	tick <- time.Now()
	require.Eventually(t, func() bool { return callCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	<-stopped
	h.api.mu.Lock()
	assert.Equal(t, 10, h.api.calls[0].Take)
	h.api.mu.Unlock()
}

func TestNewSchedulerRequiresSyncer(t *testing.T) {
	_, err := NewScheduler(nil, SchedulerConfig{}, nil)
	assert.Error(t, err)
}
