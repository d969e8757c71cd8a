package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/harrisonrobin/dayboard/pkg/logger"
)

func TestSchedulerRunsJobsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(logger.Discard(), time.Second)
	ran := make(chan struct{}, 4)
	var failures atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}))
	require.NoError(t, s.Add("broken", "@every 1s", func(ctx context.Context) error {
		failures.Add(1)
		return errors.New("boom")
	}))
	require.NoError(t, s.Add("panics", "@every 1s", func(ctx context.Context) error {
		panic("job bug")
	}))
	assert.Equal(t, []string{"tick", "broken", "panics"}, s.Jobs())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(logger.Discard(), 0)
	err := s.Add("bad", "every now and then", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestJobContextIsBounded(t *testing.T) {
	s := New(logger.Discard(), 20*time.Millisecond)
	var deadline bool
	s.run("probe", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	assert.True(t, deadline)
}
