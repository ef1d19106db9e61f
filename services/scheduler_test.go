package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScheduler_RunsTasksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(zap.NewNop())

	var fast, slow, failing atomic.Int32
	s.Register("fast", 10*time.Millisecond, func(context.Context) error {
		fast.Add(1)
		return nil
	})
	s.Register("slow", time.Hour, func(context.Context) error {
		slow.Add(1)
		return nil
	})
	s.Register("failing", 10*time.Millisecond, func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return fast.Load() >= 3 && failing.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, slow.Load())
}

func TestScheduler_NoTasks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, NewScheduler(zap.NewNop()).Run(ctx))
}
