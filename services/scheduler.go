package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type scheduledTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	next     time.Time
}

// Scheduler runs registered periodic tasks from a single goroutine with a
// single timer. Tasks run one at a time; a slow task delays the others.
type Scheduler struct {
	log *zap.Logger
	now func() time.Time

	mu    sync.Mutex
	tasks []*scheduledTask
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log, now: time.Now}
}

// Register adds a task. Its first run is one interval after Run starts
// (or after registration, if Run is already going).
func (s *Scheduler) Register(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &scheduledTask{
		name:     name,
		interval: interval,
		fn:       fn,
		next:     s.now().Add(interval),
	})
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.untilNext())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			s.runDue(ctx)
			timer.Reset(s.untilNext())
		}
	}
}

func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return time.Minute
	}
	next := s.tasks[0].next
	for _, t := range s.tasks[1:] {
		if t.next.Before(next) {
			next = t.next
		}
	}
	d := next.Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	var due []*scheduledTask
	for _, t := range s.tasks {
		if !t.next.After(now) {
			due = append(due, t)
			t.next = now.Add(t.interval)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := t.fn(ctx); err != nil {
			s.log.Error("scheduled task failed", zap.String("task", t.name), zap.Error(err))
			continue
		}
		s.log.Debug("scheduled task done", zap.String("task", t.name), zap.Duration("took", time.Since(start)))
	}
}
