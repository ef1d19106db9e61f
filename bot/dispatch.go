package bot

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentUpdates bounds how many drivers are served at once.
const maxConcurrentUpdates = 16

type inbound struct {
	chatID   int64
	driverID int64
	text     string
}

// dispatcher serves different drivers in parallel and keeps each driver's
// messages in arrival order. A driver's queue stays in the map while a worker
// is draining it.
type dispatcher struct {
	handle func(ctx context.Context, m inbound)
	g      errgroup.Group

	mu     sync.Mutex
	queues map[int64][]inbound
}

func newDispatcher(limit int, handle func(ctx context.Context, m inbound)) *dispatcher {
	d := &dispatcher{
		handle: handle,
		queues: make(map[int64][]inbound),
	}
	d.g.SetLimit(limit)
	return d
}

// Dispatch queues m. It blocks while limit drivers are already being served.
func (d *dispatcher) Dispatch(ctx context.Context, m inbound) {
	d.mu.Lock()
	q, running := d.queues[m.driverID]
	d.queues[m.driverID] = append(q, m)
	d.mu.Unlock()
	if running {
		return
	}
	d.g.Go(func() error {
		d.drain(ctx, m.driverID)
		return nil
	})
}

func (d *dispatcher) drain(ctx context.Context, driverID int64) {
	for {
		d.mu.Lock()
		q := d.queues[driverID]
		if len(q) == 0 {
			delete(d.queues, driverID)
			d.mu.Unlock()
			return
		}
		next := q[0]
		d.queues[driverID] = q[1:]
		d.mu.Unlock()
		d.handle(ctx, next)
	}
}

// Wait blocks until every queued message has been handled.
func (d *dispatcher) Wait() {
	_ = d.g.Wait()
}
