package engine

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher runs remote calls on one background worker in the order they
// were enqueued. Failures are logged and never retried.
type Dispatcher struct {
	queue   chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *log.Logger
	timeout func() (context.Context, context.CancelFunc)
}

func NewDispatcher(queueSize int, logger *log.Logger, timeout func() (context.Context, context.CancelFunc)) *Dispatcher {
	d := &Dispatcher{
		queue:   make(chan job, queueSize),
		logger:  logger,
		timeout: timeout,
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

// Enqueue schedules fn. It reports false when the queue is full or the
// dispatcher has shut down, in which case the call is dropped.
func (d *Dispatcher) Enqueue(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WithField("op", name).Warn("sync dropped: dispatcher closed")
		return false
	}

	select {
	case d.queue <- job{name: name, run: fn}:
		return true
	default:
		d.logger.WithField("op", name).Warn("sync dropped: queue full")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.queue {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j job) {
	ctx, cancel := d.timeout()
	defer cancel()

	if err := j.run(ctx); err != nil {
		d.logger.WithError(err).WithField("op", j.name).Error("sync failed")
		return
	}
	d.logger.WithField("op", j.name).Debug("sync ok")
}

// Shutdown stops accepting work and waits for queued calls to finish or for
// ctx to end, whichever comes first.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Debug("sync dispatcher drained")
	case <-ctx.Done():
		d.logger.Warn("sync dispatcher shutdown timed out")
	}
}
