package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"billsplit/internal/telegram"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("update queue is full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// UpdateHandler processes one webhook update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *telegram.Update) error
}

// Dispatcher feeds webhook updates to a fixed pool of workers so the
// webhook can be acknowledged before the slow vision call runs.
type Dispatcher struct {
	workers int
	timeout time.Duration
	handler UpdateHandler
	log     *zap.Logger

	queue chan *telegram.Update
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(workers, queueSize int, timeout time.Duration, handler UpdateHandler, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		workers: workers,
		timeout: timeout,
		handler: handler,
		log:     log,
		queue:   make(chan *telegram.Update, queueSize),
	}
}

// Start launches the workers. They exit when ctx is done or Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := range d.workers {
		d.wg.Add(1)
		go d.run(ctx, i)
	}
	d.log.Info("dispatcher started", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.queue)))
}

// Dispatch enqueues without blocking
func (d *Dispatcher) Dispatch(update *telegram.Update) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- update:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new updates, lets workers finish what is queued and waits for them
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-d.queue:
			if !ok {
				return
			}
			d.process(ctx, id, update)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, worker int, update *telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("update handler panicked",
				zap.Int("worker", worker),
				zap.Int64("update_id", update.UpdateID),
				zap.Any("panic", r),
			)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.handler.HandleUpdate(ctx, update); err != nil {
		d.log.Error("update failed",
			zap.Int("worker", worker),
			zap.Int64("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
}
