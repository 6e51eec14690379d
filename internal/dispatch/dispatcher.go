package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"pdfwhacker/internal/logging"
	"pdfwhacker/internal/services"
)

// DefaultQueueSize bounds how many accepted files may wait for a worker.
const DefaultQueueSize = 1024

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("dispatcher not started")
)

// Handler processes one file. It must not retain path beyond the call.
type Handler func(ctx context.Context, path string)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of concurrent handlers. Values below one use
// one worker per CPU.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

// WithQueueSize overrides the pending queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher feeds files to a fixed pool of workers and guarantees that at
// most one job per file name is queued or running at any time.
type Dispatcher struct {
	handler   Handler
	workers   int
	queueSize int
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	queue    chan string
	started  bool
	closed   bool
	group    *errgroup.Group
}

// New constructs a Dispatcher that invokes handler for each accepted file.
func New(handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler:   handler,
		queueSize: DefaultQueueSize,
		logger:    logging.NewNop(),
		inFlight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = runtime.NumCPU()
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Workers reports the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Start launches the workers. They stop when ctx is cancelled or Close
// drains the queue.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.New("dispatcher already started")
	}
	if d.handler == nil {
		return errors.New("dispatcher handler required")
	}
	d.started = true
	d.queue = make(chan string, d.queueSize)
	d.group = &errgroup.Group{}
	for range d.workers {
		d.group.Go(func() error {
			d.work(ctx)
			return nil
		})
	}
	d.logger.Debug("dispatcher started", logging.Int("workers", d.workers))
	return nil
}

// Submit queues path for processing. It returns false without error when a
// job for the same file name is already queued or running. Submit blocks
// while the queue is full, until ctx ends.
func (d *Dispatcher) Submit(ctx context.Context, path string) (bool, error) {
	key := filepath.Base(path)

	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return false, ErrNotStarted
	}
	if d.closed {
		d.mu.Unlock()
		return false, ErrClosed
	}
	if _, busy := d.inFlight[key]; busy {
		d.mu.Unlock()
		d.logger.Debug("duplicate submission dropped", logging.String(logging.FieldFile, key))
		return false, nil
	}
	d.inFlight[key] = struct{}{}
	queue := d.queue
	d.mu.Unlock()

	select {
	case queue <- path:
		return true, nil
	case <-ctx.Done():
		d.release(key)
		return false, ctx.Err()
	}
}

// InFlight reports how many files are queued or running.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inFlight)
}

// Busy reports whether a job for path's file name is queued or running.
func (d *Dispatcher) Busy(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[filepath.Base(path)]
	return ok
}

// Close stops accepting work, lets queued jobs finish, and waits for the
// workers to exit.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.started || d.closed {
		d.closed = true
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	group := d.group
	d.mu.Unlock()
	return group.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drainCancelled()
			return
		case path, ok := <-d.queue:
			if !ok {
				return
			}
			d.run(ctx, path)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, path string) {
	key := filepath.Base(path)
	defer d.release(key)
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(d.logger, "handler panicked", "dispatch_panic",
				logging.String(logging.FieldFile, key),
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	jobCtx, _ := services.EnsureJobID(services.WithFile(ctx, key))
	d.handler(jobCtx, path)
}

// drainCancelled releases queued names after cancellation so a restart can
// resubmit them.
func (d *Dispatcher) drainCancelled() {
	for {
		select {
		case path, ok := <-d.queue:
			if !ok {
				return
			}
			d.release(filepath.Base(path))
		default:
			return
		}
	}
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.inFlight, key)
	d.mu.Unlock()
}
