package readiness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"pdfwhacker/internal/logging"
)

// DefaultPollInterval is the delay between readiness probes.
const DefaultPollInterval = 250 * time.Millisecond

// DefaultSettlePolls is how many further probes must see an unchanged size
// and modification time before a ready file is released.
const DefaultSettlePolls = 1

var (
	// ErrNotFound reports that the candidate vanished. Callers abandon the
	// file instead of retrying.
	ErrNotFound = errors.New("file not found")
	// ErrTimeout reports that a bounded wait expired before the file settled.
	ErrTimeout = errors.New("file readiness timed out")
)

// Observation is the result of a single readiness probe.
type Observation struct {
	Ready   bool
	Size    int64
	ModTime time.Time
}

// Probe inspects path once. It returns an error wrapping ErrNotFound when the
// path does not exist.
type Probe func(path string) (Observation, error)

// Option configures a Gate.
type Option func(*Gate)

// WithPollInterval overrides the delay between probes.
func WithPollInterval(interval time.Duration) Option {
	return func(g *Gate) {
		if interval > 0 {
			g.interval = interval
		}
	}
}

// WithTimeout bounds WaitUntilReady. Zero leaves the wait unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gate) {
		if timeout >= 0 {
			g.timeout = timeout
		}
	}
}

// WithSettlePolls requires the size and modification time of a ready file to
// stay unchanged for n further probes before WaitUntilReady returns.
func WithSettlePolls(n int) Option {
	return func(g *Gate) {
		if n >= 0 {
			g.settle = n
		}
	}
}

// WithProbe replaces the filesystem probe (primarily for tests).
func WithProbe(probe Probe) Option {
	return func(g *Gate) {
		if probe != nil {
			g.probe = probe
		}
	}
}

// WithLogger attaches a logger for wait diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Gate decides when a newly arrived file may be read.
type Gate struct {
	interval time.Duration
	timeout  time.Duration
	settle   int
	probe    Probe
	logger   *slog.Logger
}

// New constructs a Gate using the exclusive-lock probe.
func New(opts ...Option) *Gate {
	g := &Gate{
		interval: DefaultPollInterval,
		settle:   DefaultSettlePolls,
		probe:    Inspect,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsReady reports whether path can be read safely right now.
func (g *Gate) IsReady(path string) (bool, error) {
	obs, err := g.probe(path)
	if err != nil {
		return false, err
	}
	return obs.Ready, nil
}

// WaitUntilReady polls until path is ready, the context ends, or the
// configured timeout expires. ErrNotFound aborts the wait immediately.
func (g *Gate) WaitUntilReady(ctx context.Context, path string) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	var (
		last    Observation
		stable  int
		polls   int
		started = time.Now()
	)
	for {
		obs, err := g.probe(path)
		if err != nil {
			return err
		}
		polls++
		if obs.Ready {
			if polls > 1 && last.Ready && sameShape(last, obs) {
				stable++
			} else {
				stable = 0
			}
			if stable >= g.settle {
				if polls > 1 {
					g.logger.Debug("file ready",
						logging.String(logging.FieldFile, filepath.Base(path)),
						logging.Int("polls", polls),
						logging.Duration("waited", time.Since(started)),
					)
				}
				return nil
			}
		} else {
			stable = 0
			if polls == 1 {
				g.logger.Debug("waiting for file to finish arriving",
					logging.String(logging.FieldFile, filepath.Base(path)),
				)
			}
		}
		last = obs

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %s", ErrTimeout, filepath.Base(path), time.Since(started).Round(time.Millisecond))
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sameShape(a, b Observation) bool {
	return a.Size == b.Size && a.ModTime.Equal(b.ModTime)
}

// Inspect is the default probe. A file is ready when it exists, no process
// holds it open for writing, a non-blocking exclusive lock can be taken on
// it, and it holds at least one byte. An open writer or a held lock is a
// negative result, not an error.
func Inspect(path string) (Observation, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Observation{}, fmt.Errorf("stat %s: %w", path, err)
	}

	writing, err := openForWrite(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Observation{}, nil
	}
	if writing {
		return Observation{}, nil
	}

	lock := flock.New(path, flock.SetFlag(os.O_RDONLY))
	locked, err := lock.TryLock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Observation{}, nil
	}
	if !locked {
		return Observation{}, nil
	}
	defer func() { _ = lock.Unlock() }()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Observation{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Observation{}, nil
	}
	if !info.Mode().IsRegular() {
		return Observation{}, nil
	}
	return Observation{
		Ready:   info.Size() > 0,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
