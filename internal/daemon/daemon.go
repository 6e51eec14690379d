package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"pdfwhacker/internal/compress"
	"pdfwhacker/internal/config"
	"pdfwhacker/internal/dispatch"
	"pdfwhacker/internal/fileutil"
	"pdfwhacker/internal/logging"
	"pdfwhacker/internal/merge"
	"pdfwhacker/internal/notifications"
	"pdfwhacker/internal/staging"
	"pdfwhacker/internal/watcher"
)

// LockFileName is the single-instance lock created in the working folder.
const LockFileName = ".pdfwhacker.lock"

// ErrAlreadyRunning reports that another watcher holds the working folder.
var ErrAlreadyRunning = errors.New("another pdfwhacker watcher is already running for this working folder")

// Compressor runs the single-file pipeline for one input.
type Compressor interface {
	Process(ctx context.Context, inputPath string) compress.Result
}

// Merger runs the multi-file pipeline.
type Merger interface {
	Available() ([]string, error)
	Announce(ctx context.Context, path string) (int, error)
	Merge(ctx context.Context) merge.Result
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger attaches the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithConsole sets where operator prompts are printed.
func WithConsole(w io.Writer) Option {
	return func(d *Daemon) {
		if w != nil {
			d.console = w
		}
	}
}

// WithInput enables the interactive prompt, reading one command per line
// from r. Without it the loop runs until its context ends.
func WithInput(r io.Reader) Option {
	return func(d *Daemon) {
		d.input = r
	}
}

// WithNotifier attaches the push notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// Daemon is the directory watch loop. It drains the compression input at
// startup, then hands every arriving PDF to the matching pipeline until the
// operator quits or the context ends.
type Daemon struct {
	cfg        *config.Config
	layout     config.Layout
	compressor Compressor
	merger     Merger
	logger     *slog.Logger
	console    io.Writer
	input      io.Reader
	notifier   notifications.Service

	lockPath string
	lock     *flock.Flock

	running    atomic.Bool
	mergeMu    sync.Mutex
	announcers sync.WaitGroup
}

// New constructs a daemon for the configured working folder.
func New(cfg *config.Config, compressor Compressor, merger Merger, opts ...Option) (*Daemon, error) {
	if cfg == nil || compressor == nil || merger == nil {
		return nil, errors.New("daemon requires config, compressor, and merger")
	}
	lockPath := filepath.Join(cfg.Paths.WorkingDir, LockFileName)
	d := &Daemon{
		cfg:        cfg,
		layout:     cfg.Layout(),
		compressor: compressor,
		merger:     merger,
		logger:     logging.NewNop(),
		console:    io.Discard,
		notifier:   notifications.Noop(),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "watch")
	return d, nil
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Running reports whether Run is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Run creates the role folders, takes the working folder lock, and watches
// until ctx ends or the operator enters q. Quitting cancels jobs still in
// progress; their inputs stay in place for the next startup drain.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release watch lock", logging.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	staging.Sweep(ctx, d.layout.Dirs(), staging.DefaultMaxAge, d.logger)

	// Subscribe before draining so nothing that lands during the drain is
	// missed. The dispatcher drops the duplicates.
	w, err := watcher.New(
		[]string{d.layout.CompressionInput, d.layout.MergeInput},
		watcher.WithLogger(d.logger),
	)
	if err != nil {
		return err
	}

	pool := dispatch.New(
		func(jobCtx context.Context, path string) { d.compressor.Process(jobCtx, path) },
		dispatch.WithWorkers(d.cfg.Compression.Workers),
		dispatch.WithLogger(d.logger),
	)
	if err := pool.Start(ctx); err != nil {
		_ = w.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })

	d.logger.Info("watch started",
		logging.String("working_dir", d.cfg.Paths.WorkingDir),
		logging.Int("workers", pool.Workers()),
		logging.String("lock", d.lockPath),
	)

	if _, err := d.Drain(gctx, pool); err != nil {
		d.logger.Warn("startup drain incomplete", logging.Error(err))
	}
	if d.cfg.Merge.OnStartup {
		d.merge(gctx)
	}

	if err := d.notifier.NotifyWatchStarted(context.WithoutCancel(ctx), d.cfg.Paths.WorkingDir); err != nil {
		d.logger.Debug("watch start notification failed", logging.Error(err))
	}

	var lines <-chan string
	if d.input != nil {
		lines = readLines(gctx, d.input)
		d.prompt()
	}

	g.Go(func() error {
		err := d.loop(gctx, w.Events(), lines, pool)
		cancel()
		return err
	})

	runErr := g.Wait()
	if err := pool.Close(); err != nil && runErr == nil {
		runErr = err
	}
	d.announcers.Wait()
	d.logger.Info("watch stopped")
	return runErr
}

// Drain submits every PDF already waiting in the compression input folder
// and returns how many were accepted. An empty folder is a no-op.
func (d *Daemon) Drain(ctx context.Context, pool *dispatch.Dispatcher) (int, error) {
	files, err := fileutil.ListPDFs(d.layout.CompressionInput)
	if err != nil {
		return 0, fmt.Errorf("list compression input: %w", err)
	}
	accepted := 0
	for _, path := range files {
		ok, err := pool.Submit(ctx, path)
		if err != nil {
			return accepted, err
		}
		if ok {
			accepted++
		}
	}
	if len(files) > 0 {
		d.logger.Info("startup drain queued existing files",
			logging.Int("found", len(files)),
			logging.Int("queued", accepted),
		)
	}
	return accepted, nil
}

func (d *Daemon) loop(ctx context.Context, events <-chan watcher.Event, lines <-chan string, pool *dispatch.Dispatcher) error {
	compressDir := filepath.Clean(d.layout.CompressionInput)
	mergeDir := filepath.Clean(d.layout.MergeInput)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Dir {
			case compressDir:
				if _, err := pool.Submit(ctx, ev.Path); err != nil && !errors.Is(err, context.Canceled) {
					d.logger.Warn("could not queue file",
						logging.String(logging.FieldFile, filepath.Base(ev.Path)),
						logging.Error(err),
					)
				}
			case mergeDir:
				d.announce(ctx, ev.Path)
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			switch strings.TrimSpace(line) {
			case "m":
				d.merge(ctx)
				d.prompt()
			case "q", "Q":
				d.logger.Info("quit requested")
				return nil
			default:
				d.prompt()
			}
		}
	}
}

func (d *Daemon) announce(ctx context.Context, path string) {
	d.announcers.Go(func() {
		if _, err := d.merger.Announce(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("merge arrival not announced",
				logging.String(logging.FieldFile, filepath.Base(path)),
				logging.Error(err),
			)
		}
	})
}

func (d *Daemon) merge(ctx context.Context) merge.Result {
	d.mergeMu.Lock()
	defer d.mergeMu.Unlock()
	return d.merger.Merge(ctx)
}

func (d *Daemon) prompt() {
	available := 0
	if files, err := d.merger.Available(); err == nil {
		available = len(files)
	}
	root, err := filepath.Abs(d.cfg.Paths.WorkingDir)
	if err != nil {
		root = d.cfg.Paths.WorkingDir
	}
	fmt.Fprintln(d.console)
	fmt.Fprintf(d.console, "Watching for new PDF files in input folders under %s\n", root)
	fmt.Fprintf(d.console, "Press (m) to merge any available files. %d available.\n", available)
	fmt.Fprintln(d.console, "Press (q) to quit.")
}

// readLines forwards r line by line until EOF or ctx ends. A blocked
// terminal read is abandoned when the process exits.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
