package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/fileutil"
	"pdfwhacker/internal/history"
	"pdfwhacker/internal/logging"
	"pdfwhacker/internal/notifications"
	"pdfwhacker/internal/readiness"
	"pdfwhacker/internal/services"
	"pdfwhacker/internal/services/ghostscript"
)

// Pipeline is the name recorded in logs and history for this orchestrator.
const Pipeline = "merge"

const (
	// DefaultOutputName is the file written to the merge output folder.
	DefaultOutputName = "merged.pdf"
	// DefaultMinFiles is the smallest batch worth merging.
	DefaultMinFiles = 2
)

const separator = "-------------------------"

// Merger runs the external tool for one batch.
type Merger interface {
	Merge(ctx context.Context, inputs []string, output string) (ghostscript.Result, error)
}

// Result describes the end state of one Merge call.
type Result struct {
	JobID       string
	Outcome     services.Outcome
	Inputs      []string
	OutputPath  string
	OutputBytes int64
	Duration    time.Duration
	Err         error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGate replaces the readiness gate used before archiving each input.
func WithGate(gate *readiness.Gate) Option {
	return func(o *Orchestrator) {
		if gate != nil {
			o.gate = gate
		}
	}
}

// WithOutputName overrides the merged file name.
func WithOutputName(name string) Option {
	return func(o *Orchestrator) {
		if name = strings.TrimSpace(name); name != "" {
			o.outputName = name
		}
	}
}

// WithMinFiles overrides the smallest batch that triggers a merge.
func WithMinFiles(n int) Option {
	return func(o *Orchestrator) {
		if n >= 2 {
			o.minFiles = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConsole sets the writer that receives the human-readable report.
func WithConsole(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.console = w
		}
	}
}

// WithNotifier attaches a notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

// WithHistory records every run in the ledger.
func WithHistory(store *history.Store) Option {
	return func(o *Orchestrator) {
		o.history = store
	}
}

// Orchestrator concatenates every PDF in the merge input folder into a
// single output, all or nothing.
type Orchestrator struct {
	inputDir   string
	outputDir  string
	archiveDir string
	outputName string
	minFiles   int
	tool       Merger
	gate       *readiness.Gate
	logger     *slog.Logger
	console    io.Writer
	notifier   notifications.Service
	history    *history.Store
}

// New constructs an Orchestrator over layout's merge folders.
func New(layout config.Layout, tool Merger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inputDir:   layout.MergeInput,
		outputDir:  layout.MergeOutput,
		archiveDir: layout.MergeOriginal,
		outputName: DefaultOutputName,
		minFiles:   DefaultMinFiles,
		tool:       tool,
		gate:       readiness.New(),
		logger:     logging.NewNop(),
		console:    io.Discard,
		notifier:   notifications.Noop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, Pipeline)
	return o
}

// Available lists the PDFs currently waiting in the merge input folder,
// sorted by name.
func (o *Orchestrator) Available() ([]string, error) {
	return fileutil.ListPDFs(o.inputDir)
}

// Announce reports a newly arrived merge input once it is ready and returns
// how many files are now waiting. It never starts a merge.
func (o *Orchestrator) Announce(ctx context.Context, path string) (int, error) {
	name := filepath.Base(path)
	if err := o.gate.WaitUntilReady(ctx, path); err != nil {
		return 0, err
	}
	files, err := o.Available()
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(o.console, "%s --- available to merge. Total files to merge: %d\n", name, len(files))
	o.logger.Info("merge input available",
		logging.String(logging.FieldFile, name),
		logging.Int("waiting", len(files)),
	)
	return len(files), nil
}

// Merge runs one all-or-nothing merge over every PDF in the input folder. It
// never returns an error or panics; the outcome is reported in Result.
func (o *Orchestrator) Merge(ctx context.Context) (result Result) {
	ctx, jobID := services.EnsureJobID(ctx)
	ctx = services.WithPipeline(ctx, Pipeline)
	logger := logging.WithContext(ctx, o.logger)
	started := time.Now()

	result = Result{
		JobID:      jobID,
		OutputPath: filepath.Join(o.outputDir, o.outputName),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = services.OutcomeFailed
			result.Err = fmt.Errorf("panic: %v", r)
			logging.ErrorWithContext(logger, "merge panicked", "merge_panic",
				logging.Panic(r),
				logging.String("stack", string(debug.Stack())),
			)
		}
		result.Duration = time.Since(started)
		o.finish(ctx, logger, &result)
	}()

	if info, err := os.Stat(o.inputDir); err != nil || !info.IsDir() {
		fmt.Fprintf(o.console, "Merge input folder not found: %s\n", o.inputDir)
		result.Outcome = services.OutcomeNotFound
		return result
	}

	files, err := o.Available()
	if err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("list merge inputs: %w", err)
		return result
	}
	if len(files) < o.minFiles {
		fmt.Fprintf(o.console, "A minimum of %d files are needed before they can be merged. Found %d in %s\n", o.minFiles, len(files), o.inputDir)
		result.Outcome = services.OutcomeSkipped
		return result
	}
	result.Inputs = names(files)

	fmt.Fprintln(o.console)
	fmt.Fprintln(o.console, separator)
	fmt.Fprintln(o.console, "Merging files:")
	for _, name := range result.Inputs {
		fmt.Fprintf(o.console, "\t%s\n", name)
	}

	if err := o.archive(ctx, files); err != nil {
		if errors.Is(err, readiness.ErrNotFound) {
			result.Outcome = services.OutcomeNotFound
			result.Err = err
			return result
		}
		result.Outcome = services.OutcomeFailed
		result.Err = err
		return result
	}

	run, err := o.tool.Merge(ctx, files, result.OutputPath)
	if err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("invoke ghostscript: %w", err)
		return result
	}
	if run.Stderr != "" {
		fmt.Fprintf(o.console, "Error: %s\n", run.Stderr)
		logger.Warn("ghostscript reported errors",
			logging.String("stderr", run.Stderr),
			logging.String(logging.FieldEventType, "ghostscript_stderr"),
		)
	}

	switch run.Verdict {
	case ghostscript.PasswordProtected:
		fmt.Fprintln(o.console, "Unable to merge because one of the PDF files is password protected; leaving things as is.")
		result.Outcome = services.OutcomePasswordProtected
		result.Err = services.ToolError(Pipeline, true, false, nil)
		return result
	case ghostscript.ToolFailure:
		fmt.Fprintln(o.console, "Unable to merge due to unexpected error; leaving things as is.")
		result.Outcome = services.OutcomeToolFailure
		result.Err = services.ToolError(Pipeline, false, run.TimedOut, run.RunErr)
		return result
	}

	size, err := fileutil.Size(result.OutputPath)
	if err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("stat merged output: %w", err)
		return result
	}
	result.OutputBytes = size
	fmt.Fprintf(o.console, "Merged %d files into %s. Size: %d bytes.\n", len(files), o.outputName, size)

	for _, path := range files {
		if err := fileutil.RemoveIfExists(path); err != nil {
			result.Outcome = services.OutcomeFailed
			result.Err = fmt.Errorf("remove merged input %s: %w", filepath.Base(path), err)
			return result
		}
	}
	result.Outcome = services.OutcomeSuccess
	return result
}

// archive waits for each input to be ready and copies it to the archive
// folder. Copies run concurrently; the first failure cancels the rest.
func (o *Orchestrator) archive(ctx context.Context, files []string) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, path := range files {
		group.Go(func() error {
			if err := o.gate.WaitUntilReady(gctx, path); err != nil {
				return fmt.Errorf("wait for %s: %w", filepath.Base(path), err)
			}
			dst := filepath.Join(o.archiveDir, filepath.Base(path))
			if err := fileutil.CopyFileVerified(path, dst); err != nil {
				return services.Wrap(services.ErrExternalTool, Pipeline, "archive", "copy "+filepath.Base(path), err)
			}
			return nil
		})
	}
	return group.Wait()
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, result *Result) {
	attrs := []logging.Attr{
		logging.Outcome(string(result.Outcome)),
		logging.Files(result.Inputs),
		logging.Duration("duration", result.Duration),
	}
	if result.OutputBytes > 0 {
		attrs = append(attrs, logging.Bytes("output_bytes", result.OutputBytes))
	}

	switch result.Outcome {
	case services.OutcomeSuccess:
		logger.Info("merge finished", logging.Args(attrs...)...)
		o.notify(ctx, logger, func(ctx context.Context) error {
			return o.notifier.NotifyMergeCompleted(ctx, len(result.Inputs), o.outputName, result.OutputBytes)
		})
	case services.OutcomeSkipped, services.OutcomeNotFound:
		logger.Info("merge skipped", logging.Args(attrs...)...)
		return
	case services.OutcomePasswordProtected, services.OutcomeToolFailure:
		if result.Err != nil {
			attrs = append(attrs, logging.Error(result.Err))
		}
		logging.WarnWithContext(logger, "merge produced no output; inputs left in place", "merge_failed",
			append(attrs, logging.String(logging.FieldImpact, "inputs remain in the merge input folder"))...)
		o.notify(ctx, logger, func(ctx context.Context) error {
			return o.notifier.NotifyMergeFailed(ctx, len(result.Inputs), result.Outcome)
		})
	default:
		fmt.Fprintf(o.console, "Error processing files for merge in %s\n", filepath.Base(o.inputDir))
		if result.Err != nil {
			fmt.Fprintf(o.console, "%v\n", result.Err)
			attrs = append(attrs, logging.Error(result.Err))
		}
		logging.ErrorWithContext(logger, "merge failed", "merge_failed", attrs...)
		if !errors.Is(result.Err, context.Canceled) {
			o.notify(ctx, logger, func(ctx context.Context) error {
				return o.notifier.NotifyError(ctx, result.Err, "merge")
			})
		}
	}

	run := history.Run{
		JobID:       result.JobID,
		Pipeline:    Pipeline,
		Outcome:     result.Outcome,
		Inputs:      result.Inputs,
		ResultBytes: result.OutputBytes,
		Duration:    result.Duration,
	}
	if result.Outcome == services.OutcomeSuccess {
		run.OutputPath = result.OutputPath
	}
	if result.Err != nil {
		run.Message = result.Err.Error()
	}
	if _, err := o.history.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("history record failed", logging.Error(err))
	}
}

func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, send func(context.Context) error) {
	if err := send(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}
}

func names(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
