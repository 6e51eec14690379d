package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/fileutil"
	"pdfwhacker/internal/history"
	"pdfwhacker/internal/logging"
	"pdfwhacker/internal/notifications"
	"pdfwhacker/internal/pdfinfo"
	"pdfwhacker/internal/readiness"
	"pdfwhacker/internal/services"
	"pdfwhacker/internal/services/ghostscript"
)

// Pipeline is the name recorded in logs and history for this orchestrator.
const Pipeline = "compress"

// DefaultThresholdPercent is the result/original ratio above which the tool
// output is discarded. Exactly at the threshold the tool output is kept.
const DefaultThresholdPercent = 95.0

const separator = "-------------------------"

// Compressor runs the external tool for one file.
type Compressor interface {
	Compress(ctx context.Context, input, output string) (ghostscript.Result, error)
}

// Result describes the end state of one Process call.
type Result struct {
	JobID         string
	File          string
	Outcome       services.Outcome
	OriginalBytes int64
	ResultBytes   int64
	RatioPercent  float64
	OutputPath    string
	ArchivePath   string
	Duration      time.Duration
	Err           error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGate replaces the readiness gate.
func WithGate(gate *readiness.Gate) Option {
	return func(o *Orchestrator) {
		if gate != nil {
			o.gate = gate
		}
	}
}

// WithThreshold overrides the effectiveness threshold in percent.
func WithThreshold(percent float64) Option {
	return func(o *Orchestrator) {
		if percent > 0 {
			o.threshold = percent
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

// WithInspector replaces the diagnostic PDF probe.
func WithInspector(inspect func(string) (pdfinfo.Info, error)) Option {
	return func(o *Orchestrator) {
		o.inspect = inspect
	}
}

// Orchestrator compresses single files from the input folder into the output
// folder, keeping an archive copy of every original.
type Orchestrator struct {
	outputDir  string
	archiveDir string
	tool       Compressor
	gate       *readiness.Gate
	threshold  float64
	logger     *slog.Logger
	console    io.Writer
	notifier   notifications.Service
	history    *history.Store
	inspect    func(string) (pdfinfo.Info, error)
}

// New constructs an Orchestrator writing to layout's compression folders.
func New(layout config.Layout, tool Compressor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		outputDir:  layout.CompressionOutput,
		archiveDir: layout.CompressionOriginal,
		tool:       tool,
		gate:       readiness.New(),
		threshold:  DefaultThresholdPercent,
		logger:     logging.NewNop(),
		console:    io.Discard,
		notifier:   notifications.Noop(),
		inspect:    pdfinfo.Inspect,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, Pipeline)
	return o
}

// Process runs the full compression lifecycle for inputPath. It never
// returns an error or panics; the outcome is reported in Result and logged.
func (o *Orchestrator) Process(ctx context.Context, inputPath string) (result Result) {
	ctx, jobID := services.EnsureJobID(ctx)
	name := filepath.Base(inputPath)
	ctx = services.WithFile(services.WithPipeline(ctx, Pipeline), name)
	logger := logging.WithContext(ctx, o.logger)
	started := time.Now()

	result = Result{
		JobID:      jobID,
		File:       name,
		OutputPath: filepath.Join(o.outputDir, name),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = services.OutcomeFailed
			result.Err = fmt.Errorf("panic: %v", r)
			logging.ErrorWithContext(logger, "compression panicked", "compress_panic",
				logging.Panic(r),
				logging.String("stack", string(debug.Stack())),
			)
		}
		result.Duration = time.Since(started)
		o.finish(ctx, logger, &result)
	}()

	if !fileutil.Exists(inputPath) {
		fmt.Fprintf(o.console, "Input file not found: %s\n", inputPath)
		logger.Info("input already handled", logging.String("path", inputPath))
		result.Outcome = services.OutcomeNotFound
		return result
	}

	fmt.Fprintln(o.console)
	fmt.Fprintln(o.console, separator)
	fmt.Fprintf(o.console, "Compressing file: %s\n", name)

	if err := o.gate.WaitUntilReady(ctx, inputPath); err != nil {
		if errors.Is(err, readiness.ErrNotFound) {
			logger.Info("input vanished while waiting for readiness")
			result.Outcome = services.OutcomeNotFound
			return result
		}
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("wait for readiness: %w", err)
		return result
	}

	originalSize, err := fileutil.Size(inputPath)
	if err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("stat input: %w", err)
		return result
	}
	result.OriginalBytes = originalSize

	result.ArchivePath = filepath.Join(o.archiveDir, name)
	if err := fileutil.CopyFileVerified(inputPath, result.ArchivePath); err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = services.Wrap(services.ErrExternalTool, Pipeline, "archive", "copy original to archive", err)
		return result
	}

	o.logVersion(ctx, logger, inputPath)

	run, err := o.tool.Compress(ctx, inputPath, result.OutputPath)
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
	if run.TimedOut {
		logger.Warn("ghostscript timed out", logging.Duration("elapsed", run.Duration))
	}

	switch run.Verdict {
	case ghostscript.PasswordProtected:
		fmt.Fprintln(o.console, "Unable to compress because PDF is password protected; copying original file to output.")
		result.Outcome = services.OutcomePasswordProtected
		result.Err = services.ToolError(Pipeline, true, false, nil)
		o.fallback(inputPath, &result)
		return result
	case ghostscript.ToolFailure:
		fmt.Fprintln(o.console, "Unable to compress due to unexpected error; copying original file to output.")
		result.Outcome = services.OutcomeToolFailure
		result.Err = services.ToolError(Pipeline, false, run.TimedOut, run.RunErr)
		o.fallback(inputPath, &result)
		return result
	}

	compressedSize, err := fileutil.Size(result.OutputPath)
	if err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("stat output: %w", err)
		return result
	}
	result.ResultBytes = compressedSize
	result.RatioPercent = float64(compressedSize) / float64(originalSize) * 100

	if result.RatioPercent > o.threshold {
		fmt.Fprintln(o.console, "Effective compression not possible, copying original file to output.")
		if err := fileutil.ReplaceFile(result.ArchivePath, result.OutputPath); err != nil {
			result.Outcome = services.OutcomeFailed
			result.Err = fmt.Errorf("restore original: %w", err)
			return result
		}
		result.Outcome = services.OutcomeIneffective
		result.ResultBytes = originalSize
	} else {
		fmt.Fprintf(o.console, "%d bytes - Original Size\n", originalSize)
		fmt.Fprintf(o.console, "%d bytes - Compressed Size\n", compressedSize)
		fmt.Fprintf(o.console, "%.2f %% of original size.\n", result.RatioPercent)
		result.Outcome = services.OutcomeSuccess
	}

	if err := fileutil.RemoveIfExists(inputPath); err != nil {
		result.Outcome = services.OutcomeFailed
		result.Err = fmt.Errorf("remove input: %w", err)
	}
	return result
}

// fallback delivers the archived original as the output and consumes the
// input. Outcome is left untouched unless the copy itself fails.
func (o *Orchestrator) fallback(inputPath string, result *Result) {
	if err := fileutil.ReplaceFile(result.ArchivePath, result.OutputPath); err != nil {
		result.Err = fmt.Errorf("restore original after %s: %w", result.Outcome, err)
		result.Outcome = services.OutcomeFailed
		return
	}
	result.ResultBytes = result.OriginalBytes
	if err := fileutil.RemoveIfExists(inputPath); err != nil {
		result.Err = fmt.Errorf("remove input: %w", err)
		result.Outcome = services.OutcomeFailed
	}
}

// logVersion parses the whole document, so it only runs when debug output
// will actually be written.
func (o *Orchestrator) logVersion(ctx context.Context, logger *slog.Logger, path string) {
	if o.inspect == nil || !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	info, err := o.inspect(path)
	if err != nil {
		logger.Debug("pdf inspection failed", logging.Error(err))
		return
	}
	logger.Debug("pdf inspected",
		logging.String("pdf_version", info.Version),
		logging.Int("pages", info.Pages),
		logging.Bool("encrypted", info.Encrypted),
	)
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, result *Result) {
	attrs := []logging.Attr{
		logging.Outcome(string(result.Outcome)),
		logging.Duration("duration", result.Duration),
	}
	if result.OriginalBytes > 0 {
		attrs = append(attrs,
			logging.Bytes("original_bytes", result.OriginalBytes),
			logging.Bytes("result_bytes", result.ResultBytes),
		)
	}
	if result.RatioPercent > 0 {
		attrs = append(attrs, logging.Ratio(result.RatioPercent))
	}

	switch {
	case result.Outcome == services.OutcomeFailed:
		fmt.Fprintf(o.console, "Error processing file %s\n", result.File)
		if result.Err != nil {
			fmt.Fprintf(o.console, "%v\n", result.Err)
			attrs = append(attrs, logging.Error(result.Err))
		}
		logging.ErrorWithContext(logger, "compression failed", "compress_failed", attrs...)
		if !errors.Is(result.Err, context.Canceled) {
			o.notify(ctx, logger, func(ctx context.Context) error {
				return o.notifier.NotifyError(ctx, result.Err, "compress "+result.File)
			})
		}
	case result.Outcome.Fallback():
		if result.Err != nil {
			attrs = append(attrs, logging.Error(result.Err))
		}
		logging.WarnWithContext(logger, "original delivered to output", "compress_fallback",
			append(attrs, logging.String(logging.FieldImpact, "output is an unmodified copy of the input"))...)
		detail := ""
		if result.Outcome == services.OutcomeIneffective {
			detail = fmt.Sprintf("%.2f %% of original size.", result.RatioPercent)
		}
		o.notify(ctx, logger, func(ctx context.Context) error {
			return o.notifier.NotifyFallback(ctx, result.File, result.Outcome, detail)
		})
	default:
		logger.Info("compression finished", logging.Args(attrs...)...)
	}

	if result.Outcome == services.OutcomeNotFound {
		return
	}
	run := history.Run{
		JobID:         result.JobID,
		Pipeline:      Pipeline,
		Outcome:       result.Outcome,
		Inputs:        []string{result.File},
		OriginalBytes: result.OriginalBytes,
		ResultBytes:   result.ResultBytes,
		RatioPercent:  result.RatioPercent,
		Duration:      result.Duration,
	}
	if result.Outcome != services.OutcomeFailed {
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
