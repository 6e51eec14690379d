package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pdfwhacker/internal/compress"
	"pdfwhacker/internal/config"
	"pdfwhacker/internal/history"
	"pdfwhacker/internal/logging"
	"pdfwhacker/internal/merge"
	"pdfwhacker/internal/notifications"
	"pdfwhacker/internal/readiness"
	"pdfwhacker/internal/services/ghostscript"
)

// pipelines bundles everything a command needs to run compress or merge.
type pipelines struct {
	client     *ghostscript.Client
	compressor *compress.Orchestrator
	merger     *merge.Orchestrator
	notifier   notifications.Service
	history    *history.Store
}

func (p *pipelines) Close() error {
	if p == nil {
		return nil
	}
	return p.history.Close()
}

func buildPipelines(cfg *config.Config, logger *slog.Logger, console io.Writer) (*pipelines, error) {
	client, err := ghostscript.New(cfg.GhostscriptBinary(),
		ghostscript.WithProfile(cfg.Ghostscript.CompatibilityLevel, cfg.Ghostscript.PDFSettings),
		ghostscript.WithClassifier(ghostscript.MarkerClassifier(cfg.Ghostscript.PasswordMarkers)),
		ghostscript.WithTimeout(cfg.ToolTimeout()),
	)
	if err != nil {
		return nil, err
	}

	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		// The ledger is diagnostic; the pipelines run without it.
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "runs will not be recorded"),
		)
		store = nil
	}

	gate := readiness.New(
		readiness.WithPollInterval(cfg.PollInterval()),
		readiness.WithTimeout(cfg.ReadyTimeout()),
		readiness.WithSettlePolls(cfg.Readiness.SettlePolls),
		readiness.WithLogger(logger),
	)
	notifier := notifications.NewService(cfg)
	layout := cfg.Layout()

	return &pipelines{
		client: client,
		compressor: compress.New(layout, client,
			compress.WithGate(gate),
			compress.WithThreshold(cfg.Compression.ThresholdPercent),
			compress.WithLogger(logger),
			compress.WithConsole(console),
			compress.WithNotifier(notifier),
			compress.WithHistory(store),
		),
		merger: merge.New(layout, client,
			merge.WithGate(gate),
			merge.WithOutputName(cfg.Merge.OutputName),
			merge.WithMinFiles(cfg.Merge.MinFiles),
			merge.WithLogger(logger),
			merge.WithConsole(console),
			merge.WithNotifier(notifier),
			merge.WithHistory(store),
		),
		notifier: notifier,
		history:  store,
	}, nil
}

// runLogsKept is how many recent runs survive retention regardless of age.
const runLogsKept = 5

// newRunLogger writes structured logs to a per-run file in the log
// directory, and to stderr when verbose is set. Old run logs are pruned.
func newRunLogger(cfg *config.Config, prefix string, verbose bool) (*slog.Logger, string, error) {
	runLogs := logging.RunLogs{Dir: cfg.Paths.LogDir, Prefix: prefix}
	logPath := runLogs.Path(logging.NewRunID(time.Now()))

	outputs := []string{logPath}
	if verbose {
		outputs = append(outputs, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: outputs,
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	if err := runLogs.Link(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s: %v\n", filepath.Base(runLogs.Pointer()), err)
	}
	runLogs.Prune(logger, cfg.Logging.RetentionDays, runLogsKept, logPath)
	return logger, logPath, nil
}
