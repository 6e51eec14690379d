package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/daemon"
	"pdfwhacker/internal/logging"
	"pdfwhacker/internal/preflight"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [working-folder ghostscript-path]",
		Short: "Watch the input folders and compress or merge arriving PDFs",
		Long: "Watch creates the six role folders under the working folder, compresses every PDF\n" +
			"already waiting in CompressionInput, then processes new arrivals until you enter q.\n" +
			"Enter m to merge the PDFs waiting in MergeInput.\n\n" +
			"Both positional arguments override the configuration file when given.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) != 0 && len(args) != 2 {
				printWatchUsage(out)
				return nil
			}

			var override func(*config.Config)
			if len(args) == 2 {
				override = func(cfg *config.Config) {
					cfg.Paths.WorkingDir = args[0]
					cfg.Ghostscript.Binary = args[1]
				}
			}
			cfg, err := ctx.ensureConfigWith(override)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := requireGhostscript(cfg); err != nil {
				return err
			}

			logger, logPath, err := newRunLogger(cfg, "pdfwhacker", ctx.verboseEnabled())
			if err != nil {
				return err
			}

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				for _, result := range failed {
					logger.Error("preflight check failed",
						logging.String("check", result.Name),
						logging.String("detail", result.Detail),
					)
				}
				return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
			}

			p, err := buildPipelines(cfg, logger, out)
			if err != nil {
				return err
			}
			defer p.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if version, err := p.client.Version(signalCtx); err == nil {
				logger.Info("ghostscript detected",
					logging.String("binary", p.client.Binary()),
					logging.String("version", version),
				)
			} else {
				logger.Warn("ghostscript version probe failed", logging.Error(err))
			}

			opts := []daemon.Option{
				daemon.WithLogger(logger),
				daemon.WithConsole(out),
				daemon.WithNotifier(p.notifier),
			}
			if input := interactiveInput(cmd.InOrStdin()); input != nil {
				opts = append(opts, daemon.WithInput(input))
			} else {
				fmt.Fprintln(out, "Standard input is not a terminal; stop the watcher with Ctrl+C.")
			}

			d, err := daemon.New(cfg, p.compressor, p.merger, opts...)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			logger.Info("logging to file", logging.String("path", logPath))

			if err := d.Run(signalCtx); err != nil && signalCtx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func printWatchUsage(out io.Writer) {
	fmt.Fprintln(out, "Incorrect arguments. Required:")
	fmt.Fprintln(out, "Usage: pdfwhacker watch <working folder path> <ghostscript executable path>")
}

// interactiveInput returns r when it can carry operator commands: any
// non-file reader, or a file attached to a terminal.
func interactiveInput(r io.Reader) io.Reader {
	file, ok := r.(*os.File)
	if !ok {
		return r
	}
	fd := file.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return file
	}
	return nil
}

func requireGhostscript(cfg *config.Config) error {
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if !status.Available {
			return fmt.Errorf("%s unavailable: %s", status.Name, strings.TrimSpace(status.Detail))
		}
	}
	return nil
}

// runContext cancels on SIGINT/SIGTERM for the one-shot commands.
func runContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
