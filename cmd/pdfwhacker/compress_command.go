package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdfwhacker/internal/compress"
)

func newCompressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compress <file.pdf>...",
		Short: "Compress files once through the compression pipeline",
		Long: "Each file is archived to CompressionOriginal, compressed into CompressionOutput,\n" +
			"and removed from its source location, exactly as the watcher would.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireGhostscript(cfg); err != nil {
				return err
			}
			logger, _, err := newRunLogger(cfg, "pdfwhacker-compress", ctx.verboseEnabled())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p, err := buildPipelines(cfg, logger, out)
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx, cancel := runContext(cmd.Context())
			defer cancel()

			results := make([]compress.Result, 0, len(args))
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				results = append(results, p.compressor.Process(runCtx, path))
				if runCtx.Err() != nil {
					break
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderCompressSummary(results))

			problems := 0
			for _, result := range results {
				if result.Outcome.Problem() {
					problems++
				}
			}
			if problems > 0 {
				return fmt.Errorf("%d of %d file(s) did not compress cleanly", problems, len(results))
			}
			return runCtx.Err()
		},
	}
}

func renderCompressSummary(results []compress.Result) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		ratio := "-"
		if result.RatioPercent > 0 {
			ratio = fmt.Sprintf("%.2f%%", result.RatioPercent)
		}
		rows = append(rows, []string{
			result.File,
			string(result.Outcome),
			formatBytes(result.OriginalBytes),
			formatBytes(result.ResultBytes),
			ratio,
		})
	}
	return renderTable(
		[]string{"File", "Outcome", "Original", "Result", "Ratio"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}
