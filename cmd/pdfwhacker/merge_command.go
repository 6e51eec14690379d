package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge the PDFs waiting in the merge input folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireGhostscript(cfg); err != nil {
				return err
			}
			logger, _, err := newRunLogger(cfg, "pdfwhacker-merge", ctx.verboseEnabled())
			if err != nil {
				return err
			}
			p, err := buildPipelines(cfg, logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx, cancel := runContext(cmd.Context())
			defer cancel()

			result := p.merger.Merge(runCtx)
			if result.Outcome.Problem() {
				return fmt.Errorf("merge %s: %d input(s) left in place", result.Outcome, len(result.Inputs))
			}
			return nil
		},
	}
}
