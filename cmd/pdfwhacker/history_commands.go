package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pdfwhacker/internal/history"
	"pdfwhacker/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the job history ledger",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("history is disabled (set history.enabled = true)")
	}
	return store, nil
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		pipeline string
		outcome  string
		since    time.Duration
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			filter := history.Filter{
				Pipeline: strings.TrimSpace(pipeline),
				Outcome:  services.Outcome(strings.TrimSpace(outcome)),
				Limit:    limit,
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			runs, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeRunsJSON(cmd.OutOrStdout(), runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Only show runs of this pipeline (compress or merge)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only show runs with this outcome")
	cmd.Flags().DurationVar(&since, "since", 0, "Only show runs newer than this age (e.g. 24h)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		files := strings.Join(run.Inputs, ", ")
		if len(run.Inputs) > 3 {
			files = fmt.Sprintf("%s (+%d more)", strings.Join(run.Inputs[:3], ", "), len(run.Inputs)-3)
		}
		ratio := "-"
		if run.RatioPercent > 0 {
			ratio = fmt.Sprintf("%.2f%%", run.RatioPercent)
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Pipeline,
			string(run.Outcome),
			files,
			formatBytes(run.OriginalBytes),
			formatBytes(run.ResultBytes),
			ratio,
		})
	}
	return renderTable(
		[]string{"ID", "When", "Pipeline", "Outcome", "Files", "Original", "Result", "Ratio"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count recorded runs by outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			outcomes := make([]string, 0, len(stats))
			total := 0
			for outcome, count := range stats {
				outcomes = append(outcomes, string(outcome))
				total += count
			}
			sort.Strings(outcomes)
			rows := make([][]string, 0, len(outcomes)+1)
			for _, outcome := range outcomes {
				rows = append(rows, []string{outcome, strconv.Itoa(stats[services.Outcome(outcome)])})
			}
			rows = append(rows, []string{"total", strconv.Itoa(total)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Outcome", "Runs"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than the given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age beyond which runs are deleted")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}
}
