package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/history"
	"pdfwhacker/internal/preflight"
	"pdfwhacker/internal/services/ghostscript"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check Ghostscript, the working folders, and optional services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			healthy := renderDoctor(cmd.Context(), out, cfg, shouldColorize(out))
			if !healthy {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
}

// renderDoctor prints every check and reports whether all required ones
// passed. Notification and history problems only warn.
func renderDoctor(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) bool {
	healthy := true
	lines := renderSectionHeader("Dependencies", colorize)
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if !status.Available {
			healthy = false
			lines = append(lines, renderStatusLine(status.Name, statusError, status.Detail, colorize))
			continue
		}
		lines = append(lines, renderStatusLine(status.Name, statusOK, ghostscriptVersion(ctx, status.Path), colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Folders", colorize)...)
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Name == "ntfy" {
			continue
		}
		kind := statusOK
		if !result.Passed {
			kind = statusError
			healthy = false
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Services", colorize)...)
	lines = append(lines, notificationStatusLine(ctx, cfg, colorize))
	lines = append(lines, historyStatusLine(cfg, colorize))

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return healthy
}

func ghostscriptVersion(ctx context.Context, binary string) string {
	client, err := ghostscript.New(binary)
	if err != nil {
		return binary
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	version, err := client.Version(probeCtx)
	if err != nil || version == "" {
		return binary
	}
	return fmt.Sprintf("%s (version %s)", binary, version)
}

func notificationStatusLine(ctx context.Context, cfg *config.Config, colorize bool) string {
	if cfg.Notifications.NtfyTopic == "" {
		return renderStatusLine("ntfy", statusInfo, "Not configured", colorize)
	}
	result := preflight.CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
	if result.Passed {
		return renderStatusLine("ntfy", statusOK, result.Detail, colorize)
	}
	return renderStatusLine("ntfy", statusWarn, result.Detail, colorize)
}

func historyStatusLine(cfg *config.Config, colorize bool) string {
	if !cfg.History.Enabled {
		return renderStatusLine("History", statusInfo, "Disabled", colorize)
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return renderStatusLine("History", statusWarn, err.Error(), colorize)
	}
	defer store.Close()
	return renderStatusLine("History", statusOK, store.Path(), colorize)
}
