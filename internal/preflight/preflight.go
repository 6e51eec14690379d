package preflight

import (
	"context"

	"pdfwhacker/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	layout := cfg.Layout()
	roles := []struct {
		name string
		path string
	}{
		{"Compression input", layout.CompressionInput},
		{"Compression original", layout.CompressionOriginal},
		{"Compression output", layout.CompressionOutput},
		{"Merge input", layout.MergeInput},
		{"Merge original", layout.MergeOriginal},
		{"Merge output", layout.MergeOutput},
	}

	results := make([]Result, 0, len(roles)+2)
	for _, role := range roles {
		results = append(results, CheckDirectoryAccess(role.name, role.path))
	}
	results = append(results, CheckFreeSpace("Working folder space", cfg.Paths.WorkingDir, MinFreeBytes))

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
