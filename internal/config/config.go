package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the working folder and log locations.
type Paths struct {
	WorkingDir string `toml:"working_dir"`
	LogDir     string `toml:"log_dir"`
}

// Folders names the role folders created beneath the working directory.
type Folders struct {
	CompressionInput    string `toml:"compression_input"`
	CompressionOriginal string `toml:"compression_original"`
	CompressionOutput   string `toml:"compression_output"`
	MergeInput          string `toml:"merge_input"`
	MergeOriginal       string `toml:"merge_original"`
	MergeOutput         string `toml:"merge_output"`
}

// Ghostscript contains settings for the external PDF processor.
type Ghostscript struct {
	Binary             string   `toml:"binary"`
	CompatibilityLevel string   `toml:"compatibility_level"`
	PDFSettings        string   `toml:"pdf_settings"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	PasswordMarkers    []string `toml:"password_markers"`
}

// Compression contains settings for the single-file pipeline.
type Compression struct {
	// ThresholdPercent is the result/original size ratio above which the
	// compressed output is discarded in favour of the original.
	ThresholdPercent float64 `toml:"threshold_percent"`
	// Workers bounds concurrent Ghostscript invocations. Zero means one per CPU.
	Workers int `toml:"workers"`
}

// Merge contains settings for the multi-file pipeline.
type Merge struct {
	OutputName string `toml:"output_name"`
	MinFiles   int    `toml:"min_files"`
	// OnStartup merges whatever is already waiting when the watch starts.
	OnStartup bool `toml:"on_startup"`
}

// Readiness contains settings for the file readiness gate.
type Readiness struct {
	PollIntervalMS int `toml:"poll_interval_ms"`
	TimeoutSeconds int `toml:"timeout_seconds"`
	SettlePolls    int `toml:"settle_polls"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History contains configuration for the job history ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for pdfwhacker.
//
// Configuration sections by subsystem:
//   - Paths: working folder and log directory
//   - Folders: names of the six role folders under the working folder
//   - Ghostscript: external tool binary and invocation profile
//   - Compression: effectiveness threshold and worker count
//   - Merge: output name and minimum batch size
//   - Readiness: readiness gate polling
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - History: job ledger location
type Config struct {
	Paths         Paths         `toml:"paths"`
	Folders       Folders       `toml:"folders"`
	Ghostscript   Ghostscript   `toml:"ghostscript"`
	Compression   Compression   `toml:"compression"`
	Merge         Merge         `toml:"merge"`
	Readiness     Readiness     `toml:"readiness"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
}

// Layout enumerates every directory role used by the pipelines. It is
// resolved once from Config and handed to the orchestrators.
type Layout struct {
	CompressionInput    string
	CompressionOriginal string
	CompressionOutput   string
	MergeInput          string
	MergeOriginal       string
	MergeOutput         string
}

// Dirs returns every role directory in creation order.
func (l Layout) Dirs() []string {
	return []string{
		l.CompressionInput,
		l.CompressionOriginal,
		l.CompressionOutput,
		l.MergeInput,
		l.MergeOriginal,
		l.MergeOutput,
	}
}

// Layout resolves the role folders against the working directory.
func (c *Config) Layout() Layout {
	root := c.Paths.WorkingDir
	return Layout{
		CompressionInput:    filepath.Join(root, c.Folders.CompressionInput),
		CompressionOriginal: filepath.Join(root, c.Folders.CompressionOriginal),
		CompressionOutput:   filepath.Join(root, c.Folders.CompressionOutput),
		MergeInput:          filepath.Join(root, c.Folders.MergeInput),
		MergeOriginal:       filepath.Join(root, c.Folders.MergeOriginal),
		MergeOutput:         filepath.Join(root, c.Folders.MergeOutput),
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pdfwhacker/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides behaves like Load but applies override before
// normalization, so command-line values receive the same expansion and
// validation as file values.
func LoadWithOverrides(path string, override func(*Config)) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if override != nil {
		override(&cfg)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/pdfwhacker/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pdfwhacker.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and every role folder.
func (c *Config) EnsureDirectories() error {
	dirs := append([]string{c.Paths.LogDir}, c.Layout().Dirs()...)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// GhostscriptBinary returns the configured external tool path.
func (c *Config) GhostscriptBinary() string {
	return c.Ghostscript.Binary
}

// PollInterval returns the readiness poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Readiness.PollIntervalMS) * time.Millisecond
}

// ReadyTimeout returns the readiness wait bound. Zero means unbounded.
func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Readiness.TimeoutSeconds) * time.Second
}

// ToolTimeout returns the per-invocation Ghostscript timeout. Zero means none.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Ghostscript.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
