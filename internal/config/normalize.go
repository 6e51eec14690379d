package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFolders()
	c.normalizeGhostscript()
	c.normalizeCompression()
	c.normalizeMerge()
	c.normalizeReadiness()
	c.normalizeNotifications()
	c.normalizeLogging()
	return c.normalizeHistory()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkingDir) == "" {
		c.Paths.WorkingDir = defaultWorkingDir
	}
	if c.Paths.WorkingDir, err = expandPath(strings.TrimSpace(c.Paths.WorkingDir)); err != nil {
		return fmt.Errorf("paths.working_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFolders() {
	c.Folders.CompressionInput = folderOrDefault(c.Folders.CompressionInput, defaultCompressionInputName)
	c.Folders.CompressionOriginal = folderOrDefault(c.Folders.CompressionOriginal, defaultCompressionOrigName)
	c.Folders.CompressionOutput = folderOrDefault(c.Folders.CompressionOutput, defaultCompressionOutputName)
	c.Folders.MergeInput = folderOrDefault(c.Folders.MergeInput, defaultMergeInputName)
	c.Folders.MergeOriginal = folderOrDefault(c.Folders.MergeOriginal, defaultMergeOrigName)
	c.Folders.MergeOutput = folderOrDefault(c.Folders.MergeOutput, defaultMergeOutputDirName)
}

func folderOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return filepath.Clean(value)
}

func (c *Config) normalizeGhostscript() {
	c.Ghostscript.Binary = strings.TrimSpace(c.Ghostscript.Binary)
	if value, ok := os.LookupEnv("PDFWHACKER_GHOSTSCRIPT"); ok && strings.TrimSpace(value) != "" {
		if c.Ghostscript.Binary == "" || c.Ghostscript.Binary == defaultGhostscriptBinary {
			c.Ghostscript.Binary = strings.TrimSpace(value)
		}
	}
	if c.Ghostscript.Binary == "" {
		c.Ghostscript.Binary = defaultGhostscriptBinary
	}
	c.Ghostscript.CompatibilityLevel = strings.TrimSpace(c.Ghostscript.CompatibilityLevel)
	if c.Ghostscript.CompatibilityLevel == "" {
		c.Ghostscript.CompatibilityLevel = defaultCompatibilityLevel
	}
	c.Ghostscript.PDFSettings = strings.TrimSpace(c.Ghostscript.PDFSettings)
	if c.Ghostscript.PDFSettings == "" {
		c.Ghostscript.PDFSettings = defaultPDFSettings
	} else if !strings.HasPrefix(c.Ghostscript.PDFSettings, "/") {
		c.Ghostscript.PDFSettings = "/" + c.Ghostscript.PDFSettings
	}
	if c.Ghostscript.TimeoutSeconds < 0 {
		c.Ghostscript.TimeoutSeconds = 0
	}

	markers := make([]string, 0, len(c.Ghostscript.PasswordMarkers))
	seen := make(map[string]struct{}, len(c.Ghostscript.PasswordMarkers))
	for _, marker := range c.Ghostscript.PasswordMarkers {
		trimmed := strings.TrimSpace(marker)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		markers = append(markers, trimmed)
	}
	if len(markers) == 0 {
		markers = append(markers, defaultPasswordMarkers...)
	}
	c.Ghostscript.PasswordMarkers = markers
}

func (c *Config) normalizeCompression() {
	if c.Compression.ThresholdPercent == 0 {
		c.Compression.ThresholdPercent = defaultThresholdPercent
	}
	if c.Compression.Workers <= 0 {
		c.Compression.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeMerge() {
	c.Merge.OutputName = strings.TrimSpace(c.Merge.OutputName)
	if c.Merge.OutputName == "" {
		c.Merge.OutputName = defaultMergeOutputName
	}
	if c.Merge.MinFiles <= 0 {
		c.Merge.MinFiles = defaultMergeMinFiles
	}
}

func (c *Config) normalizeReadiness() {
	if c.Readiness.PollIntervalMS <= 0 {
		c.Readiness.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Readiness.TimeoutSeconds < 0 {
		c.Readiness.TimeoutSeconds = 0
	}
	if c.Readiness.SettlePolls < 0 {
		c.Readiness.SettlePolls = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PDFWHACKER_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeHistory() error {
	path := strings.TrimSpace(c.History.Path)
	if path == "" {
		c.History.Path = filepath.Join(c.Paths.LogDir, defaultHistoryFileName)
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	c.History.Path = expanded
	return nil
}
