package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFolders(); err != nil {
		return err
	}
	if err := c.validateGhostscript(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFolders() error {
	if strings.TrimSpace(c.Paths.WorkingDir) == "" {
		return errors.New("paths.working_dir must be set")
	}
	named := []struct {
		key   string
		value string
	}{
		{"folders.compression_input", c.Folders.CompressionInput},
		{"folders.compression_original", c.Folders.CompressionOriginal},
		{"folders.compression_output", c.Folders.CompressionOutput},
		{"folders.merge_input", c.Folders.MergeInput},
		{"folders.merge_original", c.Folders.MergeOriginal},
		{"folders.merge_output", c.Folders.MergeOutput},
	}
	seen := make(map[string]string, len(named))
	for _, folder := range named {
		if folder.value == "" || folder.value == "." {
			return fmt.Errorf("%s must name a folder", folder.key)
		}
		if filepath.IsAbs(folder.value) || strings.HasPrefix(folder.value, "..") {
			return fmt.Errorf("%s must be relative to paths.working_dir", folder.key)
		}
		if other, exists := seen[folder.value]; exists {
			return fmt.Errorf("%s and %s must differ (both %q)", other, folder.key, folder.value)
		}
		seen[folder.value] = folder.key
	}
	return nil
}

func (c *Config) validateGhostscript() error {
	if strings.TrimSpace(c.Ghostscript.Binary) == "" {
		return errors.New("ghostscript.binary must be set")
	}
	return nil
}

func (c *Config) validateCompression() error {
	if c.Compression.ThresholdPercent <= 0 || c.Compression.ThresholdPercent > 100 {
		return errors.New("compression.threshold_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.MinFiles < 2 {
		return errors.New("merge.min_files must be at least 2")
	}
	if strings.ContainsAny(c.Merge.OutputName, `/\`) {
		return errors.New("merge.output_name must be a bare file name")
	}
	if !strings.EqualFold(filepath.Ext(c.Merge.OutputName), ".pdf") {
		return errors.New("merge.output_name must end in .pdf")
	}
	return nil
}
