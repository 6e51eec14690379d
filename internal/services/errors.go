package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers for classifying pipeline failures with errors.Is.
var (
	ErrExternalTool      = errors.New("external tool error")
	ErrPasswordProtected = errors.New("password protected")
	ErrTimeout           = errors.New("timeout")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker so callers can classify it with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, pipeline, operation, message string, err error) error {
	detail := buildDetail(pipeline, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(pipeline, operation, message string) string {
	parts := make([]string, 0, 3)
	if pipeline = strings.TrimSpace(pipeline); pipeline != "" {
		parts = append(parts, pipeline)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// ToolError describes why a tool run produced no usable output. It returns
// nil when nothing went wrong.
func ToolError(pipeline string, passwordProtected, timedOut bool, runErr error) error {
	switch {
	case passwordProtected:
		return Wrap(ErrPasswordProtected, pipeline, "ghostscript", "input requires a password", nil)
	case timedOut:
		return Wrap(ErrTimeout, pipeline, "ghostscript", "timed out", runErr)
	default:
		return Wrap(ErrExternalTool, pipeline, "ghostscript", "no output produced", runErr)
	}
}
