package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Tool is an external program a pipeline shells out to.
type Tool struct {
	Name    string
	Binary  string
	Purpose string
	// Hint tells the operator how to make the tool available.
	Hint string
}

// Status reports whether a Tool can be executed.
type Status struct {
	Tool
	// Path is the resolved executable, set only when Available.
	Path      string
	Available bool
	Detail    string
}

// Check resolves tool.Binary. A bare name is looked up on PATH. A value
// containing a separator is checked directly, so a mistyped path on the
// command line is reported instead of silently falling back to PATH.
func Check(tool Tool) Status {
	tool.Binary = strings.TrimSpace(tool.Binary)
	status := Status{Tool: tool}

	switch {
	case tool.Binary == "":
		status.Detail = "binary not configured"
	case strings.ContainsRune(tool.Binary, filepath.Separator):
		status.Detail = checkExecutable(tool.Binary)
		if status.Detail == "" {
			status.Path = tool.Binary
		}
	default:
		path, err := exec.LookPath(tool.Binary)
		if err != nil {
			status.Detail = fmt.Sprintf("%q not found on PATH", tool.Binary)
		} else {
			status.Path = path
		}
	}

	status.Available = status.Detail == ""
	if !status.Available && tool.Hint != "" {
		status.Detail += "; " + tool.Hint
	}
	return status
}

func checkExecutable(path string) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Sprintf("executable not found: %s", path)
	case info.IsDir():
		return fmt.Sprintf("%s is a directory", path)
	case info.Mode().Perm()&0o111 == 0:
		return fmt.Sprintf("%s is not executable", path)
	}
	return ""
}
