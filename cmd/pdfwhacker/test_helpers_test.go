package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/testsupport"
)

// stubGhostscript compresses by truncating to 64 bytes and merges by
// concatenating its inputs.
const stubGhostscript = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "10.02.1"
	exit 0
fi
out=""
compress=0
for a in "$@"; do
	case "$a" in
	-sOutputFile=*) out="${a#-sOutputFile=}"; : > "$out" ;;
	-dPDFSETTINGS=*) compress=1 ;;
	-*) ;;
	*)
		if [ "$compress" = 1 ]; then
			head -c 64 "$a" > "$out"
		else
			cat "$a" >> "$out"
		fi
		;;
	esac
done
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	gsPath     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("PDFWHACKER_GHOSTSCRIPT", "")

	gsPath := filepath.Join(base, "bin", "gs")
	if err := os.MkdirAll(filepath.Dir(gsPath), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(gsPath, []byte(stubGhostscript), 0o755); err != nil {
		t.Fatalf("write ghostscript stub: %v", err)
	}
	cfg.Ghostscript.Binary = gsPath

	configPath := filepath.Join(homeDir, ".config", "pdfwhacker", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		gsPath:     gsPath,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, strings.NewReader(""))
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr syncBuffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(stdin)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// syncBuffer tolerates the watch loop and pipeline workers writing the
// console concurrently.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
