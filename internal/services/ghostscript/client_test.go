package ghostscript_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"pdfwhacker/internal/services/ghostscript"
)

type stubExecutor struct {
	mu     sync.Mutex
	stdout string
	stderr string
	err    error
	write  []byte
	block  bool
	calls  int
	args   [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string) (string, string, error) {
	s.mu.Lock()
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	s.mu.Unlock()

	if s.write != nil {
		for _, arg := range args {
			if out, ok := strings.CutPrefix(arg, "-sOutputFile="); ok {
				if err := os.WriteFile(out, s.write, 0o644); err != nil {
					return "", "", err
				}
			}
		}
	}
	if s.block {
		<-ctx.Done()
		return s.stdout, s.stderr, ctx.Err()
	}
	return s.stdout, s.stderr, s.err
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ghostscript.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestCompressArgsUseProfile(t *testing.T) {
	client, err := ghostscript.New("gs", ghostscript.WithProfile("1.5", "/screen"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got := client.CompressArgs("/in/a.pdf", "/out/a.pdf")
	want := []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.5",
		"-dPDFSETTINGS=/screen",
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=/out/a.pdf",
		"/in/a.pdf",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected args\n got %v\nwant %v", got, want)
	}
}

func TestMergeArgsPassEveryInput(t *testing.T) {
	got := ghostscript.MergeArgs([]string{"/m/a.pdf", "/m/b pdf.pdf", "/m/c.pdf"}, "/o/merged.pdf")
	want := []string{"-dNOPAUSE", "-sDEVICE=pdfwrite", "-sOutputFile=/o/merged.pdf", "-dBATCH", "/m/a.pdf", "/m/b pdf.pdf", "/m/c.pdf"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected args\n got %v\nwant %v", got, want)
	}
}

func TestCompressProducedIgnoresExitStatus(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.pdf")
	exec := &stubExecutor{write: []byte("compressed"), err: errors.New("exit status 1")}
	client, err := ghostscript.New("gs", ghostscript.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	result, err := client.Compress(context.Background(), "/in/a.pdf", out)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if result.Verdict != ghostscript.Produced {
		t.Fatalf("expected Produced, got %s", result.Verdict)
	}
	if result.RunErr == nil {
		t.Fatal("expected exit error to be preserved for diagnostics")
	}
}

func TestCompressToolFailureWhenNoOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.pdf")
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(&stubExecutor{stderr: "Error: /undefined in obj"}))
	result, err := client.Compress(context.Background(), "/in/a.pdf", out)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if result.Verdict != ghostscript.ToolFailure {
		t.Fatalf("expected ToolFailure, got %s", result.Verdict)
	}
	if result.Stderr != "Error: /undefined in obj" {
		t.Fatalf("stderr not captured: %q", result.Stderr)
	}
}

func TestCompressPasswordMarkerWinsOverOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.pdf")
	exec := &stubExecutor{
		write:  []byte("partial"),
		stderr: "   **** Error: THIS FILE REQUIRES A PASSWORD FOR ACCESS.",
	}
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(exec))
	result, err := client.Compress(context.Background(), "/in/a.pdf", out)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if result.Verdict != ghostscript.PasswordProtected {
		t.Fatalf("expected PasswordProtected, got %s", result.Verdict)
	}
}

func TestCompressClearsStaleOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.pdf")
	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(&stubExecutor{}))
	result, err := client.Compress(context.Background(), "/in/a.pdf", out)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if result.Verdict != ghostscript.ToolFailure {
		t.Fatalf("stale output must not count as produced, got %s", result.Verdict)
	}
}

func TestInjectedClassifier(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.pdf")
	client, _ := ghostscript.New("gs",
		ghostscript.WithExecutor(&stubExecutor{stderr: "Passwort erforderlich"}),
		ghostscript.WithClassifier(ghostscript.MarkerClassifier([]string{"passwort erforderlich"})),
	)
	result, err := client.Compress(context.Background(), "/in/a.pdf", out)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if result.Verdict != ghostscript.PasswordProtected {
		t.Fatalf("expected PasswordProtected, got %s", result.Verdict)
	}
}

func TestTimeoutRemovesPartialOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.pdf")
	exec := &stubExecutor{write: []byte("partial"), block: true}
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(exec), ghostscript.WithTimeout(20*time.Millisecond))
	result, err := client.Compress(context.Background(), "/in/a.pdf", out)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}
	if !result.TimedOut || result.Verdict != ghostscript.ToolFailure {
		t.Fatalf("expected timed-out ToolFailure, got %+v", result)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("partial output should be removed, stat err=%v", err)
	}
}

func TestCancelledContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(&stubExecutor{}))
	if _, err := client.Merge(ctx, []string{"a.pdf", "b.pdf"}, filepath.Join(t.TempDir(), "merged.pdf")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMergeRequiresInputs(t *testing.T) {
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(&stubExecutor{}))
	if _, err := client.Merge(context.Background(), nil, "merged.pdf"); err == nil {
		t.Fatal("expected error without inputs")
	}
}

func TestVersionTrimsOutput(t *testing.T) {
	client, _ := ghostscript.New("gs", ghostscript.WithExecutor(&stubExecutor{stdout: "10.02.1\n"}))
	version, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if version != "10.02.1" {
		t.Fatalf("unexpected version %q", version)
	}
}
