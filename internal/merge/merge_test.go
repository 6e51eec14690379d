package merge_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/history"
	"pdfwhacker/internal/merge"
	"pdfwhacker/internal/readiness"
	"pdfwhacker/internal/services"
	"pdfwhacker/internal/services/ghostscript"
	"pdfwhacker/internal/testsupport"
)

type fakeMerger struct {
	verdict ghostscript.Verdict
	stderr  string
	calls   int
	inputs  []string
	output  string
}

func (f *fakeMerger) Merge(_ context.Context, inputs []string, output string) (ghostscript.Result, error) {
	f.calls++
	f.inputs = append([]string(nil), inputs...)
	f.output = output
	if f.verdict == ghostscript.Produced {
		if err := os.WriteFile(output, []byte("%PDF-merged"), 0o644); err != nil {
			return ghostscript.Result{}, err
		}
	}
	return ghostscript.Result{OutputPath: output, Verdict: f.verdict, Stderr: f.stderr}, nil
}

type fixture struct {
	layout  config.Layout
	console *bytes.Buffer
	store   *history.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return fixture{
		layout:  cfg.Layout(),
		console: &bytes.Buffer{},
		store:   testsupport.MustOpenHistory(t, cfg),
	}
}

func (f fixture) orchestrator(tool merge.Merger, opts ...merge.Option) *merge.Orchestrator {
	base := []merge.Option{
		merge.WithGate(readiness.New(readiness.WithPollInterval(time.Millisecond))),
		merge.WithConsole(f.console),
		merge.WithHistory(f.store),
	}
	return merge.New(f.layout, tool, append(base, opts...)...)
}

func (f fixture) seed(t *testing.T, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(f.layout.MergeInput, name)
		testsupport.WriteSizedPDF(t, paths[i], int64(100*(i+1)))
	}
	return paths
}

func TestMergeSkipsWithTooFewFiles(t *testing.T) {
	for _, count := range []int{0, 1} {
		f := newFixture(t)
		names := []string{"only.pdf"}[:count]
		paths := f.seed(t, names...)
		tool := &fakeMerger{}

		result := f.orchestrator(tool).Merge(context.Background())
		if result.Outcome != services.OutcomeSkipped {
			t.Fatalf("count %d: expected skipped, got %s", count, result.Outcome)
		}
		if tool.calls != 0 {
			t.Fatalf("count %d: tool invoked %d times", count, tool.calls)
		}
		want := "A minimum of 2 files are needed before they can be merged. Found " + string(rune('0'+count))
		if !strings.Contains(f.console.String(), want) {
			t.Fatalf("count %d: missing %q in %q", count, want, f.console.String())
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				t.Fatalf("input %s should remain: %v", p, err)
			}
		}
	}
}

func TestMergeSuccessConsumesInputsAndKeepsArchive(t *testing.T) {
	f := newFixture(t)
	paths := f.seed(t, "b.pdf", "a.pdf", "c.pdf")
	tool := &fakeMerger{verdict: ghostscript.Produced}

	result := f.orchestrator(tool).Merge(context.Background())
	if result.Outcome != services.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", result.Outcome, result.Err)
	}
	if tool.calls != 1 {
		t.Fatalf("expected exactly one invocation, got %d", tool.calls)
	}
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	if !slices.Equal(tool.inputs, sorted) {
		t.Fatalf("tool inputs = %v, want %v", tool.inputs, sorted)
	}
	if tool.output != filepath.Join(f.layout.MergeOutput, "merged.pdf") {
		t.Fatalf("unexpected output path %s", tool.output)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("input %s should be removed, stat err=%v", p, err)
		}
		if _, err := os.Stat(filepath.Join(f.layout.MergeOriginal, filepath.Base(p))); err != nil {
			t.Fatalf("archive copy of %s missing: %v", filepath.Base(p), err)
		}
	}
	want := "Merged 3 files into merged.pdf. Size: 11 bytes."
	if !strings.Contains(f.console.String(), want) {
		t.Fatalf("missing %q in:\n%s", want, f.console.String())
	}

	runs, err := f.store.List(context.Background(), history.Filter{Pipeline: merge.Pipeline})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || len(runs[0].Inputs) != 3 || runs[0].ResultBytes != 11 {
		t.Fatalf("unexpected history: %+v", runs)
	}
}

func TestMergeFailureLeavesInputs(t *testing.T) {
	cases := []struct {
		name    string
		tool    *fakeMerger
		outcome services.Outcome
		message string
	}{
		{
			name:    "password",
			tool:    &fakeMerger{verdict: ghostscript.PasswordProtected, stderr: "requires a password"},
			outcome: services.OutcomePasswordProtected,
			message: "Unable to merge because one of the PDF files is password protected; leaving things as is.",
		},
		{
			name:    "no output",
			tool:    &fakeMerger{verdict: ghostscript.ToolFailure},
			outcome: services.OutcomeToolFailure,
			message: "Unable to merge due to unexpected error; leaving things as is.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			paths := f.seed(t, "x.pdf", "y.pdf")

			result := f.orchestrator(tc.tool).Merge(context.Background())
			if result.Outcome != tc.outcome {
				t.Fatalf("expected %s, got %s", tc.outcome, result.Outcome)
			}
			if !strings.Contains(f.console.String(), tc.message) {
				t.Fatalf("missing %q in:\n%s", tc.message, f.console.String())
			}
			for _, p := range paths {
				if _, err := os.Stat(p); err != nil {
					t.Fatalf("input %s should remain: %v", p, err)
				}
			}
			if _, err := os.Stat(filepath.Join(f.layout.MergeOutput, "merged.pdf")); !os.IsNotExist(err) {
				t.Fatalf("no output should be synthesized, stat err=%v", err)
			}
		})
	}
}

func TestMergeMissingInputFolder(t *testing.T) {
	f := newFixture(t)
	if err := os.RemoveAll(f.layout.MergeInput); err != nil {
		t.Fatal(err)
	}
	tool := &fakeMerger{}
	result := f.orchestrator(tool).Merge(context.Background())
	if result.Outcome != services.OutcomeNotFound {
		t.Fatalf("expected not found, got %s", result.Outcome)
	}
	if tool.calls != 0 {
		t.Fatal("tool should not run without an input folder")
	}
}

func TestMergeHonoursOptions(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "1.pdf", "2.pdf")
	tool := &fakeMerger{verdict: ghostscript.Produced}

	result := f.orchestrator(tool, merge.WithMinFiles(3)).Merge(context.Background())
	if result.Outcome != services.OutcomeSkipped {
		t.Fatalf("expected skip below custom minimum, got %s", result.Outcome)
	}

	f.seed(t, "3.pdf")
	result = f.orchestrator(tool, merge.WithMinFiles(3), merge.WithOutputName("bundle.pdf")).Merge(context.Background())
	if result.Outcome != services.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", result.Outcome, result.Err)
	}
	if filepath.Base(tool.output) != "bundle.pdf" {
		t.Fatalf("unexpected output %s", tool.output)
	}
}

func TestAnnounceReportsWaitingCount(t *testing.T) {
	f := newFixture(t)
	paths := f.seed(t, "one.pdf", "two.pdf")
	tool := &fakeMerger{verdict: ghostscript.Produced}

	count, err := f.orchestrator(tool).Announce(context.Background(), paths[1])
	if err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 waiting, got %d", count)
	}
	if !strings.Contains(f.console.String(), "two.pdf --- available to merge. Total files to merge: 2") {
		t.Fatalf("unexpected console output %q", f.console.String())
	}
	if tool.calls != 0 {
		t.Fatal("announce must not merge")
	}
}
