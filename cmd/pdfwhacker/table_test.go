package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"File", "Outcome"}, [][]string{{"a.pdf"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "a.pdf") || !strings.Contains(out, "Outcome") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty render without headers")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "-"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Ghostscript", statusOK, "gs", false)
	if !strings.Contains(line, "Ghostscript:") || !strings.Contains(line, "[OK] gs") {
		t.Fatalf("unexpected status line %q", line)
	}
	colored := renderStatusLine("Ghostscript", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}
