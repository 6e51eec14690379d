package pdfinfo_test

import (
	"os"
	"path/filepath"
	"testing"

	"pdfwhacker/internal/pdfinfo"
	"pdfwhacker/internal/testsupport"
)

func TestInspectReportsVersionAndPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.pdf")
	testsupport.WritePDF(t, path, 3, "1.4")

	info, err := pdfinfo.Inspect(path)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", info.Pages)
	}
	if info.Version != "1.4" {
		t.Fatalf("expected version 1.4, got %q", info.Version)
	}
	if info.Encrypted {
		t.Fatal("plain fixture reported as encrypted")
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := pdfinfo.Inspect(path); err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}

func TestInspectMissingFile(t *testing.T) {
	if _, err := pdfinfo.Inspect(filepath.Join(t.TempDir(), "missing.pdf")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
