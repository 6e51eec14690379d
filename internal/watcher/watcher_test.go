package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdfwhacker/internal/watcher"
)

func startWatcher(t *testing.T, dirs ...string) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New(dirs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func expectEvent(t *testing.T, w *watcher.Watcher, wantPath string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Path == wantPath {
				return
			}
			t.Fatalf("unexpected event %+v, want %s", ev, wantPath)
		case <-timeout:
			t.Fatalf("no event for %s", wantPath)
		}
	}
}

func TestWatcherReportsNewPDFs(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".staging.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(target, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, w, target)
}

func TestWatcherTracksMultipleDirectories(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	w := startWatcher(t, first, second)

	target := filepath.Join(second, "b.PDF")
	if err := os.WriteFile(target, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-w.Events():
		if ev.Path != target || ev.Dir != second {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event from second directory")
	}
}

func TestWatcherReportsRenamedArrivals(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	src := filepath.Join(outside, "moved.pdf")
	if err := os.WriteFile(src, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, dir)

	target := filepath.Join(dir, "moved.pdf")
	if err := os.Rename(src, target); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, w, target)
}

func TestNewRequiresDirectories(t *testing.T) {
	if _, err := watcher.New(nil); err == nil {
		t.Fatal("expected error without directories")
	}
	if _, err := watcher.New([]string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRunClosesEventsOnCancel(t *testing.T) {
	w, err := watcher.New([]string{t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Fatal("expected closed event channel")
	}
}

func TestCloseWithoutRun(t *testing.T) {
	w, err := watcher.New([]string{t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run after Close: %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Fatal("expected events channel closed")
	}
}
