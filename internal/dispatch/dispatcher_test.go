package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdfwhacker/internal/dispatch"
	"pdfwhacker/internal/services"
)

func TestSubmitRunsHandlerWithJobID(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]string{}
	)
	d := dispatch.New(func(ctx context.Context, path string) {
		id, _ := services.JobIDFromContext(ctx)
		mu.Lock()
		seen[path] = id
		mu.Unlock()
	}, dispatch.WithWorkers(2))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, p := range []string{"/in/a.pdf", "/in/b.pdf", "/in/c.pdf"} {
		if ok, err := d.Submit(context.Background(), p); err != nil || !ok {
			t.Fatalf("Submit(%s) = %v, %v", p, ok, err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 handled files, got %v", seen)
	}
	for path, id := range seen {
		if id == "" {
			t.Fatalf("no job id for %s", path)
		}
	}
	if d.InFlight() != 0 {
		t.Fatalf("expected empty registry, got %d", d.InFlight())
	}
}

func TestSubmitDropsDuplicateNames(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	d := dispatch.New(func(ctx context.Context, path string) {
		calls.Add(1)
		<-release
	}, dispatch.WithWorkers(1))
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if ok, _ := d.Submit(context.Background(), "/in/a.pdf"); !ok {
		t.Fatal("first submission should be accepted")
	}
	if ok, _ := d.Submit(context.Background(), "/in/a.pdf"); ok {
		t.Fatal("duplicate submission should be dropped")
	}
	if !d.Busy("/elsewhere/a.pdf") {
		t.Fatal("registry is keyed by file name")
	}
	close(release)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one handler call, got %d", calls.Load())
	}
}

func TestNameIsReleasedAfterCompletion(t *testing.T) {
	done := make(chan struct{}, 2)
	d := dispatch.New(func(ctx context.Context, path string) {
		done <- struct{}{}
	}, dispatch.WithWorkers(1))
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if ok, _ := d.Submit(context.Background(), "/in/a.pdf"); !ok {
		t.Fatal("first submission rejected")
	}
	<-done
	deadline := time.Now().Add(time.Second)
	for d.Busy("/in/a.pdf") {
		if time.Now().After(deadline) {
			t.Fatal("name never released")
		}
		time.Sleep(time.Millisecond)
	}
	if ok, _ := d.Submit(context.Background(), "/in/a.pdf"); !ok {
		t.Fatal("resubmission after completion rejected")
	}
	<-done
}

func TestWorkersBoundConcurrency(t *testing.T) {
	var (
		current atomic.Int32
		peak    atomic.Int32
	)
	d := dispatch.New(func(ctx context.Context, path string) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
	}, dispatch.WithWorkers(2))
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"1", "2", "3", "4", "5", "6"} {
		if _, err := d.Submit(context.Background(), "/in/"+name+".pdf"); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Fatalf("observed %d concurrent handlers with 2 workers", peak.Load())
	}
}

func TestHandlerPanicDoesNotStopWorkers(t *testing.T) {
	var handled atomic.Int32
	d := dispatch.New(func(ctx context.Context, path string) {
		if path == "/in/bad.pdf" {
			panic("bad file")
		}
		handled.Add(1)
	}, dispatch.WithWorkers(1))
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, _ = d.Submit(context.Background(), "/in/bad.pdf")
	_, _ = d.Submit(context.Background(), "/in/good.pdf")
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if handled.Load() != 1 {
		t.Fatalf("expected the good file to be handled, got %d", handled.Load())
	}
}

func TestSubmitLifecycleErrors(t *testing.T) {
	d := dispatch.New(func(context.Context, string) {})
	if _, err := d.Submit(context.Background(), "a.pdf"); !errors.Is(err, dispatch.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Submit(context.Background(), "a.pdf"); !errors.Is(err, dispatch.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDefaultWorkersUseCPUCount(t *testing.T) {
	d := dispatch.New(func(context.Context, string) {}, dispatch.WithWorkers(0))
	if d.Workers() < 1 {
		t.Fatalf("expected at least one worker, got %d", d.Workers())
	}
}
