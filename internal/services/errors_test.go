package services_test

import (
	"errors"
	"strings"
	"testing"

	"pdfwhacker/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "compress", "ghostscript", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"compress", "ghostscript", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestToolErrorMarkers(t *testing.T) {
	runErr := errors.New("exit status 1")
	tests := []struct {
		name     string
		password bool
		timedOut bool
		marker   error
	}{
		{"password", true, false, services.ErrPasswordProtected},
		{"timeout", false, true, services.ErrTimeout},
		{"missing output", false, false, services.ErrExternalTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := services.ToolError("merge", tt.password, tt.timedOut, runErr)
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v marker, got %v", tt.marker, err)
			}
			if !strings.Contains(err.Error(), "merge") {
				t.Fatalf("expected pipeline in %q", err.Error())
			}
		})
	}
}
