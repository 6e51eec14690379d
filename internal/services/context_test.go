package services_test

import (
	"context"
	"testing"

	"pdfwhacker/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithPipeline(ctx, "compress")
	ctx = services.WithFile(ctx, "a.pdf")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if pipeline, ok := services.PipelineFromContext(ctx); !ok || pipeline != "compress" {
		t.Fatalf("unexpected pipeline: %v %v", pipeline, ok)
	}
	if name, ok := services.FileFromContext(ctx); !ok || name != "a.pdf" {
		t.Fatalf("unexpected file: %v %v", name, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPipeline(ctx, "")
	ctx = services.WithJobID(ctx, "")
	if _, ok := services.PipelineFromContext(ctx); ok {
		t.Fatal("expected no pipeline value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}

func TestOutcomeClassification(t *testing.T) {
	cases := []struct {
		outcome  services.Outcome
		fallback bool
		problem  bool
	}{
		{services.OutcomeSuccess, false, false},
		{services.OutcomeIneffective, true, false},
		{services.OutcomePasswordProtected, true, true},
		{services.OutcomeToolFailure, true, true},
		{services.OutcomeSkipped, false, false},
		{services.OutcomeNotFound, false, false},
		{services.OutcomeFailed, false, true},
	}
	for _, tc := range cases {
		if got := tc.outcome.Fallback(); got != tc.fallback {
			t.Fatalf("%s.Fallback() = %v, want %v", tc.outcome, got, tc.fallback)
		}
		if got := tc.outcome.Problem(); got != tc.problem {
			t.Fatalf("%s.Problem() = %v, want %v", tc.outcome, got, tc.problem)
		}
	}
}

func TestEnsureJobID(t *testing.T) {
	ctx, id := services.EnsureJobID(context.Background())
	if id == "" {
		t.Fatal("expected minted job id")
	}
	got, ok := services.JobIDFromContext(ctx)
	if !ok || got != id {
		t.Fatalf("context carries %q, want %q", got, id)
	}
	again, sameID := services.EnsureJobID(ctx)
	if sameID != id || again != ctx {
		t.Fatal("existing job id should be preserved")
	}
}
