package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	jobIDKey    contextKey = "job_id"
	pipelineKey contextKey = "pipeline"
	fileKey     contextKey = "file"
)

// WithJobID annotates context with the correlation identifier of one
// orchestration run.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// EnsureJobID returns ctx carrying a job identifier, minting a new one when
// none is present.
func EnsureJobID(ctx context.Context) (context.Context, string) {
	if id, ok := JobIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return WithJobID(ctx, id), id
}

// WithPipeline annotates context with the pipeline name (compress or merge).
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	if pipeline == "" {
		return ctx
	}
	return context.WithValue(ctx, pipelineKey, pipeline)
}

// PipelineFromContext returns the pipeline name if present.
func PipelineFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pipelineKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFile annotates context with the base name of the file being handled.
func WithFile(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, fileKey, name)
}

// FileFromContext returns the file name if present.
func FileFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(fileKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
