package ghostscript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"pdfwhacker/internal/fileutil"
)

const (
	defaultCompatibilityLevel = "1.7"
	defaultPDFSettings        = "/ebook"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stdout, stderr string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithClassifier replaces the stderr password classifier.
func WithClassifier(classify Classifier) Option {
	return func(c *Client) {
		if classify != nil {
			c.classify = classify
		}
	}
}

// WithProfile overrides the compatibility level and PDFSETTINGS preset used
// when compressing.
func WithProfile(compatibilityLevel, pdfSettings string) Option {
	return func(c *Client) {
		if v := strings.TrimSpace(compatibilityLevel); v != "" {
			c.compatibilityLevel = v
		}
		if v := strings.TrimSpace(pdfSettings); v != "" {
			c.pdfSettings = v
		}
	}
}

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// Verdict classifies a single invocation.
type Verdict int

const (
	// Produced means the output file exists after the call.
	Produced Verdict = iota
	// PasswordProtected means stderr carried a password marker.
	PasswordProtected
	// ToolFailure means no output was produced and no password marker was seen.
	ToolFailure
)

func (v Verdict) String() string {
	switch v {
	case Produced:
		return "produced"
	case PasswordProtected:
		return "password_protected"
	case ToolFailure:
		return "tool_failure"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Result captures the observable effects of an invocation. The exit status is
// kept for diagnostics only; Verdict is derived from stderr and the presence
// of the output file.
type Result struct {
	OutputPath string
	Verdict    Verdict
	Stderr     string
	RunErr     error
	TimedOut   bool
	Duration   time.Duration
}

// Client wraps Ghostscript CLI interactions.
type Client struct {
	binary             string
	compatibilityLevel string
	pdfSettings        string
	timeout            time.Duration
	classify           Classifier
	exec               Executor
}

// New constructs a Ghostscript client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ghostscript binary required")
	}
	client := &Client{
		binary:             binary,
		compatibilityLevel: defaultCompatibilityLevel,
		pdfSettings:        defaultPDFSettings,
		classify:           MarkerClassifier(DefaultPasswordMarkers),
		exec:               commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// CompressArgs returns the argument list used to compress input into output.
func (c *Client) CompressArgs(input, output string) []string {
	return []string{
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=" + c.compatibilityLevel,
		"-dPDFSETTINGS=" + c.pdfSettings,
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=" + output,
		input,
	}
}

// MergeArgs returns the argument list used to concatenate inputs into output.
func MergeArgs(inputs []string, output string) []string {
	args := []string{
		"-dNOPAUSE",
		"-sDEVICE=pdfwrite",
		"-sOutputFile=" + output,
		"-dBATCH",
	}
	return append(args, inputs...)
}

// Compress rewrites input into output using the configured profile.
func (c *Client) Compress(ctx context.Context, input, output string) (Result, error) {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return Result{}, errors.New("compress: input and output paths required")
	}
	return c.invoke(ctx, c.CompressArgs(input, output), output)
}

// Merge concatenates inputs, in order, into output.
func (c *Client) Merge(ctx context.Context, inputs []string, output string) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, errors.New("merge: at least one input required")
	}
	if strings.TrimSpace(output) == "" {
		return Result{}, errors.New("merge: output path required")
	}
	return c.invoke(ctx, MergeArgs(inputs, output), output)
}

// Version reports the Ghostscript version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := c.exec.Run(ctx, c.binary, []string{"--version"})
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return "", fmt.Errorf("ghostscript --version: %w: %s", err, msg)
		}
		return "", fmt.Errorf("ghostscript --version: %w", err)
	}
	return strings.TrimSpace(stdout), nil
}

func (c *Client) invoke(ctx context.Context, args []string, output string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	// A stale file at the output path would read as success.
	if err := fileutil.RemoveIfExists(output); err != nil {
		return Result{}, fmt.Errorf("clear output %s: %w", output, err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	_, stderr, runErr := c.exec.Run(runCtx, c.binary, args)
	result := Result{
		OutputPath: output,
		Stderr:     strings.TrimSpace(stderr),
		RunErr:     runErr,
		Duration:   time.Since(started),
	}

	if ctxErr := runCtx.Err(); ctxErr != nil {
		// Killed mid-write; whatever is on disk is partial.
		_ = fileutil.RemoveIfExists(output)
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TimedOut = true
		result.Verdict = ToolFailure
		return result, nil
	}

	switch {
	case c.classify(result.Stderr):
		result.Verdict = PasswordProtected
	case fileutil.Exists(output):
		result.Verdict = Produced
	default:
		result.Verdict = ToolFailure
	}
	return result, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
