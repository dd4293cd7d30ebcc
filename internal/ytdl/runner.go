package ytdl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrRunFailed is returned when the yt-dlp process cannot be started or
// exits with a non-zero status.
var ErrRunFailed = errors.New("yt-dlp run failed")

// maxStderr bounds how much of yt-dlp's stderr is carried in an error
const maxStderr = 2048

// Runner executes yt-dlp with the given arguments and returns its stdout
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// RunnerFunc adapts a plain function to the Runner interface
type RunnerFunc func(ctx context.Context, args []string) ([]byte, error)

// Run calls f(ctx, args)
func (f RunnerFunc) Run(ctx context.Context, args []string) ([]byte, error) {
	return f(ctx, args)
}

// ExecRunner runs the yt-dlp binary at Path as a child process.
// No shell is involved.
type ExecRunner struct {
	Path string
}

// NewExecRunner creates a runner for the binary at path, defaulting to
// "yt-dlp" on PATH.
func NewExecRunner(path string) *ExecRunner {
	if path == "" {
		path = "yt-dlp"
	}
	return &ExecRunner{Path: path}
}

// Run executes yt-dlp. Cancelling ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRunFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrRunFailed, err, tail(stderr.String(), maxStderr))
	}

	return stdout.Bytes(), nil
}

// Version returns the output of yt-dlp --version
func (r *ExecRunner) Version(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
