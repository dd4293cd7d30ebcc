package ytdl

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses echo as fake yt-dlp")
	}

	r := NewExecRunner("echo")
	out, err := r.Run(context.Background(), []string{"--no-warnings", "--", "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "--no-warnings -- https://example.com", strings.TrimSpace(string(out)))
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner("/nonexistent/yt-dlp")
	_, err := r.Run(context.Background(), []string{"--version"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunFailed))
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses false as fake yt-dlp")
	}

	r := NewExecRunner("false")
	_, err := r.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRunFailed)
}

func TestExecRunner_ContextCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep as fake yt-dlp")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecRunner("sleep").Run(ctx, []string{"10"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, err.Error(), "deadline exceeded")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecRunner_Version(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses echo as fake yt-dlp")
	}

	// echo prints its argument back, standing in for a version string
	v, err := NewExecRunner("echo").Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "--version", v)
}

func TestNewExecRunner_DefaultPath(t *testing.T) {
	assert.Equal(t, "yt-dlp", NewExecRunner("").Path)
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	var r Runner = RunnerFunc(func(ctx context.Context, args []string) ([]byte, error) {
		got = args
		return []byte("ok"), nil
	})

	out, err := r.Run(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short \n", 10))
	assert.Equal(t, "...6789", tail("0123456789", 4))
}
