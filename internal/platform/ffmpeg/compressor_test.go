package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

type mockRunner struct {
	mu     sync.Mutex
	calls  [][]string
	result commandResult
	err    error
	// onRun, when set, runs before returning; used to fabricate output files.
	onRun func(name string, args []string)
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) (commandResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string{name}, args...))
	m.mu.Unlock()
	if m.onRun != nil {
		m.onRun(name, args)
	}
	return m.result, m.err
}

func newTestCompressor(t *testing.T, runner commandRunner) *Compressor {
	t.Helper()
	c := NewCompressor(nil)
	c.runner = runner
	return c
}

func TestCompressTranscodesToTargetBitrate(t *testing.T) {
	t.Parallel()

	compressed := []byte("small output")
	runner := &mockRunner{
		onRun: func(_ string, args []string) {
			outPath := args[len(args)-1]
			require.NoError(t, os.WriteFile(outPath, compressed, 0o600))
		},
	}
	c := newTestCompressor(t, runner)

	var progress []int
	out, err := c.Compress(context.Background(), []byte("big input payload"), "video/mp4", 96, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, compressed, out)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "ffmpeg", call[0])
	assert.Contains(t, call, "-b:a")
	assert.Contains(t, call, "96k")
	assert.Contains(t, call, "-vn")

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestCompressRejectsUnknownMimeType(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	c := newTestCompressor(t, runner)

	_, err := c.Compress(context.Background(), []byte("data"), "application/pdf", 128, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrCompressionUnsupported)
	assert.Empty(t, runner.calls, "unknown mime types must not reach ffmpeg")
}

func TestCompressMissingBinaryIsUnsupported(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{err: exec.ErrNotFound}
	c := newTestCompressor(t, runner)

	_, err := c.Compress(context.Background(), []byte("data"), "audio/mpeg", 64, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrCompressionUnsupported)
}

func TestCompressFfmpegFailureIsUnsupported(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{
		result: commandResult{ExitCode: 1, Stderr: "Invalid data found when processing input"},
		err:    errors.New("exit status 1"),
	}
	c := newTestCompressor(t, runner)

	_, err := c.Compress(context.Background(), []byte("data"), "video/webm", 48, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrCompressionUnsupported)
}

func TestCompressCancelledContextSurfacesCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	runner := &mockRunner{
		err: errors.New("signal: killed"),
		onRun: func(string, []string) {
			cancel()
		},
	}
	c := newTestCompressor(t, runner)

	_, err := c.Compress(ctx, []byte("data"), "video/mp4", 128, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, transport.ErrCompressionUnsupported)
}

func TestCompressRejectsNonPositiveBitrate(t *testing.T) {
	t.Parallel()

	c := newTestCompressor(t, &mockRunner{})
	_, err := c.Compress(context.Background(), []byte("data"), "video/mp4", 0, nil)
	require.Error(t, err)
}

func TestCompressEmptyOutputIsError(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{
		onRun: func(_ string, args []string) {
			outPath := args[len(args)-1]
			require.NoError(t, os.WriteFile(outPath, nil, 0o600))
		},
	}
	c := newTestCompressor(t, runner)

	_, err := c.Compress(context.Background(), []byte("data"), "video/mp4", 96, nil)
	require.Error(t, err)
}
