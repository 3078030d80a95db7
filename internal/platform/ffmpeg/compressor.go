// Package ffmpeg shells out to the ffmpeg binary to transcode payloads
// down to a target audio bitrate before submission.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

// extensions maps supported input MIME types to file extensions ffmpeg
// can infer a demuxer from. Anything absent is not compressible.
var extensions = map[string]string{
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/webm":       ".webm",
	"video/x-matroska": ".mkv",
	"audio/mpeg":       ".mp3",
	"audio/mp4":        ".m4a",
	"audio/wav":        ".wav",
	"audio/x-wav":      ".wav",
	"audio/ogg":        ".ogg",
	"audio/flac":       ".flac",
}

// outputMimeType is what every compressed payload becomes. Video tracks
// are stripped; only the audio matters for analysis.
const outputMimeType = "audio/mp4"

// commandResult captures one process execution.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Compressor implements transport.Compressor by transcoding payloads to
// AAC audio at the requested bitrate in a temporary workspace.
type Compressor struct {
	logger     *slog.Logger
	binaryPath string
	runner     commandRunner
	mkdirTemp  func(dir, pattern string) (string, error)
	writeFile  func(name string, data []byte, perm os.FileMode) error
	readFile   func(name string) ([]byte, error)
	removeAll  func(path string) error
}

// NewCompressor creates a Compressor that invokes the ffmpeg binary on
// PATH.
func NewCompressor(logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{
		logger:     logger.With(slog.String("component", "ffmpeg_compressor")),
		binaryPath: "ffmpeg",
		runner:     execRunner{},
		mkdirTemp:  os.MkdirTemp,
		writeFile:  os.WriteFile,
		readFile:   os.ReadFile,
		removeAll:  os.RemoveAll,
	}
}

var _ transport.Compressor = (*Compressor)(nil)

// Compress implements transport.Compressor. Unknown MIME types and a
// missing ffmpeg binary report transport.ErrCompressionUnsupported so
// the caller can skip straight to its next strategy.
func (c *Compressor) Compress(ctx context.Context, data []byte, mimeType string, targetBitrateKbps int, onProgress func(percent int)) ([]byte, error) {
	ext, ok := extensions[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: mime type %q", transport.ErrCompressionUnsupported, mimeType)
	}
	if targetBitrateKbps <= 0 {
		return nil, fmt.Errorf("target bitrate must be positive, got %d", targetBitrateKbps)
	}

	report := func(percent int) {
		if onProgress != nil {
			onProgress(percent)
		}
	}

	tempDir, err := c.mkdirTemp("", "avp-compress-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary workspace: %w", err)
	}
	defer func() { _ = c.removeAll(tempDir) }()

	inPath := filepath.Join(tempDir, "input"+ext)
	outPath := filepath.Join(tempDir, "output.m4a")
	if err := c.writeFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage input payload: %w", err)
	}
	report(10)

	args := buildArgs(inPath, outPath, targetBitrateKbps)
	c.logger.Debug("transcoding payload",
		"input_bytes", len(data),
		"target_bitrate_kbps", targetBitrateKbps,
		"mime_type", mimeType)

	result, runErr := c.runner.Run(ctx, c.binaryPath, args...)
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: ffmpeg binary not found", transport.ErrCompressionUnsupported)
		}
		c.logger.Error("ffmpeg transcode failed",
			"exit_code", result.ExitCode,
			"stderr", tail(result.Stderr, 512))
		return nil, fmt.Errorf("%w: ffmpeg exited with code %d", transport.ErrCompressionUnsupported, result.ExitCode)
	}
	report(90)

	out, err := c.readFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg completed but output file is missing: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg produced an empty output file")
	}
	report(100)

	c.logger.Info("payload compressed",
		"input_bytes", len(data),
		"output_bytes", len(out),
		"target_bitrate_kbps", targetBitrateKbps)
	return out, nil
}

// OutputMimeType reports the MIME type of every compressed payload.
func (c *Compressor) OutputMimeType() string {
	return outputMimeType
}

// buildArgs builds the transcode invocation: drop video, resample to
// mono 16 kHz AAC at the target bitrate.
func buildArgs(inPath, outPath string, bitrateKbps int) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "aac",
		"-b:a", strconv.Itoa(bitrateKbps) + "k",
		outPath,
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
