package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Static errors for media operations.
var (
	// ErrInvalidHeight is returned when the requested resize height is not positive.
	ErrInvalidHeight = errors.New("invalid height: must be positive")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// FFmpegProcessor implements Processor using the ffmpeg CLI.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// ProcessorOption configures an FFmpegProcessor.
type ProcessorOption func(*FFmpegProcessor)

// WithFFprobePath sets the ffprobe binary used by GetMediaDuration.
func WithFFprobePath(path string) ProcessorOption {
	return func(p *FFmpegProcessor) {
		if path != "" {
			p.ffprobePath = path
		}
	}
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegProcessor(ffmpegPath string, opts ...ProcessorOption) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	p := &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: "ffprobe"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ResizeArgs returns the ffmpeg arguments used to scale src to the given height.
// Width is derived from the aspect ratio and rounded to an even number so
// the output stays encodable with libx264.
func ResizeArgs(src, dst string, height int) []string {
	return []string{
		"-y",      // Overwrite output file without asking
		"-i", src, // Input file
		"-vf", fmt.Sprintf("scale=-2:%d", height), // Keep aspect ratio
		dst, // Output file
	}
}

// ExtractAudioArgs returns the ffmpeg arguments used to pull the audio track of src.
func ExtractAudioArgs(src, dst string) []string {
	return []string{
		"-y",      // Overwrite output file without asking
		"-i", src, // Input file
		"-acodec", "pcm_s24le", // 24-bit PCM
		"-ar", "48000", // Sample rate
		"-q:a", "0",
		"-map", "a", // Audio streams only
		dst, // Output file
	}
}

// Resize scales a video to the given height, preserving the aspect ratio.
func (p *FFmpegProcessor) Resize(ctx context.Context, src, dst string, height int) error {
	if height <= 0 {
		return fmt.Errorf("%w: height=%d", ErrInvalidHeight, height)
	}
	return p.runFFmpeg(ctx, ResizeArgs(src, dst, height))
}

// ExtractAudio writes the audio track of a video to a WAV file.
func (p *FFmpegProcessor) ExtractAudio(ctx context.Context, src, dst string) error {
	return p.runFFmpeg(ctx, ExtractAudioArgs(src, dst))
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application; args are never shell-interpreted
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// GetMediaDuration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (p *FFmpegProcessor) GetMediaDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}
