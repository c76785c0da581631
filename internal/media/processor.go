// Package media provides video and audio processing on top of the ffmpeg CLI.
package media

import "context"

// DefaultResizeHeight is the output height used when no height is requested.
const DefaultResizeHeight = 720

// Processor defines the interface for the media operations the pipeline needs.
// Implementations should use ffmpeg or similar tools for media manipulation.
type Processor interface {
	// Resize scales a video to the given height, keeping the aspect ratio.
	// The source video is read from src and the result is written to dst.
	Resize(ctx context.Context, src, dst string, height int) error

	// ExtractAudio writes the first audio stream of a video to dst as
	// 24-bit 48 kHz PCM WAV.
	ExtractAudio(ctx context.Context, src, dst string) error

	// GetMediaDuration returns the duration in seconds of a media file.
	GetMediaDuration(ctx context.Context, path string) (float64, error)
}
