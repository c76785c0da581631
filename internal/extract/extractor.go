// Package extract turns the audio track of a video into text.
package extract

import (
	"context"
	"errors"
)

// PlaceholderText is returned by PlaceholderExtractor for every input.
const PlaceholderText = "Dummy text for demonstration"

// ErrNoSpeech is returned when a transcription contains no text.
var ErrNoSpeech = errors.New("extract: no speech recognised")

// Extractor produces the text spoken in an audio file.
type Extractor interface {
	// Extract returns the text for the audio at audioPath.
	Extract(ctx context.Context, audioPath string) (string, error)

	// Name identifies the backend in logs and step records.
	Name() string
}

// PlaceholderExtractor stands in for real speech recognition.
// It never reads the audio file.
type PlaceholderExtractor struct{}

// NewPlaceholderExtractor creates a PlaceholderExtractor.
func NewPlaceholderExtractor() *PlaceholderExtractor {
	return &PlaceholderExtractor{}
}

// Extract always returns PlaceholderText.
func (PlaceholderExtractor) Extract(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PlaceholderText, nil
}

// Name returns "placeholder".
func (PlaceholderExtractor) Name() string { return "placeholder" }
