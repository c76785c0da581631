// Package audio splits extracted soundtracks into chunks small enough for
// speech recognition uploads, cutting at silences where possible.
package audio

import (
	"context"
	"errors"
)

// ErrInputNotFound is returned when the audio to split does not exist.
var ErrInputNotFound = errors.New("audio: input file does not exist")

// SplitOpts configures the behavior of audio splitting.
type SplitOpts struct {
	// ChunkTargetSec is the target duration for each chunk in seconds.
	// Audio is split at silence boundaries close to this duration.
	ChunkTargetSec int

	// MinSilenceMs is the minimum silence duration in milliseconds
	// to consider for a split point.
	MinSilenceMs int

	// SilenceThreshDB is the volume threshold in dBFS below which
	// audio is considered silence.
	SilenceThreshDB float64
}

// DefaultSplitOpts returns options sized for the 25 MB transcription upload
// limit: ten minutes of 16 kHz mono PCM is about 19 MB.
func DefaultSplitOpts() SplitOpts {
	return SplitOpts{
		ChunkTargetSec:  600,
		MinSilenceMs:    500,
		SilenceThreshDB: -40,
	}
}

// withDefaults fills zero fields from DefaultSplitOpts.
func (o SplitOpts) withDefaults() SplitOpts {
	d := DefaultSplitOpts()
	if o.ChunkTargetSec <= 0 {
		o.ChunkTargetSec = d.ChunkTargetSec
	}
	if o.MinSilenceMs <= 0 {
		o.MinSilenceMs = d.MinSilenceMs
	}
	if o.SilenceThreshDB == 0 {
		o.SilenceThreshDB = d.SilenceThreshDB
	}
	return o
}

// Splitter divides an audio file into speech-recognition sized chunks.
type Splitter interface {
	// Split writes chunks of inputWav into outputDir as 16 kHz mono WAV and
	// returns their paths in playback order. Audio no longer than
	// ChunkTargetSec yields a single chunk.
	//
	// The caller is responsible for removing the chunk files.
	Split(ctx context.Context, inputWav, outputDir string, opts SplitOpts) ([]string, error)
}
