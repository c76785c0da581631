// Package speech turns translated text into spoken audio.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Static errors for speech synthesis.
var (
	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("speech: text is empty")
	// ErrLanguageRequired is returned when no language code is given.
	ErrLanguageRequired = errors.New("speech: language code is required")
	// ErrNoAudio is returned when the provider answers with no audio data.
	ErrNoAudio = errors.New("speech: provider returned no audio")
	// ErrUnavailable is returned while the provider's circuit breaker is open.
	ErrUnavailable = errors.New("speech: provider unavailable")
	// ErrAPIKeyRequired is returned when a provider is built without credentials.
	ErrAPIKeyRequired = errors.New("speech: API key is required")
)

// Synthesizer renders text as MP3 audio.
type Synthesizer interface {
	// Synthesize speaks text in the language identified by langCode and
	// writes MP3 audio to dst, replacing any existing file.
	Synthesize(ctx context.Context, text, langCode, dst string) error

	// Name identifies the backend in logs and step records.
	Name() string
}

func checkInput(text, langCode string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if langCode == "" {
		return ErrLanguageRequired
	}
	return nil
}

// writeAudio streams r into dst. dst is removed when nothing was written
// or the copy fails.
func writeAudio(dst string, r io.Reader) error {
	f, err := os.Create(dst) // #nosec G304 - dst is built by the session service
	if err != nil {
		return fmt.Errorf("speech: create output: %w", err)
	}

	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("speech: write output: %w", err)
	}
	if n == 0 {
		_ = os.Remove(dst)
		return ErrNoAudio
	}
	return nil
}
