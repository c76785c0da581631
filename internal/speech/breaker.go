package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/maauso/voiceover-api/internal/breaker"
)

type breakerSynthesizer struct {
	next Synthesizer
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next so that repeated provider failures fail fast with
// ErrUnavailable.
func NewBreaker(next Synthesizer, logger *slog.Logger) Synthesizer {
	return &breakerSynthesizer{
		next: next,
		cb: breaker.New(breaker.Settings{
			Name:   "speech." + next.Name(),
			Logger: logger,
			Ignore: func(err error) bool {
				return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrLanguageRequired)
			},
		}),
	}
}

func (b *breakerSynthesizer) Synthesize(ctx context.Context, text, langCode, dst string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Synthesize(ctx, text, langCode, dst)
	})
	if err != nil && breaker.IsOpen(err) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, b.next.Name(), err)
	}
	return err
}

func (b *breakerSynthesizer) Name() string { return b.next.Name() }
