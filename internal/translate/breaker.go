package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/maauso/voiceover-api/internal/breaker"
)

// breakerTranslator guards a Translator with a circuit breaker.
type breakerTranslator struct {
	next Translator
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next so that repeated provider failures fail fast with
// ErrUnavailable. Input validation errors never count as failures.
func NewBreaker(next Translator, logger *slog.Logger) Translator {
	return &breakerTranslator{
		next: next,
		cb: breaker.New(breaker.Settings{
			Name:   "translate." + next.Name(),
			Logger: logger,
			Ignore: func(err error) bool {
				return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrUnsupportedLanguage)
			},
		}),
	}
}

func (b *breakerTranslator) Translate(ctx context.Context, text string, lang Language) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Translate(ctx, text, lang)
	})
	if err != nil {
		if breaker.IsOpen(err) {
			return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, b.next.Name(), err)
		}
		return "", err
	}
	return out.(string), nil
}

func (b *breakerTranslator) Name() string { return b.next.Name() }
