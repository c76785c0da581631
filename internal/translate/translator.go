// Package translate provides text translation into the supported languages.
package translate

import (
	"context"
	"errors"
	"strings"
)

// Static errors for translation.
var (
	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("translate: text is empty")
	// ErrUnsupportedLanguage is returned for languages outside the catalogue.
	ErrUnsupportedLanguage = errors.New("translate: unsupported language")
	// ErrNoTranslation is returned when the provider answers without a result.
	ErrNoTranslation = errors.New("translate: provider returned no translation")
	// ErrUnavailable is returned while the provider's circuit breaker is open.
	ErrUnavailable = errors.New("translate: provider unavailable")
	// ErrAPIKeyRequired is returned when a provider is built without credentials.
	ErrAPIKeyRequired = errors.New("translate: API key is required")
)

// Translator translates text into a target language.
type Translator interface {
	// Translate returns text rendered in lang.
	Translate(ctx context.Context, text string, lang Language) (string, error)

	// Name identifies the backend in logs and step records.
	Name() string
}

// checkInput validates arguments shared by every Translator.
func checkInput(text string, lang Language) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if lang.Code == "" {
		return ErrUnsupportedLanguage
	}
	return nil
}
