package translate

import (
	"context"
	"fmt"

	gtranslate "cloud.google.com/go/translate"
	"google.golang.org/api/option"
)

// GoogleTranslator uses the Google Cloud Translation v2 API.
type GoogleTranslator struct {
	client *gtranslate.Client
}

// NewGoogleTranslator creates a GoogleTranslator authenticated with apiKey.
// Extra client options such as option.WithEndpoint are appended.
func NewGoogleTranslator(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleTranslator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := gtranslate.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("translate: create google client: %w", err)
	}

	return &GoogleTranslator{client: client}, nil
}

// Translate sends text as plain text and lets the API detect the source language.
func (g *GoogleTranslator) Translate(ctx context.Context, text string, lang Language) (string, error) {
	if err := checkInput(text, lang); err != nil {
		return "", err
	}

	resp, err := g.client.Translate(ctx, []string{text}, lang.Tag, &gtranslate.Options{
		Format: gtranslate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translate: google: %w", err)
	}
	if len(resp) == 0 || resp[0].Text == "" {
		return "", ErrNoTranslation
	}

	return resp[0].Text, nil
}

// Name returns "google".
func (g *GoogleTranslator) Name() string { return "google" }

// Close releases the underlying client.
func (g *GoogleTranslator) Close() error {
	return g.client.Close()
}
