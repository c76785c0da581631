package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/maauso/voiceover-api/internal/audio"
)

// ErrAPIKeyRequired is returned when no OpenAI API key is configured.
var ErrAPIKeyRequired = errors.New("extract: OpenAI API key is required")

// WhisperExtractor transcribes audio with the OpenAI transcription API.
// With a splitter configured, long audio is transcribed chunk by chunk.
type WhisperExtractor struct {
	client    *openai.Client
	model     string
	splitter  audio.Splitter
	splitOpts audio.SplitOpts
}

// WhisperOption configures a WhisperExtractor.
type WhisperOption func(*whisperOptions)

type whisperOptions struct {
	baseURL   string
	model     string
	splitter  audio.Splitter
	splitOpts audio.SplitOpts
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) WhisperOption {
	return func(o *whisperOptions) {
		o.baseURL = url
	}
}

// WithModel overrides the transcription model. Defaults to whisper-1.
func WithModel(model string) WhisperOption {
	return func(o *whisperOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithSplitter cuts audio into chunks before upload.
func WithSplitter(s audio.Splitter, opts audio.SplitOpts) WhisperOption {
	return func(o *whisperOptions) {
		o.splitter = s
		o.splitOpts = opts
	}
}

// NewWhisperExtractor creates a WhisperExtractor.
func NewWhisperExtractor(apiKey string, opts ...WhisperOption) (*WhisperExtractor, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	o := whisperOptions{model: openai.Whisper1}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}

	return &WhisperExtractor{
		client:    openai.NewClientWithConfig(cfg),
		model:     o.model,
		splitter:  o.splitter,
		splitOpts: o.splitOpts,
	}, nil
}

// Extract uploads the audio file and returns the transcript.
func (w *WhisperExtractor) Extract(ctx context.Context, audioPath string) (string, error) {
	if w.splitter == nil {
		return w.extractChunks(ctx, []string{audioPath})
	}

	dir, err := os.MkdirTemp(filepath.Dir(audioPath), "chunks-")
	if err != nil {
		return "", fmt.Errorf("extract: create chunk directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	chunks, err := w.splitter.Split(ctx, audioPath, dir, w.splitOpts)
	if err != nil {
		return "", fmt.Errorf("extract: split audio: %w", err)
	}
	return w.extractChunks(ctx, chunks)
}

// extractChunks transcribes each file in order and joins the non-empty results.
func (w *WhisperExtractor) extractChunks(ctx context.Context, paths []string) (string, error) {
	parts := make([]string, 0, len(paths))
	for i, p := range paths {
		resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    w.model,
			FilePath: p,
		})
		if err != nil {
			if len(paths) > 1 {
				return "", fmt.Errorf("extract: transcription of chunk %d/%d: %w", i+1, len(paths), err)
			}
			return "", fmt.Errorf("extract: transcription: %w", err)
		}
		if text := strings.TrimSpace(resp.Text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}

// Name returns "whisper".
func (w *WhisperExtractor) Name() string { return "whisper" }
