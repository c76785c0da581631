package speech

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISynthesizer speaks text with the OpenAI text-to-speech API.
// The model detects the language from the text itself.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
}

// OpenAIConfig configures an OpenAISynthesizer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string // defaults to tts-1
	Voice   string // defaults to alloy
	Slow    bool
}

// NewOpenAISynthesizer creates an OpenAISynthesizer.
func NewOpenAISynthesizer(cfg OpenAIConfig) (*OpenAISynthesizer, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceAlloy)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	speed := 1.0
	if cfg.Slow {
		speed = 0.75
	}

	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		voice:  cfg.Voice,
		speed:  speed,
	}, nil
}

// Synthesize writes MP3 speech for text to dst.
func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text, langCode, dst string) error {
	if err := checkInput(text, langCode); err != nil {
		return err
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          o.speed,
	})
	if err != nil {
		return fmt.Errorf("speech: openai: %w", err)
	}
	defer func() { _ = resp.Close() }()

	return writeAudio(dst, resp)
}

// Name returns "openai".
func (o *OpenAISynthesizer) Name() string { return "openai" }
