// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Provider names accepted by EXTRACTOR, TRANSLATOR and SYNTHESIZER.
const (
	ProviderPlaceholder = "placeholder"
	ProviderWhisper     = "whisper"
	ProviderGoogle      = "google"
	ProviderOpenAI      = "openai"
)

// Static errors for configuration validation.
var (
	// ErrGoogleAPIKeyRequired is returned when the Google translator is selected without GOOGLE_API_KEY.
	ErrGoogleAPIKeyRequired = errors.New("config: GOOGLE_API_KEY is required when TRANSLATOR=google")
	// ErrOpenAIAPIKeyRequired is returned when an OpenAI-backed provider is selected without OPENAI_API_KEY.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required for OpenAI providers")
	// ErrUnknownProvider is returned when a provider name is not recognised.
	ErrUnknownProvider = errors.New("config: unknown provider")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Storage settings
	TempDir     string `env:"TEMP_DIR, default=/tmp/voiceover" json:"temp_dir"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB, default=512" json:"max_upload_mb"`
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Processing settings
	FFmpegPath     string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath    string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	ResizeHeight   int    `env:"RESIZE_HEIGHT, default=720" json:"resize_height"`
	StepTimeoutSec int    `env:"STEP_TIMEOUT_SEC, default=300" json:"step_timeout_sec"`
	// WhisperChunkSec bounds the audio length sent per transcription request.
	WhisperChunkSec int `env:"WHISPER_CHUNK_SEC, default=600" json:"whisper_chunk_sec"`

	// Provider selection
	Extractor   string `env:"EXTRACTOR, default=placeholder" json:"extractor"`
	Translator  string `env:"TRANSLATOR, default=google" json:"translator"`
	Synthesizer string `env:"SYNTHESIZER, default=google" json:"synthesizer"`

	// Google settings
	GoogleAPIKey string `env:"GOOGLE_API_KEY" json:"-"` // Masked in JSON
	TTSSlow      bool   `env:"TTS_SLOW, default=false" json:"tts_slow"`

	// OpenAI settings
	OpenAIAPIKey         string `env:"OPENAI_API_KEY" json:"-"` // Masked in JSON
	OpenAIBaseURL        string `env:"OPENAI_BASE_URL" json:"openai_base_url,omitempty"`
	OpenAITranslateModel string `env:"OPENAI_TRANSLATE_MODEL, default=gpt-4o-mini" json:"openai_translate_model"`
	OpenAITTSModel       string `env:"OPENAI_TTS_MODEL, default=tts-1" json:"openai_tts_model"`
	OpenAITTSVoice       string `env:"OPENAI_TTS_VOICE, default=alloy" json:"openai_tts_voice"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Optional MinIO settings
	MinIOEndpoint  string `env:"MINIO_ENDPOINT" json:"minio_endpoint,omitempty"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" json:"-"` // Masked in JSON
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" json:"-"` // Masked in JSON
	MinIOBucket    string `env:"MINIO_BUCKET, default=voiceover" json:"minio_bucket"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL, default=false" json:"minio_use_ssl"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MinIOEnabled returns true if a MinIO endpoint is configured.
// S3 takes precedence when both are set.
func (c *Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOBucket != ""
}

// PostgresEnabled returns true if sessions should be persisted in Postgres.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// StepTimeout returns the per-step timeout as a duration.
func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSec) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected providers have the credentials they need.
func (c *Config) Validate() error {
	switch c.Extractor {
	case ProviderPlaceholder:
	case ProviderWhisper:
		if c.OpenAIAPIKey == "" {
			return ErrOpenAIAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: EXTRACTOR=%q", ErrUnknownProvider, c.Extractor)
	}

	switch c.Translator {
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			return ErrGoogleAPIKeyRequired
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrOpenAIAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: TRANSLATOR=%q", ErrUnknownProvider, c.Translator)
	}

	switch c.Synthesizer {
	case ProviderGoogle:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrOpenAIAPIKeyRequired
		}
	default:
		return fmt.Errorf("%w: SYNTHESIZER=%q", ErrUnknownProvider, c.Synthesizer)
	}

	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, Extractor: %s, Translator: %s, Synthesizer: %s, ResizeHeight: %d, StepTimeoutSec: %d, S3Bucket: %s, S3Region: %s, MinIOEndpoint: %s, Postgres: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.Extractor,
		c.Translator,
		c.Synthesizer,
		c.ResizeHeight,
		c.StepTimeoutSec,
		c.S3Bucket,
		c.S3Region,
		c.MinIOEndpoint,
		c.PostgresEnabled(),
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
