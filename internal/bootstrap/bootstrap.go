// Package bootstrap provides dependency initialization for the voice-over API.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/voiceover-api/internal/audio"
	"github.com/maauso/voiceover-api/internal/config"
	"github.com/maauso/voiceover-api/internal/extract"
	"github.com/maauso/voiceover-api/internal/media"
	"github.com/maauso/voiceover-api/internal/session"
	"github.com/maauso/voiceover-api/internal/speech"
	"github.com/maauso/voiceover-api/internal/storage"
	"github.com/maauso/voiceover-api/internal/translate"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	Service *session.Service
	Storage storage.Storage

	closers []io.Closer
}

// Close releases database connections and provider clients.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Storage = store

	repo, db, err := initRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if db != nil {
		deps.closers = append(deps.closers, db)
	}

	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, media.WithFFprobePath(cfg.FFprobePath))

	extractor, err := newExtractor(cfg)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	translator, err := newTranslator(ctx, cfg)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	if c, ok := translator.(io.Closer); ok {
		deps.closers = append(deps.closers, c)
	}

	synthesizer, err := newSynthesizer(cfg)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	logger.Info("providers configured",
		slog.String("extractor", extractor.Name()),
		slog.String("translator", translator.Name()),
		slog.String("synthesizer", synthesizer.Name()),
	)

	deps.Service = session.NewService(
		repo,
		store,
		processor,
		extractor,
		translate.NewBreaker(translator, logger),
		speech.NewBreaker(synthesizer, logger),
		session.WithLogger(logger),
		session.WithStepTimeout(cfg.StepTimeout()),
		session.WithResizeHeight(cfg.ResizeHeight),
		session.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	)

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
// S3 wins over MinIO; without either, files stay on local disk.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	if cfg.MinIOEnabled() {
		minioStore, err := storage.NewMinIOStorage(cfg.TempDir, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create MinIO storage: %w", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			logger.Warn("MinIO bucket check failed, publishing may not work",
				slog.String("bucket", cfg.MinIOBucket),
				slog.String("error", err.Error()),
			)
		}
		logger.Info("MinIO storage configured",
			slog.String("endpoint", cfg.MinIOEndpoint),
			slog.String("bucket", cfg.MinIOBucket),
		)
		return minioStore, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.Root()),
	)
	return localStore, nil
}

// initRepository returns a Postgres-backed repository when DATABASE_URL is
// set and an in-memory one otherwise. The returned *sql.DB is nil for memory.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Repository, *sql.DB, error) {
	if !cfg.PostgresEnabled() {
		logger.Info("in-memory session repository configured")
		return session.NewMemoryRepository(), nil, nil
	}

	db, err := session.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo, err := session.NewPostgresRepository(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create postgres repository: %w", err)
	}
	logger.Info("postgres session repository configured")
	return repo, db, nil
}

func newExtractor(cfg *config.Config) (extract.Extractor, error) {
	switch cfg.Extractor {
	case config.ProviderPlaceholder, "":
		return extract.NewPlaceholderExtractor(), nil
	case config.ProviderWhisper:
		splitOpts := audio.DefaultSplitOpts()
		if cfg.WhisperChunkSec > 0 {
			splitOpts.ChunkTargetSec = cfg.WhisperChunkSec
		}
		opts := []extract.WhisperOption{
			extract.WithSplitter(audio.NewFFmpegSplitter(cfg.FFmpegPath), splitOpts),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, extract.WithBaseURL(cfg.OpenAIBaseURL))
		}
		w, err := extract.NewWhisperExtractor(cfg.OpenAIAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create whisper extractor: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: EXTRACTOR=%q", config.ErrUnknownProvider, cfg.Extractor)
	}
}

func newTranslator(ctx context.Context, cfg *config.Config) (translate.Translator, error) {
	switch cfg.Translator {
	case config.ProviderGoogle, "":
		g, err := translate.NewGoogleTranslator(ctx, cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create google translator: %w", err)
		}
		return g, nil
	case config.ProviderOpenAI:
		o, err := translate.NewOpenAITranslator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITranslateModel)
		if err != nil {
			return nil, fmt.Errorf("create openai translator: %w", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("%w: TRANSLATOR=%q", config.ErrUnknownProvider, cfg.Translator)
	}
}

func newSynthesizer(cfg *config.Config) (speech.Synthesizer, error) {
	switch cfg.Synthesizer {
	case config.ProviderGoogle, "":
		return speech.NewGoogleSynthesizer(speech.WithSlow(cfg.TTSSlow)), nil
	case config.ProviderOpenAI:
		o, err := speech.NewOpenAISynthesizer(speech.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAITTSModel,
			Voice:   cfg.OpenAITTSVoice,
			Slow:    cfg.TTSSlow,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai synthesizer: %w", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("%w: SYNTHESIZER=%q", config.ErrUnknownProvider, cfg.Synthesizer)
	}
}
