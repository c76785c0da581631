package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/maauso/voiceover-api/internal/extract"
	"github.com/maauso/voiceover-api/internal/media"
	"github.com/maauso/voiceover-api/internal/speech"
	"github.com/maauso/voiceover-api/internal/storage"
	"github.com/maauso/voiceover-api/internal/translate"
)

// Static errors for service operations.
var (
	// ErrEmptyUpload is returned when an upload contains no bytes.
	ErrEmptyUpload = errors.New("uploaded file is empty")
	// ErrUnsupportedFormat is returned when an upload is not an MP4 video.
	ErrUnsupportedFormat = errors.New("unsupported video format: only MP4 is accepted")
	// ErrUploadTooLarge is returned when an upload exceeds the configured limit.
	ErrUploadTooLarge = errors.New("uploaded file is too large")
	// ErrStepTimeout is returned when a step exceeds the step timeout.
	ErrStepTimeout = errors.New("step timed out")
	// ErrUnknownArtifact is returned for artifact kinds other than video and audio.
	ErrUnknownArtifact = errors.New("unknown artifact")
	// ErrStepFailed wraps failures of the extraction, translation and synthesis backends.
	ErrStepFailed = errors.New("step failed")
)

// providerSteps are the steps backed by a remote or pluggable provider.
var providerSteps = map[StepName]bool{
	StepExtract:    true,
	StepTranslate:  true,
	StepSynthesize: true,
}

// sniffLen is the number of leading bytes inspected to detect the upload format.
const sniffLen = 3072

// Artifact identifies a downloadable file of a session.
type Artifact string

const (
	// ArtifactVideo is the session video, resized when a resize ran.
	ArtifactVideo Artifact = "video"
	// ArtifactAudio is the synthesized speech.
	ArtifactAudio Artifact = "audio"
)

// Download is an open artifact ready to be streamed to a client.
// The caller must close Body.
type Download struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// PipelineInput configures RunPipeline.
type PipelineInput struct {
	// Language is the target language name or code.
	Language string
	// Resize runs the resize step first.
	Resize bool
	// Height is the resize height. Zero uses the default.
	Height int
}

// Service orchestrates the voice-over workflow for sessions.
// Steps on one session are serialised; different sessions run in parallel.
type Service struct {
	repo        Repository
	storage     storage.Storage
	media       media.Processor
	extractor   extract.Extractor
	translator  translate.Translator
	synthesizer speech.Synthesizer
	logger      *slog.Logger
	locks       *keyedLocks

	stepTimeout    time.Duration
	resizeHeight   int
	maxUploadBytes int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStepTimeout bounds the duration of each step.
func WithStepTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.stepTimeout = d
		}
	}
}

// WithResizeHeight sets the height used when a resize requests none.
func WithResizeHeight(h int) ServiceOption {
	return func(s *Service) {
		if h > 0 {
			s.resizeHeight = h
		}
	}
}

// WithMaxUploadBytes limits the size of uploads. Zero disables the limit.
func WithMaxUploadBytes(n int64) ServiceOption {
	return func(s *Service) {
		s.maxUploadBytes = n
	}
}

// NewService creates a new Service.
func NewService(
	repo Repository,
	store storage.Storage,
	processor media.Processor,
	extractor extract.Extractor,
	translator translate.Translator,
	synthesizer speech.Synthesizer,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		repo:         repo,
		storage:      store,
		media:        processor,
		extractor:    extractor,
		translator:   translator,
		synthesizer:  synthesizer,
		logger:       slog.Default(),
		locks:        newKeyedLocks(),
		stepTimeout:  5 * time.Minute,
		resizeHeight: media.DefaultResizeHeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates and persists an empty session.
func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	sess := New()

	if err := s.repo.Save(ctx, sess); err != nil {
		s.logger.Error("failed to save session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("session created", slog.String("session_id", sess.ID))
	return sess.Clone(), nil
}

// GetSession retrieves a session by ID.
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	return s.repo.FindByID(ctx, id)
}

// ListSessions returns all sessions, oldest first.
func (s *Service) ListSessions(ctx context.Context) ([]*Session, error) {
	return s.repo.List(ctx)
}

// DeleteSession removes a session and its files.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.storage.Cleanup(ctx, id); err != nil {
		return fmt.Errorf("cleanup session files: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("session deleted", slog.String("session_id", id))
	return nil
}

// UploadVideo stores r verbatim as the session video. Only MP4 content is
// accepted. Any earlier progress of the session is discarded.
func (s *Service) UploadVideo(ctx context.Context, id, filename string, r io.Reader) (*Session, error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyUpload
	}
	head = head[:n]

	if mtype := mimetype.Detect(head); !isMP4Video(mtype) {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, mtype.String())
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	if s.maxUploadBytes > 0 {
		body = &limitReader{r: body, remaining: s.maxUploadBytes}
	}

	err = s.runStep(ctx, sess, StepUpload, "storage", func(ctx context.Context) error {
		path, err := s.storage.Save(ctx, id, FileUploadedVideo, body)
		if err != nil {
			return err
		}

		duration, err := s.media.GetMediaDuration(ctx, path)
		if err != nil {
			s.logger.Warn("could not probe video duration",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
			duration = 0
		}

		sess.SetVideo(filepath.Base(filename), path, duration)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// ResizeVideo scales the uploaded video to height, keeping the aspect ratio.
// A height of zero uses the configured default. The resized copy replaces
// the session video and downstream results are discarded.
func (s *Service) ResizeVideo(ctx context.Context, id string, height int) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error {
		return s.resize(ctx, sess, height)
	})
}

// ExtractText pulls the audio track from the session video and runs the
// extractor on it.
func (s *Service) ExtractText(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error {
		return s.extract(ctx, sess)
	})
}

// TranslateText translates the extracted text into language, given as a
// catalogue name or code. The language is stored on the session for synthesis.
func (s *Service) TranslateText(ctx context.Context, id, language string) (*Session, error) {
	lang, err := translate.Lookup(language)
	if err != nil {
		return nil, err
	}
	return s.withSession(ctx, id, func(sess *Session) error {
		return s.translate(ctx, sess, lang)
	})
}

// SynthesizeAudio speaks the translated text in the session's language.
func (s *Service) SynthesizeAudio(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error {
		return s.synthesize(ctx, sess)
	})
}

// RunPipeline runs resize (optional), extract, translate and synthesize in
// order, stopping at the first failure.
func (s *Service) RunPipeline(ctx context.Context, id string, in PipelineInput) (*Session, error) {
	lang, err := translate.Lookup(in.Language)
	if err != nil {
		return nil, err
	}
	if in.Height < 0 {
		return nil, fmt.Errorf("%w: height=%d", media.ErrInvalidHeight, in.Height)
	}

	return s.withSession(ctx, id, func(sess *Session) error {
		if err := sess.Require(StageUploaded); err != nil {
			return err
		}
		if in.Resize {
			if err := s.resize(ctx, sess, in.Height); err != nil {
				return err
			}
		}
		if err := s.extract(ctx, sess); err != nil {
			return err
		}
		if err := s.translate(ctx, sess, lang); err != nil {
			return err
		}
		return s.synthesize(ctx, sess)
	})
}

// OpenArtifact opens a finished download. Both artifacts require the
// session to be synthesized.
func (s *Service) OpenArtifact(ctx context.Context, id string, kind Artifact) (*Download, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var path, name, contentType string
	switch kind {
	case ArtifactVideo:
		path, name, contentType = sess.VideoPath, DownloadVideoName, "video/mp4"
	case ArtifactAudio:
		path, name, contentType = sess.SynthAudioPath, DownloadAudioName, "audio/mpeg"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownArtifact, kind)
	}

	if err := sess.Require(StageSynthesized); err != nil {
		return nil, err
	}

	body, err := s.storage.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	d := &Download{Name: name, ContentType: contentType, Size: -1, Body: body}
	if f, ok := body.(*os.File); ok {
		if info, err := f.Stat(); err == nil {
			d.Size = info.Size()
		}
	}
	return d, nil
}

// Publish uploads both downloads to object storage and records their URLs.
func (s *Service) Publish(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error {
		if err := sess.Require(StageSynthesized); err != nil {
			return err
		}

		return s.runStep(ctx, sess, StepPublish, "storage", func(ctx context.Context) error {
			videoURL, err := s.publishFile(ctx, sess.VideoPath, objectKey(id, DownloadVideoName))
			if err != nil {
				return err
			}
			audioURL, err := s.publishFile(ctx, sess.SynthAudioPath, objectKey(id, DownloadAudioName))
			if err != nil {
				return err
			}
			return sess.SetPublished(videoURL, audioURL)
		})
	})
}

func (s *Service) publishFile(ctx context.Context, path, key string) (string, error) {
	f, err := s.storage.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return s.storage.Publish(ctx, key, f)
}

func objectKey(id, name string) string {
	return "sessions/" + id + "/" + name
}

// withSession loads a session under its lock, runs fn and returns a snapshot.
func (s *Service) withSession(ctx context.Context, id string, fn func(sess *Session) error) (*Session, error) {
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

func (s *Service) resize(ctx context.Context, sess *Session, height int) error {
	if height < 0 {
		return fmt.Errorf("%w: height=%d", media.ErrInvalidHeight, height)
	}
	if height == 0 {
		height = s.resizeHeight
	}
	if err := sess.Require(StageUploaded); err != nil {
		return err
	}

	return s.runStep(ctx, sess, StepResize, "ffmpeg", func(ctx context.Context) error {
		dir, err := s.storage.SessionDir(ctx, sess.ID)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, ResizedName(FileUploadedVideo))
		if err := s.media.Resize(ctx, sess.UploadPath, dst, height); err != nil {
			return err
		}
		return sess.SetResized(dst, height)
	})
}

func (s *Service) extract(ctx context.Context, sess *Session) error {
	if err := sess.Require(StageUploaded); err != nil {
		return err
	}

	return s.runStep(ctx, sess, StepExtract, s.extractor.Name(), func(ctx context.Context) error {
		dir, err := s.storage.SessionDir(ctx, sess.ID)
		if err != nil {
			return err
		}
		audioPath := filepath.Join(dir, FileAudio)
		if err := s.media.ExtractAudio(ctx, sess.VideoPath, audioPath); err != nil {
			return err
		}

		text, err := s.extractor.Extract(ctx, audioPath)
		if err != nil {
			return err
		}
		return sess.SetExtracted(audioPath, text)
	})
}

func (s *Service) translate(ctx context.Context, sess *Session, lang translate.Language) error {
	if err := sess.Require(StageExtracted); err != nil {
		return err
	}

	return s.runStep(ctx, sess, StepTranslate, s.translator.Name(), func(ctx context.Context) error {
		text, err := s.translator.Translate(ctx, sess.ExtractedText, lang)
		if err != nil {
			return err
		}
		return sess.SetTranslated(lang.Code, lang.Name, text)
	})
}

func (s *Service) synthesize(ctx context.Context, sess *Session) error {
	if err := sess.Require(StageTranslated); err != nil {
		return err
	}

	return s.runStep(ctx, sess, StepSynthesize, s.synthesizer.Name(), func(ctx context.Context) error {
		dir, err := s.storage.SessionDir(ctx, sess.ID)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, FileSynthAudio)
		if err := s.synthesizer.Synthesize(ctx, sess.TranslatedText, sess.Language, dst); err != nil {
			return err
		}
		return sess.SetSynthesized(dst)
	})
}

// runStep executes fn under the step timeout, records the outcome on the
// session and persists it. The session is saved even when fn fails.
func (s *Service) runStep(ctx context.Context, sess *Session, name StepName, provider string, fn func(ctx context.Context) error) error {
	logger := s.logger.With(
		slog.String("session_id", sess.ID),
		slog.String("step", string(name)),
		slog.String("provider", provider),
	)

	stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	rec := StepRecord{Name: name, Provider: provider, StartedAt: time.Now()}
	logger.Info("step started")

	err := fn(stepCtx)
	rec.CompletedAt = time.Now()

	if err != nil {
		switch {
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			err = fmt.Errorf("%w: %s after %s: %w", ErrStepTimeout, name, s.stepTimeout, err)
		case providerSteps[name] && ctx.Err() == nil:
			err = fmt.Errorf("%w: %s: %w", ErrStepFailed, name, err)
		}
		rec.Status = StepFailed
		rec.Error = err.Error()
		logger.Error("step failed",
			slog.Duration("elapsed", rec.CompletedAt.Sub(rec.StartedAt)),
			slog.String("error", err.Error()),
		)
	} else {
		rec.Status = StepSucceeded
		logger.Info("step completed",
			slog.Duration("elapsed", rec.CompletedAt.Sub(rec.StartedAt)),
			slog.String("stage", string(sess.GetStage())),
		)
	}

	sess.RecordStep(rec)
	if saveErr := s.repo.Save(context.WithoutCancel(ctx), sess); saveErr != nil {
		logger.Error("failed to save session", slog.String("error", saveErr.Error()))
		if err == nil {
			return saveErr
		}
	}
	return err
}

// isMP4Video reports whether m is MP4 or one of its video brands such as
// M4V. Image and audio brands of the same container are rejected.
func isMP4Video(m *mimetype.MIME) bool {
	if !strings.HasPrefix(m.String(), "video/") {
		return false
	}
	for ; m != nil; m = m.Parent() {
		if m.Is("video/mp4") {
			return true
		}
	}
	return false
}

// limitReader fails with ErrUploadTooLarge once more than remaining bytes are read.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, ErrUploadTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
