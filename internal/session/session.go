// Package session provides the Session aggregate for the voice-over workflow.
// A session tracks one uploaded video through resize, text extraction,
// translation and speech synthesis, and exposes the finished files.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/voiceover-api/internal/session/id"
)

// Stage represents how far a Session has progressed.
// Stages are ordered: CREATED < UPLOADED < EXTRACTED < TRANSLATED < SYNTHESIZED.
type Stage string

const (
	// StageCreated indicates no video has been uploaded yet.
	StageCreated Stage = "CREATED"
	// StageUploaded indicates a video is available (possibly resized).
	StageUploaded Stage = "UPLOADED"
	// StageExtracted indicates audio and text have been extracted.
	StageExtracted Stage = "EXTRACTED"
	// StageTranslated indicates the text has been translated.
	StageTranslated Stage = "TRANSLATED"
	// StageSynthesized indicates speech audio is ready for download.
	StageSynthesized Stage = "SYNTHESIZED"
)

var stageOrder = map[Stage]int{
	StageCreated:     0,
	StageUploaded:    1,
	StageExtracted:   2,
	StageTranslated:  3,
	StageSynthesized: 4,
}

// AtLeast reports whether s is at or beyond other.
func (s Stage) AtLeast(other Stage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// File names inside a session directory.
const (
	FileUploadedVideo = "uploaded_video.mp4"
	FileAudio         = "output_audio.wav"
	FileSynthAudio    = "output_synth.mp3"
)

// Download names offered to clients.
const (
	DownloadVideoName = "output_video.mp4"
	DownloadAudioName = "output_audio.mp3"
)

// ResizedName returns the file name of the resized copy of name.
func ResizedName(name string) string {
	return "resized_" + name
}

// Precondition errors returned when a step is requested out of order.
var (
	// ErrVideoRequired is returned when a step needs an uploaded video.
	ErrVideoRequired = errors.New("no video uploaded")
	// ErrTextNotExtracted is returned when translation runs before extraction.
	ErrTextNotExtracted = errors.New("text has not been extracted")
	// ErrTextNotTranslated is returned when synthesis runs before translation.
	ErrTextNotTranslated = errors.New("text has not been translated")
	// ErrAudioNotSynthesized is returned when downloads are requested before synthesis.
	ErrAudioNotSynthesized = errors.New("audio has not been synthesized")
)

// requirementErrors maps each stage to the error returned when it is missing.
var requirementErrors = map[Stage]error{
	StageUploaded:    ErrVideoRequired,
	StageExtracted:   ErrTextNotExtracted,
	StageTranslated:  ErrTextNotTranslated,
	StageSynthesized: ErrAudioNotSynthesized,
}

// StepName identifies a workflow step.
type StepName string

const (
	StepUpload     StepName = "upload"
	StepResize     StepName = "resize"
	StepExtract    StepName = "extract"
	StepTranslate  StepName = "translate"
	StepSynthesize StepName = "synthesize"
	StepPublish    StepName = "publish"
)

// StepStatus is the outcome of an executed step.
type StepStatus string

const (
	StepSucceeded StepStatus = "SUCCEEDED"
	StepFailed    StepStatus = "FAILED"
)

// maxSteps bounds the step history kept per session.
const maxSteps = 50

// StepRecord describes one executed step.
type StepRecord struct {
	Name        StepName   `json:"name"`
	Status      StepStatus `json:"status"`
	Provider    string     `json:"provider,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Session is the per-user workflow context.
type Session struct {
	mu sync.RWMutex

	// ID is the unique identifier for this session.
	ID string `json:"id"`
	// Stage is the furthest completed step.
	Stage Stage `json:"stage"`
	// OriginalName is the client-side file name of the upload.
	OriginalName string `json:"original_name,omitempty"`
	// UploadPath is the stored upload, kept unchanged by resizing.
	UploadPath string `json:"upload_path,omitempty"`
	// VideoPath is the current video: the upload or its resized copy.
	VideoPath string `json:"video_path,omitempty"`
	// DurationSec is the probed video duration, zero when unknown.
	DurationSec float64 `json:"duration_sec,omitempty"`
	// Resized indicates VideoPath is a resized copy.
	Resized bool `json:"resized"`
	// ResizeHeight is the output height of the last resize.
	ResizeHeight int `json:"resize_height,omitempty"`
	// AudioPath is the extracted WAV track.
	AudioPath string `json:"audio_path,omitempty"`
	// ExtractedText is the text produced by the extractor.
	ExtractedText string `json:"extracted_text,omitempty"`
	// Language is the catalogue code of the translation target.
	Language string `json:"language,omitempty"`
	// LanguageName is the display name of Language.
	LanguageName string `json:"language_name,omitempty"`
	// TranslatedText is the translator output.
	TranslatedText string `json:"translated_text,omitempty"`
	// SynthAudioPath is the synthesized MP3.
	SynthAudioPath string `json:"synth_audio_path,omitempty"`
	// VideoURL and AudioURL are set once the downloads are published.
	VideoURL string `json:"video_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	// Error holds the message of the last failed step.
	Error string `json:"error,omitempty"`
	// Steps is the history of executed steps, oldest first.
	Steps []StepRecord `json:"steps"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the session was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a new Session with a generated ID in CREATED stage.
func New() *Session {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Session with the specified ID in CREATED stage.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(sessionID string) *Session {
	now := time.Now()
	return &Session{
		ID:        sessionID,
		Stage:     StageCreated,
		Steps:     make([]StepRecord, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Require returns the precondition error for stage if the session has not
// reached it yet.
func (s *Session) Require(stage Stage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.require(stage)
}

func (s *Session) require(stage Stage) error {
	if s.Stage.AtLeast(stage) {
		return nil
	}
	if err, ok := requirementErrors[stage]; ok {
		return err
	}
	return nil
}

// GetStage returns the current stage (thread-safe).
func (s *Session) GetStage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stage
}

// SetVideo records a new upload. It is allowed from any stage and discards
// everything derived from a previous video.
func (s *Session) SetVideo(originalName, path string, durationSec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.OriginalName = originalName
	s.UploadPath = path
	s.VideoPath = path
	s.DurationSec = durationSec
	s.Resized = false
	s.ResizeHeight = 0
	s.clearAfter(StageUploaded)
	s.Stage = StageUploaded
	s.UpdatedAt = time.Now()
}

// SetResized makes the resized copy the session video.
// Returns ErrVideoRequired when no video has been uploaded.
func (s *Session) SetResized(path string, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(StageUploaded); err != nil {
		return err
	}

	s.VideoPath = path
	s.Resized = true
	s.ResizeHeight = height
	s.clearAfter(StageUploaded)
	s.Stage = StageUploaded
	s.UpdatedAt = time.Now()
	return nil
}

// SetExtracted stores the extracted audio and text.
// Returns ErrVideoRequired when no video has been uploaded.
func (s *Session) SetExtracted(audioPath, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(StageUploaded); err != nil {
		return err
	}

	s.clearAfter(StageUploaded)
	s.AudioPath = audioPath
	s.ExtractedText = text
	s.Stage = StageExtracted
	s.UpdatedAt = time.Now()
	return nil
}

// SetTranslated stores the translation and the language it targets.
// Returns ErrTextNotExtracted when extraction has not run.
func (s *Session) SetTranslated(langCode, langName, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(StageExtracted); err != nil {
		return err
	}

	s.clearAfter(StageExtracted)
	s.Language = langCode
	s.LanguageName = langName
	s.TranslatedText = text
	s.Stage = StageTranslated
	s.UpdatedAt = time.Now()
	return nil
}

// SetSynthesized stores the synthesized audio path.
// Returns ErrTextNotTranslated when translation has not run.
func (s *Session) SetSynthesized(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(StageTranslated); err != nil {
		return err
	}

	s.clearAfter(StageTranslated)
	s.SynthAudioPath = path
	s.Stage = StageSynthesized
	s.UpdatedAt = time.Now()
	return nil
}

// SetPublished stores the object storage URLs of both downloads.
// Returns ErrAudioNotSynthesized when synthesis has not run.
func (s *Session) SetPublished(videoURL, audioURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(StageSynthesized); err != nil {
		return err
	}

	s.VideoURL = videoURL
	s.AudioURL = audioURL
	s.UpdatedAt = time.Now()
	return nil
}

// clearAfter drops every field produced by the stages after stage. Caller holds mu.
func (s *Session) clearAfter(stage Stage) {
	if !stage.AtLeast(StageExtracted) {
		s.AudioPath = ""
		s.ExtractedText = ""
	}
	if !stage.AtLeast(StageTranslated) {
		s.Language = ""
		s.LanguageName = ""
		s.TranslatedText = ""
	}
	if !stage.AtLeast(StageSynthesized) {
		s.SynthAudioPath = ""
	}
	s.VideoURL = ""
	s.AudioURL = ""
}

// RecordStep appends a step record. A failed step sets Error; a successful
// one clears it.
func (s *Session) RecordStep(rec StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Steps = append(s.Steps, rec)
	if len(s.Steps) > maxSteps {
		s.Steps = s.Steps[len(s.Steps)-maxSteps:]
	}

	if rec.Status == StepFailed {
		s.Error = rec.Error
	} else {
		s.Error = ""
	}
	s.UpdatedAt = time.Now()
}

// Clone creates a deep copy of the session for safe reads.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := make([]StepRecord, len(s.Steps))
	copy(steps, s.Steps)

	return &Session{
		ID:             s.ID,
		Stage:          s.Stage,
		OriginalName:   s.OriginalName,
		UploadPath:     s.UploadPath,
		VideoPath:      s.VideoPath,
		DurationSec:    s.DurationSec,
		Resized:        s.Resized,
		ResizeHeight:   s.ResizeHeight,
		AudioPath:      s.AudioPath,
		ExtractedText:  s.ExtractedText,
		Language:       s.Language,
		LanguageName:   s.LanguageName,
		TranslatedText: s.TranslatedText,
		SynthAudioPath: s.SynthAudioPath,
		VideoURL:       s.VideoURL,
		AudioURL:       s.AudioURL,
		Error:          s.Error,
		Steps:          steps,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
