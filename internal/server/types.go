// Package server provides the HTTP server for the voice-over API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/voiceover-api/internal/session"
)

// ResizeRequest is the HTTP request body for resizing the session video.
type ResizeRequest struct {
	// Height is the output height. Zero or absent uses the default.
	Height int `json:"height" validate:"omitempty,min=1,max=4320"`
}

// TranslateRequest is the HTTP request body for translating the extracted text.
type TranslateRequest struct {
	// Language is a catalogue language name or code, e.g. "Spanish" or "es".
	Language string `json:"language" validate:"required"`
}

// PipelineRequest is the HTTP request body for running every step at once.
type PipelineRequest struct {
	// Language is a catalogue language name or code.
	Language string `json:"language" validate:"required"`
	// Resize runs the resize step before extraction.
	Resize bool `json:"resize"`
	// Height is the resize height. Zero or absent uses the default.
	Height int `json:"height" validate:"omitempty,min=1,max=4320"`
}

// StepResponse is one entry of a session's step history.
type StepResponse struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Provider    string    `json:"provider,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionResponse is the HTTP representation of a session.
// File system paths are not exposed.
type SessionResponse struct {
	// ID is the unique identifier for the session.
	ID string `json:"id"`
	// Stage is the furthest completed step.
	Stage string `json:"stage"`
	// OriginalName is the client-side name of the uploaded video.
	OriginalName string `json:"original_name,omitempty"`
	// DurationSec is the probed video duration.
	DurationSec float64 `json:"duration_sec,omitempty"`
	// Resized indicates the session video is a resized copy.
	Resized bool `json:"resized"`
	// ResizeHeight is the height of the resized copy.
	ResizeHeight int `json:"resize_height,omitempty"`
	// ExtractedText is the extracted text.
	ExtractedText string `json:"extracted_text,omitempty"`
	// Language is the translation target code.
	Language string `json:"language,omitempty"`
	// LanguageName is the translation target name.
	LanguageName string `json:"language_name,omitempty"`
	// TranslatedText is the translated text.
	TranslatedText string `json:"translated_text,omitempty"`
	// Downloads lists the download URLs once synthesis has completed.
	Downloads *DownloadsResponse `json:"downloads,omitempty"`
	// Error contains the message of the last failed step.
	Error string `json:"error,omitempty"`
	// Steps is the step history, oldest first.
	Steps []StepResponse `json:"steps"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the session was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// DownloadsResponse links the finished files of a session.
type DownloadsResponse struct {
	// Video is the API path of the video download.
	Video string `json:"video"`
	// Audio is the API path of the synthesized audio download.
	Audio string `json:"audio"`
	// VideoURL is the object storage URL of the video, once published.
	VideoURL string `json:"video_url,omitempty"`
	// AudioURL is the object storage URL of the audio, once published.
	AudioURL string `json:"audio_url,omitempty"`
}

// SessionListResponse is the HTTP response for listing sessions.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// LanguageResponse describes one supported target language.
type LanguageResponse struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// LanguagesResponse is the HTTP response for the language catalogue.
type LanguagesResponse struct {
	Languages []LanguageResponse `json:"languages"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// newSessionResponse converts a domain session to its HTTP representation.
func newSessionResponse(s *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:             s.ID,
		Stage:          string(s.Stage),
		OriginalName:   s.OriginalName,
		DurationSec:    s.DurationSec,
		Resized:        s.Resized,
		ResizeHeight:   s.ResizeHeight,
		ExtractedText:  s.ExtractedText,
		Language:       s.Language,
		LanguageName:   s.LanguageName,
		TranslatedText: s.TranslatedText,
		Error:          s.Error,
		Steps:          make([]StepResponse, 0, len(s.Steps)),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	for _, st := range s.Steps {
		resp.Steps = append(resp.Steps, StepResponse{
			Name:        string(st.Name),
			Status:      string(st.Status),
			Provider:    st.Provider,
			Error:       st.Error,
			StartedAt:   st.StartedAt,
			CompletedAt: st.CompletedAt,
		})
	}

	if s.Stage.AtLeast(session.StageSynthesized) {
		resp.Downloads = &DownloadsResponse{
			Video:    "/sessions/" + s.ID + "/download/video",
			Audio:    "/sessions/" + s.ID + "/download/audio",
			VideoURL: s.VideoURL,
			AudioURL: s.AudioURL,
		}
	}
	return resp
}
