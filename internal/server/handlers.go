package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/voiceover-api/internal/media"
	"github.com/maauso/voiceover-api/internal/session"
	"github.com/maauso/voiceover-api/internal/session/id"
	"github.com/maauso/voiceover-api/internal/speech"
	"github.com/maauso/voiceover-api/internal/storage"
	"github.com/maauso/voiceover-api/internal/translate"
)

// uploadFormField is the multipart field carrying the video.
const uploadFormField = "file"

// multipartOverhead is added to the upload limit for multipart framing.
const multipartOverhead = 1 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *session.Service
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes caps the request body of video uploads.
// Zero disables the cap.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		h.maxUploadBytes = n
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *session.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListLanguages handles GET /languages requests.
func (h *Handlers) ListLanguages(w http.ResponseWriter, _ *http.Request) {
	langs := translate.Languages()
	resp := LanguagesResponse{Languages: make([]LanguageResponse, 0, len(langs))}
	for _, l := range langs {
		resp.Languages = append(resp.Languages, LanguageResponse{Name: l.Name, Code: l.Code})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSession handles POST /sessions requests.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.handleError(w, r, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// ListSessions handles GET /sessions requests.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		h.handleError(w, r, "list sessions", err)
		return
	}

	resp := SessionListResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, newSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequireSessionID answers 404 for {id} path values that cannot name a session.
func (h *Handlers) RequireSessionID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !id.Valid(r.PathValue("id")) {
			writeError(w, http.StatusNotFound, session.ErrSessionNotFound.Error(), "SESSION_NOT_FOUND")
			return
		}
		next(w, r)
	}
}

// GetSession handles GET /sessions/{id} requests.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// DeleteSession handles DELETE /sessions/{id} requests.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		h.handleError(w, r, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadVideo handles PUT /sessions/{id}/video requests.
// The video is streamed from the multipart field "file".
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart/form-data body", "INVALID_UPLOAD")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "missing form field \""+uploadFormField+"\"", "INVALID_UPLOAD")
			return
		}
		if err != nil {
			h.handleError(w, r, "read upload", err)
			return
		}
		if part.FormName() != uploadFormField {
			_ = part.Close()
			continue
		}

		sess, err := h.service.UploadVideo(r.Context(), r.PathValue("id"), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			h.handleError(w, r, "upload video", err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(sess))
		return
	}
}

// ResizeVideo handles POST /sessions/{id}/resize requests.
// The body is optional.
func (h *Handlers) ResizeVideo(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	sess, err := h.service.ResizeVideo(r.Context(), r.PathValue("id"), req.Height)
	if err != nil {
		h.handleError(w, r, "resize video", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// ExtractText handles POST /sessions/{id}/extract requests.
func (h *Handlers) ExtractText(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.ExtractText(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, "extract text", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// TranslateText handles POST /sessions/{id}/translate requests.
func (h *Handlers) TranslateText(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	sess, err := h.service.TranslateText(r.Context(), r.PathValue("id"), req.Language)
	if err != nil {
		h.handleError(w, r, "translate text", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// SynthesizeAudio handles POST /sessions/{id}/synthesize requests.
func (h *Handlers) SynthesizeAudio(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.SynthesizeAudio(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, "synthesize audio", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// RunPipeline handles POST /sessions/{id}/pipeline requests.
func (h *Handlers) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelineRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	sess, err := h.service.RunPipeline(r.Context(), r.PathValue("id"), session.PipelineInput{
		Language: req.Language,
		Resize:   req.Resize,
		Height:   req.Height,
	})
	if err != nil {
		h.handleError(w, r, "run pipeline", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// Publish handles POST /sessions/{id}/publish requests.
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Publish(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, "publish", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// DownloadVideo handles GET /sessions/{id}/download/video requests.
func (h *Handlers) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, session.ArtifactVideo)
}

// DownloadAudio handles GET /sessions/{id}/download/audio requests.
func (h *Handlers) DownloadAudio(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, session.ArtifactAudio)
}

func (h *Handlers) download(w http.ResponseWriter, r *http.Request, kind session.Artifact) {
	sessionID := r.PathValue("id")

	d, err := h.service.OpenArtifact(r.Context(), sessionID, kind)
	if err != nil {
		h.handleError(w, r, "open download", err)
		return
	}
	defer func() { _ = d.Body.Close() }()

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}))
	if d.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, d.Body); err != nil {
		h.logger.Warn("download interrupted",
			slog.String("session_id", sessionID),
			slog.String("artifact", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when optional is true. It writes the error response itself and
// reports whether the handler should continue.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !(optional && errors.Is(err, io.EOF)) {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// handleError maps domain errors to HTTP responses and logs unexpected ones.
func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed",
			slog.String("session_id", r.PathValue("id")),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = op + " failed"
	}
	writeError(w, status, msg, code)
}

// errorStatus returns the HTTP status and error code for err.
func errorStatus(err error) (int, string) {
	var (
		ffErr    *media.FFmpegError
		tooLarge *http.MaxBytesError
	)

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, session.ErrUnknownArtifact):
		return http.StatusNotFound, "UNKNOWN_ARTIFACT"

	case errors.Is(err, session.ErrVideoRequired):
		return http.StatusConflict, "VIDEO_REQUIRED"
	case errors.Is(err, session.ErrTextNotExtracted):
		return http.StatusConflict, "TEXT_NOT_EXTRACTED"
	case errors.Is(err, session.ErrTextNotTranslated):
		return http.StatusConflict, "TEXT_NOT_TRANSLATED"
	case errors.Is(err, session.ErrAudioNotSynthesized):
		return http.StatusConflict, "AUDIO_NOT_SYNTHESIZED"

	case errors.Is(err, translate.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "UNSUPPORTED_LANGUAGE"
	case errors.Is(err, session.ErrEmptyUpload):
		return http.StatusBadRequest, "EMPTY_UPLOAD"
	case errors.Is(err, media.ErrInvalidHeight):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, translate.ErrEmptyText), errors.Is(err, speech.ErrEmptyText):
		return http.StatusBadRequest, "EMPTY_TEXT"

	case errors.Is(err, session.ErrUploadTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"
	case errors.Is(err, session.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"

	case errors.Is(err, storage.ErrPublishNotConfigured):
		return http.StatusNotImplemented, "PUBLISH_NOT_CONFIGURED"

	case errors.Is(err, session.ErrStepTimeout):
		return http.StatusGatewayTimeout, "STEP_TIMEOUT"
	case errors.Is(err, translate.ErrUnavailable), errors.Is(err, speech.ErrUnavailable):
		return http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE"
	case errors.As(err, &ffErr), errors.Is(err, media.ErrFFprobeExecution):
		return http.StatusBadGateway, "MEDIA_PROCESSING_FAILED"
	case errors.Is(err, session.ErrStepFailed):
		return http.StatusBadGateway, "STEP_FAILED"
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
