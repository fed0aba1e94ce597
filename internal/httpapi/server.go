package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"chelouizer/internal/audio"
	"chelouizer/internal/domain"
	"chelouizer/internal/usecase"
)

// Controller is the slice of the application state machine exposed over HTTP.
type Controller interface {
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	SubmitText(ctx context.Context, text string) error
	SetManualText(text string)
	Reset() error
	SelectVoice(voice domain.Voice) error
	PlayVariation(ctx context.Context, id string) error
	Snapshot() domain.Snapshot
	Voices() []domain.VoiceOption
	LastRecording() (domain.AudioClip, bool)
}

// RequestRecorder records per-route request metrics.
type RequestRecorder interface {
	RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64)
}

type Server struct {
	controller Controller
	hub        *Hub
	metrics    http.Handler
	recorder   RequestRecorder
	logger     zerolog.Logger
	mux        *http.ServeMux
}

// NewServer wires the routes. metrics and recorder may be nil.
func NewServer(controller Controller, hub *Hub, metrics http.Handler, recorder RequestRecorder, logger zerolog.Logger) *Server {
	s := &Server{
		controller: controller,
		hub:        hub,
		metrics:    metrics,
		recorder:   recorder,
		logger:     logger.With().Str("component", "httpapi").Logger(),
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.handle("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.handle("GET /api/status", s.handleStatus)
	s.handle("GET /api/voices", s.handleVoices)
	s.handle("PUT /api/voice", s.handleSelectVoice)
	s.handle("PUT /api/text", s.handleManualText)
	s.handle("POST /api/text", s.handleSubmitText)
	s.handle("POST /api/recording/start", s.handleStartRecording)
	s.handle("POST /api/recording/stop", s.handleStopRecording)
	s.handle("GET /api/recording", s.handleLastRecording)
	s.handle("POST /api/variations/{id}/play", s.handlePlay)
	s.handle("POST /api/reset", s.handleReset)

	if s.hub != nil {
		s.mux.Handle("GET /api/events", s.hub)
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.withMetrics(pattern, handler))
}

// withMetrics wraps a handler with request metrics collection.
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if s.recorder == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)
		s.recorder.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), time.Since(started).Seconds())
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type voiceRequest struct {
	Voice string `json:"voice"`
}

type recordingResponse struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Voices())
}

func (s *Server) handleSelectVoice(w http.ResponseWriter, r *http.Request) {
	var body voiceRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, s.controller.SelectVoice(domain.Voice(body.Voice)), http.StatusOK)
}

func (s *Server) handleManualText(w http.ResponseWriter, r *http.Request) {
	var body textRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.controller.SetManualText(body.Text)
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleSubmitText(w http.ResponseWriter, r *http.Request) {
	var body textRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.respond(w, s.controller.SubmitText(r.Context(), body.Text), http.StatusAccepted)
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.controller.StartRecording(r.Context()), http.StatusOK)
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.controller.StopRecording(r.Context()), http.StatusAccepted)
}

func (s *Server) handleLastRecording(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.controller.LastRecording()
	if !ok {
		writeError(w, http.StatusNotFound, "no recording available")
		return
	}
	writeJSON(w, http.StatusOK, recordingResponse{MIMEType: clip.MIMEType, Data: audio.EncodeBase64(clip.Data)})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.controller.PlayVariation(r.Context(), r.PathValue("id")), http.StatusAccepted)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.controller.Reset(), http.StatusOK)
}

// respond writes the snapshot on success, or maps a controller error to a status code.
func (s *Server) respond(w http.ResponseWriter, err error, okStatus int) {
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).Int("status", status).Msg("request failed")
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, okStatus, s.controller.Snapshot())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrEmptyText), errors.Is(err, usecase.ErrUnknownVoice):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnknownVariation):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrMicrophoneUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
