// Package voice exposes the raw speech endpoints for clients that want
// transcription or synthesis without the resolution pipeline.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	speechmodel "github.com/cardline/backend/internal/model/speech"
	speechsvc "github.com/cardline/backend/internal/service/speech"
	"github.com/cardline/backend/pkg/utils"
)

// SpeechService abstracts the speech client for testing.
type SpeechService interface {
	Transcribe(ctx context.Context, req *speechmodel.TranscribeRequest) (*speechmodel.Transcription, error)
	Synthesize(ctx context.Context, req *speechmodel.SynthesizeRequest) (*speechmodel.Synthesis, error)
	ProcessVoiceChain(ctx context.Context, req *speechmodel.ChainRequest) (*speechmodel.ChainResult, error)
}

// Handler serves the speech passthrough endpoints.
type Handler struct {
	svc SpeechService
}

// New creates the voice handler.
func New(svc SpeechService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the voice endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/voice", func(voiceRouter chi.Router) {
		voiceRouter.Post("/transcribe", h.handleTranscribe)
		voiceRouter.Post("/synthesize", h.handleSynthesize)
		voiceRouter.Post("/chain", h.handleChain)
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req speechmodel.TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Transcribe(r.Context(), &req)
	if err != nil {
		h.respondSpeechError(w, "transcribe", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"text": result.Text,
		"raw":  result.Raw,
	})
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speechmodel.SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.svc.Synthesize(r.Context(), &req)
	if err != nil {
		h.respondSpeechError(w, "synthesize", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Raw); err != nil {
		log.Warn().Err(err).Msg("failed to write synthesis response")
	}
}

func (h *Handler) handleChain(w http.ResponseWriter, r *http.Request) {
	var req speechmodel.ChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ProcessVoiceChain(r.Context(), &req)
	if err != nil {
		h.respondSpeechError(w, "chain", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondSpeechError(w http.ResponseWriter, op string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, speechsvc.ErrMissingAudio):
		status = http.StatusBadRequest
	case errors.Is(err, speechsvc.ErrMissingAPIKey), errors.Is(err, speechsvc.ErrChainNotConfigured):
		status = http.StatusServiceUnavailable
	}

	log.Warn().Err(err).Str("op", op).Msg("speech request failed")
	utils.RespondError(w, status, err.Error())
}
