package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/service/resolution"
	"github.com/cardline/backend/pkg/utils"
)

// defaultTestTranscript drives the self-test endpoint when no transcript is
// supplied.
const defaultTestTranscript = "I was charged $45 at Acme Corp and I want a refund"

// ResolutionService abstracts the pipeline so handlers stay testable.
type ResolutionService interface {
	Begin(ctx context.Context, req resolution.IntakeRequest) (*resolution.IntakeResult, error)
	Handle(ctx context.Context, sessionID string) (*resolution.HandleResult, error)
	Summarize(ctx context.Context, sessionID string) (*resolution.Summary, error)
}

// Handler exposes the three-phase pipeline over HTTP.
type Handler struct {
	svc ResolutionService
}

// New creates the agent handler.
func New(svc ResolutionService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the agent endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/agent", func(agentRouter chi.Router) {
		agentRouter.Post("/voice-intake", h.handleVoiceIntake)
		agentRouter.Post("/call-handling", h.handleCallHandling)
		agentRouter.Post("/final-summary", h.handleFinalSummary)
		agentRouter.Post("/test-call", h.handleTestCall)
		agentRouter.Get("/ws/{customerID}", h.handleWebSocket)
	})
}

type intakeBody struct {
	CustomerID  string `json:"customerId"`
	CardLast4   string `json:"cardLast4"`
	Transcript  string `json:"transcript"`
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
}

type sessionBody struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleVoiceIntake(w http.ResponseWriter, r *http.Request) {
	var body intakeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.CustomerID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	result, err := h.svc.Begin(r.Context(), resolution.IntakeRequest{
		CustomerID:  body.CustomerID,
		CardLast4:   body.CardLast4,
		Transcript:  body.Transcript,
		AudioBase64: body.AudioBase64,
		MimeType:    body.MimeType,
	})
	if err != nil {
		h.respondPipelineError(w, "voice-intake", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCallHandling(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.decodeSessionID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Handle(r.Context(), sessionID)
	if err != nil {
		h.respondPipelineError(w, "call-handling", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleFinalSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.decodeSessionID(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summarize(r.Context(), sessionID)
	if err != nil {
		h.respondPipelineError(w, "final-summary", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

// handleTestCall runs the whole pipeline in one request so operators can
// exercise the flow without a telephony provider.
func (h *Handler) handleTestCall(w http.ResponseWriter, r *http.Request) {
	var body intakeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.CustomerID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "customerId is required")
		return
	}
	if strings.TrimSpace(body.Transcript) == "" {
		body.Transcript = defaultTestTranscript
	}

	ctx := r.Context()
	intake, err := h.svc.Begin(ctx, resolution.IntakeRequest{
		CustomerID: body.CustomerID,
		CardLast4:  body.CardLast4,
		Transcript: body.Transcript,
	})
	if err != nil {
		h.respondPipelineError(w, "test-call", err)
		return
	}

	handled, err := h.svc.Handle(ctx, intake.SessionID)
	if err != nil {
		h.respondPipelineError(w, "test-call", err)
		return
	}

	summary, err := h.svc.Summarize(ctx, intake.SessionID)
	if err != nil {
		h.respondPipelineError(w, "test-call", err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"intake":   intake,
		"handling": handled,
		"summary":  summary,
	})
}

func (h *Handler) decodeSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body sessionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(body.SessionID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return "", false
	}
	return body.SessionID, true
}

func (h *Handler) respondPipelineError(w http.ResponseWriter, op string, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, resolution.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, resolution.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, resolution.ErrEmptyInput):
		status = http.StatusBadRequest
	case errors.Is(err, resolution.ErrUpstream):
		status = http.StatusBadGateway
	}

	log.Warn().Err(err).Str("op", op).Int("status", status).Msg("pipeline request failed")
	utils.RespondError(w, status, err.Error())
}
