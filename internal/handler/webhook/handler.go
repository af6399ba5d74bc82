// Package webhook receives telephony provider callbacks and dispatches
// function calls to the account actions.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/service/accounts"
	"github.com/cardline/backend/pkg/utils"
)

// AccountService is the subset of account actions reachable through
// telephony function calls.
type AccountService interface {
	VerifyCustomer(ctx context.Context, customerID, last4SSN string) (*accounts.VerificationResult, error)
	RequestFeeWaiver(ctx context.Context, customerID, cardLast4, feeType, reason string) (*accounts.FeeWaiverResult, error)
	ReportFraudAlert(ctx context.Context, customerID, cardLast4, suspiciousTransaction string) (*accounts.FraudAlertResult, error)
	OpenBillingDispute(ctx context.Context, customerID, cardLast4, merchant string, amount float64, transactionDate, reason string) (*accounts.DisputeResult, error)
	EscalateToHuman(ctx context.Context, topic, summary string) (*accounts.EscalationResult, error)
}

// Handler serves the telephony webhook endpoint.
type Handler struct {
	svc AccountService
}

// New creates the webhook handler.
func New(svc AccountService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/telephony/webhook", h.handleWebhook)
}

type webhookPayload struct {
	Message *webhookMessage `json:"message"`
}

type webhookMessage struct {
	Type            string        `json:"type"`
	Status          string        `json:"status"`
	DurationSeconds float64       `json:"durationSeconds"`
	Summary         string        `json:"summary"`
	FunctionCall    *functionCall `json:"functionCall"`
}

type functionCall struct {
	Name       string       `json:"name"`
	Parameters functionArgs `json:"parameters"`
}

// functionArgs mirrors the loose argument object of a provider function call.
type functionArgs struct {
	CustomerID            string  `json:"customerId"`
	Last4SSN              string  `json:"last4Ssn"`
	CardLast4             string  `json:"cardLast4"`
	FeeType               string  `json:"feeType"`
	Reason                string  `json:"reason"`
	Merchant              string  `json:"merchant"`
	Amount                float64 `json:"amount"`
	TransactionDate       string  `json:"transactionDate"`
	SuspiciousTransaction string  `json:"suspiciousTransaction"`
	Topic                 string  `json:"topic"`
	Summary               string  `json:"summary"`
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if payload.Message == nil {
		utils.RespondError(w, http.StatusBadRequest, "no message in webhook payload")
		return
	}

	msg := payload.Message
	switch msg.Type {
	case "function-call":
		h.handleFunctionCall(w, r, msg)
	case "status-update":
		log.Info().Str("status", msg.Status).Msg("call status update")
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": msg.Status})
	case "end-of-call-report":
		log.Info().Float64("durationSeconds", msg.DurationSeconds).Msg("call ended")
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":       true,
			"action":   "call-ended",
			"duration": msg.DurationSeconds,
			"summary":  msg.Summary,
		})
	case "hang":
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "action": "hang-acknowledged"})
	case "speech-update":
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "action": "speech-update-acknowledged"})
	default:
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "action": "unhandled-type", "type": msg.Type})
	}
}

func (h *Handler) handleFunctionCall(w http.ResponseWriter, r *http.Request, msg *webhookMessage) {
	if msg.FunctionCall == nil || msg.FunctionCall.Name == "" {
		utils.RespondError(w, http.StatusBadRequest, "missing function call")
		return
	}

	name := msg.FunctionCall.Name
	args := msg.FunctionCall.Parameters
	ctx := r.Context()

	var (
		result interface{}
		err    error
	)
	switch name {
	case "verify_customer":
		result, err = h.svc.VerifyCustomer(ctx, args.CustomerID, args.Last4SSN)
	case "request_fee_waiver":
		result, err = h.svc.RequestFeeWaiver(ctx, args.CustomerID, args.CardLast4, args.FeeType, args.Reason)
	case "report_fraud_alert":
		result, err = h.svc.ReportFraudAlert(ctx, args.CustomerID, args.CardLast4, args.SuspiciousTransaction)
	case "open_billing_dispute":
		result, err = h.svc.OpenBillingDispute(ctx, args.CustomerID, args.CardLast4,
			args.Merchant, args.Amount, args.TransactionDate, args.Reason)
	case "escalate_to_human":
		result, err = h.svc.EscalateToHuman(ctx, args.Topic, args.Summary)
	default:
		utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("unknown function: %s", name))
		return
	}

	if err != nil {
		log.Warn().Err(err).Str("function", name).Msg("webhook function call failed")
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}
