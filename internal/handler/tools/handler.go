// Package tools exposes the account actions as standalone HTTP endpoints so
// a telephony provider can invoke them as function tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/model/customer"
	"github.com/cardline/backend/internal/service/accounts"
	"github.com/cardline/backend/pkg/utils"
)

// AccountService abstracts the account actions for testing.
type AccountService interface {
	VerifyCustomer(ctx context.Context, customerID, last4SSN string) (*accounts.VerificationResult, error)
	ListCards(ctx context.Context, customerID string) ([]accounts.CardSummary, error)
	ListTransactions(ctx context.Context, customerID, cardLast4 string) ([]customer.Transaction, error)
	FlagTransaction(ctx context.Context, customerID, transactionID, reason string) (*accounts.FlagResult, error)
	RequestFeeWaiver(ctx context.Context, customerID, cardLast4, feeType, reason string) (*accounts.FeeWaiverResult, error)
	ReportFraudAlert(ctx context.Context, customerID, cardLast4, suspiciousTransaction string) (*accounts.FraudAlertResult, error)
	OpenBillingDispute(ctx context.Context, customerID, cardLast4, merchant string, amount float64, transactionDate, reason string) (*accounts.DisputeResult, error)
	EscalateToHuman(ctx context.Context, topic, summary string) (*accounts.EscalationResult, error)
}

// Handler serves the tool endpoints.
type Handler struct {
	svc AccountService
}

// New creates the tools handler.
func New(svc AccountService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the tool endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tools", func(toolsRouter chi.Router) {
		toolsRouter.Post("/verify-customer", h.handleVerifyCustomer)
		toolsRouter.Post("/list-cards", h.handleListCards)
		toolsRouter.Post("/list-transactions", h.handleListTransactions)
		toolsRouter.Post("/flag-transaction", h.handleFlagTransaction)
		toolsRouter.Post("/request-fee-waiver", h.handleRequestFeeWaiver)
		toolsRouter.Post("/report-fraud-alert", h.handleReportFraudAlert)
		toolsRouter.Post("/open-billing-dispute", h.handleOpenBillingDispute)
		toolsRouter.Post("/escalate-to-human", h.handleEscalateToHuman)
	})
}

// toolRequest is the union of every tool's arguments, mirroring the loose
// argument objects a telephony function call sends.
type toolRequest struct {
	CustomerID            string  `json:"customerId"`
	Last4SSN              string  `json:"last4Ssn"`
	CardLast4             string  `json:"cardLast4"`
	TransactionID         string  `json:"transactionId"`
	FeeType               string  `json:"feeType"`
	Reason                string  `json:"reason"`
	Merchant              string  `json:"merchant"`
	Amount                float64 `json:"amount"`
	TransactionDate       string  `json:"transactionDate"`
	SuspiciousTransaction string  `json:"suspiciousTransaction"`
	Topic                 string  `json:"topic"`
	Summary               string  `json:"summary"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*toolRequest, bool) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

func (h *Handler) handleVerifyCustomer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "customerId is required")
		return
	}

	result, err := h.svc.VerifyCustomer(r.Context(), req.CustomerID, req.Last4SSN)
	if err != nil {
		h.respondToolError(w, "verify-customer", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListCards(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	cards, err := h.svc.ListCards(r.Context(), req.CustomerID)
	if err != nil {
		h.respondToolError(w, "list-cards", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	transactions, err := h.svc.ListTransactions(r.Context(), req.CustomerID, req.CardLast4)
	if err != nil {
		h.respondToolError(w, "list-transactions", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

func (h *Handler) handleFlagTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "transactionId is required")
		return
	}

	result, err := h.svc.FlagTransaction(r.Context(), req.CustomerID, req.TransactionID, req.Reason)
	if err != nil {
		h.respondToolError(w, "flag-transaction", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRequestFeeWaiver(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.svc.RequestFeeWaiver(r.Context(), req.CustomerID, req.CardLast4, req.FeeType, req.Reason)
	if err != nil {
		h.respondToolError(w, "request-fee-waiver", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleReportFraudAlert(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ReportFraudAlert(r.Context(), req.CustomerID, req.CardLast4, req.SuspiciousTransaction)
	if err != nil {
		h.respondToolError(w, "report-fraud-alert", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleOpenBillingDispute(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.svc.OpenBillingDispute(r.Context(), req.CustomerID, req.CardLast4,
		req.Merchant, req.Amount, req.TransactionDate, req.Reason)
	if err != nil {
		h.respondToolError(w, "open-billing-dispute", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleEscalateToHuman(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.svc.EscalateToHuman(r.Context(), req.Topic, req.Summary)
	if err != nil {
		h.respondToolError(w, "escalate-to-human", err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondToolError(w http.ResponseWriter, tool string, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, customer.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, accounts.ErrCardNotFound):
		status = http.StatusNotFound
	}

	log.Warn().Err(err).Str("tool", tool).Msg("tool call failed")
	utils.RespondError(w, status, err.Error())
}
