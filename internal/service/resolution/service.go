package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/analysis/issue"
	"github.com/cardline/backend/internal/model/customer"
	"github.com/cardline/backend/internal/model/session"
	speechmodel "github.com/cardline/backend/internal/model/speech"
	"github.com/cardline/backend/internal/service/accounts"
)

// defaultDisputeAmount is charged into a dispute when no amount can be
// extracted from the transcript.
const defaultDisputeAmount = 89.99

// SpeechClient abstracts the remote speech capability for testing.
type SpeechClient interface {
	Transcribe(ctx context.Context, req *speechmodel.TranscribeRequest) (*speechmodel.Transcription, error)
	ProcessVoiceChain(ctx context.Context, req *speechmodel.ChainRequest) (*speechmodel.ChainResult, error)
	ChainConfigured() bool
}

// AccountActions abstracts the account-action collaborator.
type AccountActions interface {
	RequestFeeWaiver(ctx context.Context, customerID, cardLast4, feeType, reason string) (*accounts.FeeWaiverResult, error)
	ReportFraudAlert(ctx context.Context, customerID, cardLast4, suspiciousTransaction string) (*accounts.FraudAlertResult, error)
	OpenBillingDispute(ctx context.Context, customerID, cardLast4, merchant string, amount float64, transactionDate, reason string) (*accounts.DisputeResult, error)
}

// Service is the voice-intake resolution pipeline: Begin resolves a
// transcript and opens a session, Handle dispatches the resolution action,
// Summarize renders the final case summary.
type Service struct {
	sessions  *SessionStore
	customers customer.Store
	speech    SpeechClient
	actions   AccountActions
}

// NewService wires the pipeline.
func NewService(sessions *SessionStore, customers customer.Store, speech SpeechClient, actions AccountActions) *Service {
	return &Service{
		sessions:  sessions,
		customers: customers,
		speech:    speech,
		actions:   actions,
	}
}

// IntakeRequest is the input to Begin. Either Transcript or AudioBase64
// must be present.
type IntakeRequest struct {
	CustomerID  string `json:"customerId"`
	CardLast4   string `json:"cardLast4,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
	AudioBase64 string `json:"audioBase64,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// IntakeResult reports the opened session.
type IntakeResult struct {
	SessionID  string                   `json:"sessionId"`
	CustomerID string                   `json:"customerId"`
	CardLast4  string                   `json:"cardLast4"`
	IssueType  session.IssueType        `json:"issueType"`
	Transcript string                   `json:"transcript"`
	STTUsed    bool                     `json:"sttUsed"`
	Chain      *speechmodel.ChainResult `json:"chainResponse,omitempty"`
}

// HandleResult reports the dispatched resolution.
type HandleResult struct {
	SessionID  string              `json:"sessionId"`
	Status     session.Status      `json:"status"`
	IssueType  session.IssueType   `json:"issueType"`
	Resolution *session.Resolution `json:"resolution"`
}

// Begin resolves a transcript from the request, classifies the issue and
// opens a new session in intake_complete. No session is created on failure.
func (s *Service) Begin(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	cust, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %s", ErrNotFound, req.CustomerID)
		}
		return nil, err
	}

	cardLast4, err := pickCardLast4(cust, req.CardLast4)
	if err != nil {
		return nil, err
	}

	acq, err := s.acquireTranscript(ctx, req)
	if err != nil {
		return nil, err
	}

	sess := session.Session{
		ID:         "sess_" + uuid.NewString()[:8],
		CustomerID: req.CustomerID,
		CardLast4:  cardLast4,
		Transcript: acq.text,
		IssueType:  issue.Classify(acq.text),
		Status:     session.StatusIntakeComplete,
		CreatedAt:  time.Now().UTC(),
	}
	s.sessions.Create(sess)

	log.Info().Str("sessionId", sess.ID).Str("customerId", sess.CustomerID).
		Str("issueType", string(sess.IssueType)).Bool("sttUsed", acq.sttUsed).
		Msg("voice intake complete")

	return &IntakeResult{
		SessionID:  sess.ID,
		CustomerID: sess.CustomerID,
		CardLast4:  sess.CardLast4,
		IssueType:  sess.IssueType,
		Transcript: sess.Transcript,
		STTUsed:    acq.sttUsed,
		Chain:      acq.chain,
	}, nil
}

// Handle claims the session, dispatches the account action for its issue
// type and records the resolution. A concurrent Handle on the same session
// loses the claim and fails with ErrInvalidState before any action runs.
func (s *Service) Handle(ctx context.Context, sessionID string) (*HandleResult, error) {
	sess, err := s.sessions.Claim(sessionID, session.StatusIntakeComplete)
	if err != nil {
		return nil, err
	}

	resolution, err := s.dispatch(ctx, sess)
	if err != nil {
		s.sessions.Release(sessionID)
		return nil, err
	}

	updated, err := s.sessions.Complete(sessionID, func(sess *session.Session) {
		sess.Status = session.StatusCallHandled
		sess.Resolution = resolution
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("sessionId", sessionID).Str("issueType", string(updated.IssueType)).
		Msg("call handled")

	return &HandleResult{
		SessionID:  updated.ID,
		Status:     updated.Status,
		IssueType:  updated.IssueType,
		Resolution: updated.Resolution,
	}, nil
}

// Summarize renders the final case summary and advances the session to
// summary_ready. Summarizing before Handle fails with ErrInvalidState.
// The session moves to summary_ready only after the summary inputs are in
// hand, so a failed customer fetch leaves it retryable at call_handled.
func (s *Service) Summarize(ctx context.Context, sessionID string) (*Summary, error) {
	sess, err := s.sessions.Claim(sessionID, session.StatusCallHandled)
	if err != nil {
		return nil, err
	}

	cust, err := s.customers.GetByID(ctx, sess.CustomerID)
	if err != nil {
		s.sessions.Release(sessionID)
		if errors.Is(err, customer.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %s", ErrNotFound, sess.CustomerID)
		}
		return nil, err
	}

	if _, err := s.sessions.Complete(sessionID, func(sess *session.Session) {
		sess.Status = session.StatusSummaryReady
	}); err != nil {
		return nil, err
	}
	sess.Status = session.StatusSummaryReady

	return buildSummary(sess, cust), nil
}

func (s *Service) dispatch(ctx context.Context, sess session.Session) (*session.Resolution, error) {
	switch sess.IssueType {
	case session.IssueFeeWaiver:
		feeType := "annual"
		if strings.Contains(strings.ToLower(sess.Transcript), "late") {
			feeType = "late"
		}
		result, err := s.actions.RequestFeeWaiver(ctx, sess.CustomerID, sess.CardLast4, feeType,
			"Requested by voice agent after customer intake")
		if err != nil {
			return nil, fmt.Errorf("%w: fee waiver: %v", ErrUpstream, err)
		}
		return &session.Resolution{
			TicketID:     result.TicketID,
			Issuer:       result.Issuer,
			FeeType:      result.FeeType,
			Approved:     result.Approved,
			WaiverAmount: result.WaiverAmount,
		}, nil

	case session.IssueFraudAlert:
		result, err := s.actions.ReportFraudAlert(ctx, sess.CustomerID, sess.CardLast4, sess.Transcript)
		if err != nil {
			return nil, fmt.Errorf("%w: fraud alert: %v", ErrUpstream, err)
		}
		return &session.Resolution{
			CaseID:               result.CaseID,
			Issuer:               result.Issuer,
			TemporaryLockApplied: result.TemporaryLockApplied,
		}, nil

	default:
		amount, ok := issue.ExtractAmount(sess.Transcript)
		if !ok {
			amount = defaultDisputeAmount
		}
		result, err := s.actions.OpenBillingDispute(ctx, sess.CustomerID, sess.CardLast4,
			issue.ExtractMerchant(sess.Transcript), amount,
			time.Now().UTC().Format("2006-01-02"),
			"Captured from voice intake: "+sess.Transcript)
		if err != nil {
			return nil, fmt.Errorf("%w: billing dispute: %v", ErrUpstream, err)
		}
		return &session.Resolution{
			DisputeID:          result.DisputeID,
			Issuer:             result.Issuer,
			ExpectedWindowDays: result.ExpectedWindowDays,
			TemporaryCredit:    result.TemporaryCreditLikely,
		}, nil
	}
}

func pickCardLast4(cust *customer.Customer, preferred string) (string, error) {
	if preferred != "" {
		if cust.CardByLast4(preferred) == nil {
			return "", fmt.Errorf("%w: card %s for customer %s", ErrNotFound, preferred, cust.ID)
		}
		return preferred, nil
	}
	if len(cust.Cards) == 0 {
		return "", fmt.Errorf("%w: no card available for customer %s", ErrNotFound, cust.ID)
	}
	return cust.Cards[0].Last4, nil
}
