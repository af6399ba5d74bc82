package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/model/customer"
)

// ErrCardNotFound means the customer has no card with the given last4.
var ErrCardNotFound = errors.New("card not found")

// Service performs account actions against the customer store. Each action
// may mutate and persist the customer record; callers treat the returned
// result as opaque.
type Service struct {
	store customer.Store
}

// NewService creates the account actions service.
func NewService(store customer.Store) *Service {
	return &Service{store: store}
}

// VerificationResult is the outcome of an identity check.
type VerificationResult struct {
	Verified bool              `json:"verified"`
	Reason   string            `json:"reason"`
	Customer *CustomerIdentity `json:"customer,omitempty"`
}

// CustomerIdentity is the subset of the record safe to hand to the caller.
type CustomerIdentity struct {
	CustomerID string `json:"customerId"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
}

// FeeWaiverResult is returned by RequestFeeWaiver.
type FeeWaiverResult struct {
	TicketID       string  `json:"ticketId"`
	Issuer         string  `json:"issuer"`
	CardLast4      string  `json:"cardLast4"`
	FeeType        string  `json:"feeType"`
	Approved       bool    `json:"approved"`
	WaiverAmount   float64 `json:"waiverAmount"`
	ReasonProvided string  `json:"reasonProvided"`
}

// FraudAlertResult is returned by ReportFraudAlert.
type FraudAlertResult struct {
	CaseID                string `json:"caseId"`
	Issuer                string `json:"issuer"`
	CardLast4             string `json:"cardLast4"`
	TemporaryLockApplied  bool   `json:"temporaryLockApplied"`
	SuspiciousTransaction string `json:"suspiciousTransaction"`
}

// DisputeResult is returned by OpenBillingDispute.
type DisputeResult struct {
	DisputeID             string `json:"disputeId"`
	Issuer                string `json:"issuer"`
	ExpectedWindowDays    int    `json:"expectedResolutionWindowDays"`
	TemporaryCreditLikely bool   `json:"temporaryCreditLikely"`
}

// FlagResult is returned by FlagTransaction.
type FlagResult struct {
	CaseID               string `json:"caseId"`
	TransactionID        string `json:"transactionId"`
	CardLast4            string `json:"cardLast4"`
	Issuer               string `json:"issuer"`
	TemporaryLockApplied bool   `json:"temporaryLockApplied"`
	Flagged              bool   `json:"flagged"`
}

// EscalationResult is returned by EscalateToHuman.
type EscalationResult struct {
	Escalated  bool   `json:"escalated"`
	Queue      string `json:"queue"`
	EtaMinutes int    `json:"etaMinutes"`
	Topic      string `json:"topic"`
	Summary    string `json:"summary"`
}

// CardSummary is the card view exposed by ListCards.
type CardSummary struct {
	Issuer      string `json:"issuer"`
	Nickname    string `json:"nickname"`
	CardLast4   string `json:"cardLast4"`
	Status      string `json:"status"`
	FraudLocked bool   `json:"fraudLocked"`
}

// VerifyCustomer checks the caller-supplied SSN last4 against the record.
// An unknown customer yields a negative result, not an error.
func (s *Service) VerifyCustomer(ctx context.Context, customerID, last4SSN string) (*VerificationResult, error) {
	c, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return &VerificationResult{Verified: false, Reason: "customer_not_found"}, nil
		}
		return nil, err
	}

	if c.Last4SSN != last4SSN {
		return &VerificationResult{Verified: false, Reason: "mismatch"}, nil
	}

	return &VerificationResult{
		Verified: true,
		Reason:   "ok",
		Customer: &CustomerIdentity{CustomerID: c.ID, FullName: c.FullName, Phone: c.Phone},
	}, nil
}

// ListCards returns the cards on file.
func (s *Service) ListCards(ctx context.Context, customerID string) ([]CardSummary, error) {
	cards, err := s.store.ListCards(ctx, customerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]CardSummary, 0, len(cards))
	for _, card := range cards {
		summaries = append(summaries, CardSummary{
			Issuer:      card.Issuer,
			Nickname:    card.Nickname,
			CardLast4:   card.Last4,
			Status:      card.Status,
			FraudLocked: card.FraudLocked,
		})
	}
	return summaries, nil
}

// ListTransactions returns posted transactions, optionally filtered by card.
func (s *Service) ListTransactions(ctx context.Context, customerID, cardLast4 string) ([]customer.Transaction, error) {
	c, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if cardLast4 == "" {
		return c.Transactions, nil
	}
	filtered := make([]customer.Transaction, 0, len(c.Transactions))
	for _, tx := range c.Transactions {
		if tx.CardLast4 == cardLast4 {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}

// FlagTransaction marks a transaction as suspicious and fraud-locks its card.
func (s *Service) FlagTransaction(ctx context.Context, customerID, transactionID, reason string) (*FlagResult, error) {
	c, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var tx *customer.Transaction
	for i := range c.Transactions {
		if c.Transactions[i].TransactionID == transactionID {
			tx = &c.Transactions[i]
			break
		}
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction not found: %s", transactionID)
	}

	if reason == "" {
		reason = "customer_reported"
	}
	tx.Flagged = true
	tx.FlagReason = reason
	tx.FlaggedAt = time.Now().UTC()

	card := c.CardByLast4(tx.CardLast4)
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, tx.CardLast4)
	}
	card.FraudLocked = true

	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}

	return &FlagResult{
		CaseID:               newActionID("fraud"),
		TransactionID:        tx.TransactionID,
		CardLast4:            tx.CardLast4,
		Issuer:               card.Issuer,
		TemporaryLockApplied: true,
		Flagged:              true,
	}, nil
}

// RequestFeeWaiver applies the waiver policy: late fees are waivable while
// any are outstanding, annual fees while one is charged (capped at 200).
// Approved late waivers are debited from the card immediately.
func (s *Service) RequestFeeWaiver(ctx context.Context, customerID, cardLast4, feeType, reason string) (*FeeWaiverResult, error) {
	c, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	card := c.CardByLast4(cardLast4)
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardLast4)
	}

	// Providers send fee types in mixed case.
	feeType = strings.ToLower(feeType)
	if feeType == "" {
		feeType = "annual"
	}

	approved := (feeType == "late" && card.LateFeesYtd > 0) ||
		(feeType == "annual" && card.AnnualFee > 0)

	amount := card.AnnualFee
	if feeType == "late" {
		amount = card.LateFeesYtd
	}
	var waiverAmount float64
	if approved {
		waiverAmount = amount
		if feeType == "annual" && waiverAmount > 200 {
			waiverAmount = 200
		}
	}

	if reason == "" {
		reason = "No reason provided"
	}

	result := &FeeWaiverResult{
		TicketID:       newActionID("fee"),
		Issuer:         card.Issuer,
		CardLast4:      cardLast4,
		FeeType:        feeType,
		Approved:       approved,
		WaiverAmount:   waiverAmount,
		ReasonProvided: reason,
	}

	if approved && feeType == "late" {
		card.LateFeesYtd -= waiverAmount
		if card.LateFeesYtd < 0 {
			card.LateFeesYtd = 0
		}
		if err := s.store.Save(ctx, c); err != nil {
			return nil, err
		}
	}

	log.Info().Str("customerId", customerID).Str("feeType", feeType).
		Bool("approved", approved).Msg("fee waiver processed")

	return result, nil
}

// ReportFraudAlert fraud-locks the card and opens a case.
func (s *Service) ReportFraudAlert(ctx context.Context, customerID, cardLast4, suspiciousTransaction string) (*FraudAlertResult, error) {
	c, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	card := c.CardByLast4(cardLast4)
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardLast4)
	}

	card.FraudLocked = true
	caseID := newActionID("fraud")
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}

	log.Info().Str("customerId", customerID).Str("caseId", caseID).Msg("fraud alert filed")

	return &FraudAlertResult{
		CaseID:                caseID,
		Issuer:                card.Issuer,
		CardLast4:             cardLast4,
		TemporaryLockApplied:  true,
		SuspiciousTransaction: suspiciousTransaction,
	}, nil
}

// OpenBillingDispute records a dispute against the customer and returns the
// expected review window.
func (s *Service) OpenBillingDispute(ctx context.Context, customerID, cardLast4, merchant string, amount float64, transactionDate, reason string) (*DisputeResult, error) {
	c, err := s.store.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	card := c.CardByLast4(cardLast4)
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardLast4)
	}

	disputeID := newActionID("disp")
	c.OpenDisputes = append(c.OpenDisputes, customer.Dispute{
		DisputeID:       disputeID,
		CardID:          card.CardID,
		CardLast4:       cardLast4,
		Merchant:        merchant,
		Amount:          amount,
		TransactionDate: transactionDate,
		Reason:          reason,
		Status:          "submitted",
		CreatedAt:       time.Now().UTC(),
	})
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}

	log.Info().Str("customerId", customerID).Str("disputeId", disputeID).
		Str("merchant", merchant).Float64("amount", amount).Msg("billing dispute opened")

	return &DisputeResult{
		DisputeID:             disputeID,
		Issuer:                card.Issuer,
		ExpectedWindowDays:    10,
		TemporaryCreditLikely: amount >= 50,
	}, nil
}

// EscalateToHuman queues the case for a human advocate.
func (s *Service) EscalateToHuman(_ context.Context, topic, summary string) (*EscalationResult, error) {
	return &EscalationResult{
		Escalated:  true,
		Queue:      "credit_card_advocacy",
		EtaMinutes: 15,
		Topic:      topic,
		Summary:    summary,
	}, nil
}

func newActionID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
