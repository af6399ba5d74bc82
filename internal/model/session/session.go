package session

import "time"

// Status tracks the resolution flow phase. Transitions are forward-only:
// intake_complete -> call_handled -> summary_ready.
type Status string

const (
	StatusIntakeComplete Status = "intake_complete"
	StatusCallHandled    Status = "call_handled"
	StatusSummaryReady   Status = "summary_ready"
)

// IssueType classifies the customer's complaint.
type IssueType string

const (
	IssueFraudAlert     IssueType = "fraud_alert"
	IssueBillingDispute IssueType = "billing_dispute"
	IssueFeeWaiver      IssueType = "fee_waiver"
)

// Session links one customer interaction across intake, handling and summary.
// IssueType is fixed at creation and never reclassified; Resolution is set
// exactly once when the call is handled.
type Session struct {
	ID         string      `json:"sessionId"`
	CustomerID string      `json:"customerId"`
	CardLast4  string      `json:"cardLast4"`
	Transcript string      `json:"transcript"`
	IssueType  IssueType   `json:"issueType"`
	Status     Status      `json:"status"`
	Resolution *Resolution `json:"resolution,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Resolution is the outcome produced by the dispatched account action.
// Exactly one of the identifier fields is populated depending on IssueType.
type Resolution struct {
	TicketID             string  `json:"ticketId,omitempty"`
	CaseID               string  `json:"caseId,omitempty"`
	DisputeID            string  `json:"disputeId,omitempty"`
	Issuer               string  `json:"issuer,omitempty"`
	Approved             bool    `json:"approved,omitempty"`
	WaiverAmount         float64 `json:"waiverAmount,omitempty"`
	FeeType              string  `json:"feeType,omitempty"`
	TemporaryLockApplied bool    `json:"temporaryLockApplied,omitempty"`
	ExpectedWindowDays   int     `json:"expectedResolutionWindowDays,omitempty"`
	TemporaryCredit      bool    `json:"temporaryCreditLikely,omitempty"`
}
