package resolution

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cardline/backend/internal/model/customer"
	"github.com/cardline/backend/internal/model/session"
)

// Summary is the final structured case summary returned to the caller.
type Summary struct {
	SessionID         string              `json:"sessionId"`
	CustomerID        string              `json:"customerId"`
	CustomerName      string              `json:"customerName"`
	CardLast4         string              `json:"cardLast4"`
	DetectedIssueType session.IssueType   `json:"detectedIssueType"`
	Transcript        string              `json:"transcript"`
	Resolution        *session.Resolution `json:"resolution"`
	Summary           string              `json:"summary"`
}

// buildSummary renders the issue-type-specific closing sentence and the
// generic lead sentence. Pure given its inputs.
func buildSummary(sess session.Session, cust *customer.Customer) *Summary {
	res := sess.Resolution

	var resolutionText string
	switch sess.IssueType {
	case session.IssueFeeWaiver:
		if res.Approved {
			resolutionText = fmt.Sprintf("Fee waiver approved for $%s.", formatAmount(res.WaiverAmount))
		} else {
			resolutionText = "Fee waiver request was not approved."
		}
	case session.IssueFraudAlert:
		resolutionText = fmt.Sprintf("Fraud alert filed with case %s. Card lock is active.", res.CaseID)
	default:
		resolutionText = fmt.Sprintf("Dispute %s was submitted. Expected review window is %d days.",
			res.DisputeID, res.ExpectedWindowDays)
	}

	lead := fmt.Sprintf("%s reported %s.", cust.FullName,
		strings.ReplaceAll(string(sess.IssueType), "_", " "))

	return &Summary{
		SessionID:         sess.ID,
		CustomerID:        cust.ID,
		CustomerName:      cust.FullName,
		CardLast4:         sess.CardLast4,
		DetectedIssueType: sess.IssueType,
		Transcript:        sess.Transcript,
		Resolution:        res,
		Summary:           lead + " " + resolutionText,
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
