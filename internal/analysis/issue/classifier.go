// Package issue classifies complaint transcripts and extracts the entities
// needed to dispatch a resolution action. Everything here is pure text
// processing with no external calls.
package issue

import (
	"strings"

	"github.com/cardline/backend/internal/model/session"
)

type rule struct {
	keywords []string
	issue    session.IssueType
}

// Rules are ordered: the first rule with any keyword present wins, so a
// transcript mentioning both fraud and a refund is still a fraud alert.
var rules = []rule{
	{
		keywords: []string{"fraud", "unknown charge", "did not make"},
		issue:    session.IssueFraudAlert,
	},
	{
		keywords: []string{"dispute", "refund", "charged", "merchant"},
		issue:    session.IssueBillingDispute,
	},
	{
		keywords: []string{"annual fee", "late fee", "waive", "fee waiver"},
		issue:    session.IssueFeeWaiver,
	},
}

// Classify maps a transcript to an issue type via case-insensitive substring
// matching against the ordered rule table. Unmatched text defaults to a
// billing dispute.
func Classify(text string) session.IssueType {
	normalized := strings.ToLower(text)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(normalized, keyword) {
				return r.issue
			}
		}
	}
	return session.IssueBillingDispute
}
