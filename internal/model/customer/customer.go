package customer

import "time"

// Customer is one record in the customers document.
type Customer struct {
	ID           string        `json:"id"`
	FullName     string        `json:"fullName"`
	Last4SSN     string        `json:"last4Ssn"`
	Phone        string        `json:"phone"`
	Cards        []Card        `json:"cards"`
	Transactions []Transaction `json:"transactions,omitempty"`
	OpenDisputes []Dispute     `json:"openDisputes"`
}

// Card is a credit card on file, identified by its last four digits.
type Card struct {
	CardID      string  `json:"cardId,omitempty"`
	Last4       string  `json:"last4"`
	Issuer      string  `json:"issuer"`
	Nickname    string  `json:"nickname,omitempty"`
	Status      string  `json:"status,omitempty"`
	FraudLocked bool    `json:"fraudLocked"`
	LateFeesYtd float64 `json:"lateFeesYtd"`
	AnnualFee   float64 `json:"annualFee"`
	FullNumber  string  `json:"fullNumber,omitempty"`
}

// Transaction is a posted charge, flaggable as suspicious.
type Transaction struct {
	TransactionID string    `json:"transactionId"`
	CardLast4     string    `json:"cardLast4"`
	Merchant      string    `json:"merchant"`
	Amount        float64   `json:"amount"`
	PostedAt      string    `json:"postedAt,omitempty"`
	Flagged       bool      `json:"flagged,omitempty"`
	FlagReason    string    `json:"flagReason,omitempty"`
	FlaggedAt     time.Time `json:"flaggedAt,omitempty"`
}

// Dispute is an open billing dispute attached to a customer.
type Dispute struct {
	DisputeID       string    `json:"disputeId"`
	CardID          string    `json:"cardId,omitempty"`
	CardLast4       string    `json:"cardLast4"`
	Merchant        string    `json:"merchant"`
	Amount          float64   `json:"amount"`
	TransactionDate string    `json:"transactionDate"`
	Reason          string    `json:"reason"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CardByLast4 returns a pointer into Cards for in-place mutation, or nil.
func (c *Customer) CardByLast4(last4 string) *Card {
	for i := range c.Cards {
		if c.Cards[i].Last4 == last4 {
			return &c.Cards[i]
		}
	}
	return nil
}
