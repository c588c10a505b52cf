package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckType string

const (
	CheckIssued   CheckType = "ISSUED"
	CheckReceived CheckType = "RECEIVED"
)

type CheckStatus string

const (
	CheckPending CheckStatus = "PENDING"
	CheckCleared CheckStatus = "CLEARED"
	CheckBounced CheckStatus = "BOUNCED"
)

// Check moves PENDING -> CLEARED, or PENDING -> BOUNCED -> CLEARED.
// CLEARED is terminal.
type Check struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	Type                CheckType       `json:"type"`
	PayeeOrPayer        string          `json:"payee_or_payer"`
	Amount              decimal.Decimal `json:"amount"`
	IssueDate           time.Time       `json:"issue_date"`
	DepositDate         time.Time       `json:"deposit_date"`
	BankName            string          `json:"bank_name,omitempty"`
	CheckNumber         string          `json:"check_number,omitempty"`
	Status              CheckStatus     `json:"status"`
	Alerted             bool            `json:"alerted"`
	LinkedTransactionID string          `json:"linked_transaction_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// AtRisk reports whether an issued, still pending check exceeds balance.
func (c *Check) AtRisk(balance decimal.Decimal) bool {
	return c.Type == CheckIssued && c.Status == CheckPending && c.Amount.GreaterThan(balance)
}

type CreateCheckRequest struct {
	Type         CheckType `json:"type" binding:"required,oneof=ISSUED RECEIVED"`
	PayeeOrPayer string    `json:"payee_or_payer" binding:"required"`
	Amount       float64   `json:"amount" binding:"required"`
	IssueDate    string    `json:"issue_date" binding:"required"`
	DepositDate  string    `json:"deposit_date"`
	BankName     *string   `json:"bank_name"`
	CheckNumber  *string   `json:"check_number"`
}
