package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

type RecurringInterval string

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

// Transaction is one ledger entry against an account. Amount is always
// positive; Type decides the sign applied to the account balance.
type Transaction struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	AccountID         string            `json:"account_id"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description"`
	Date              time.Time         `json:"date"`
	Category          string            `json:"category"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurringInterval RecurringInterval `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time        `json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time        `json:"last_processed,omitempty"`
	BillID            string            `json:"bill_id,omitempty"`
	CheckID           string            `json:"check_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// SignedAmount is the balance delta this entry applies.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsSettlement reports whether the entry settles a bill or a check.
func (t *Transaction) IsSettlement() bool {
	return t.BillID != "" || t.CheckID != ""
}

type TransactionRequest struct {
	AccountID         string            `json:"account_id" binding:"required"`
	Type              TransactionType   `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	Amount            float64           `json:"amount" binding:"required"`
	Description       string            `json:"description"`
	Date              string            `json:"date"`
	Category          string            `json:"category"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurringInterval RecurringInterval `json:"recurring_interval"`
}
