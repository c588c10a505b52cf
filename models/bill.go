package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillPending BillStatus = "PENDING"
	BillOverdue BillStatus = "OVERDUE"
	BillPaid    BillStatus = "PAID"
)

type BillSource string

const (
	BillSourceManual BillSource = "MANUAL"
	BillSourceAIScan BillSource = "AI_SCAN"
)

// Bill is a payable obligation settled by exactly one EXPENSE entry.
type Bill struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	AccountID           string          `json:"account_id"`
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	Amount              decimal.Decimal `json:"amount"`
	DueDate             time.Time       `json:"due_date"`
	Frequency           string          `json:"frequency"`
	Status              BillStatus      `json:"status"`
	IsPaid              bool            `json:"is_paid"`
	Source              BillSource      `json:"source"`
	Confidence          *float64        `json:"confidence,omitempty"`
	LinkedTransactionID string          `json:"linked_transaction_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// DeriveStatus returns PAID once settled, otherwise OVERDUE when the due
// date is already behind now, otherwise PENDING.
func (b *Bill) DeriveStatus(now time.Time) BillStatus {
	if b.IsPaid {
		return BillPaid
	}
	if b.DueDate.Before(now) {
		return BillOverdue
	}
	return BillPending
}

type CreateBillRequest struct {
	AccountID  string     `json:"account_id" binding:"required"`
	Name       string     `json:"name" binding:"required"`
	Category   string     `json:"category"`
	Amount     float64    `json:"amount" binding:"required"`
	DueDate    string     `json:"due_date" binding:"required"`
	Frequency  string     `json:"frequency"`
	Source     BillSource `json:"source"`
	Confidence *float64   `json:"confidence"`
}
