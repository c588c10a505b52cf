package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a monthly expense ceiling, one per user.
type Budget struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type BudgetUsage struct {
	Budget        *Budget         `json:"budget"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	PercentUsed   decimal.Decimal `json:"percent_used"`
}

type SetBudgetRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}
