package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountCurrent AccountType = "CURRENT"
	AccountSavings AccountType = "SAVINGS"
)

// Account holds the authoritative cash balance for one owner.
// Balance only moves through committed ledger postings.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateAccountRequest struct {
	Name      string      `json:"name" binding:"required"`
	Type      AccountType `json:"type" binding:"required,oneof=CURRENT SAVINGS"`
	Balance   float64     `json:"balance"`
	IsDefault bool        `json:"is_default"`
}
