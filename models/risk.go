package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskReport is the outcome of one risk evaluation pass.
type RiskReport struct {
	AtRisk   []Check         `json:"at_risk"`
	Balance  decimal.Decimal `json:"balance"`
	Account  *Account        `json:"account"`
	Resolved []Check         `json:"resolved"`
}

// RiskAlert carries what the notification about an at-risk check shows.
type RiskAlert struct {
	UserName     string
	PayeeOrPayer string
	Amount       decimal.Decimal
	DepositDate  time.Time
	Balance      decimal.Decimal
}

// BudgetAlert carries what the monthly budget notification shows.
type BudgetAlert struct {
	UserName      string
	BudgetAmount  decimal.Decimal
	TotalExpenses decimal.Decimal
	PercentUsed   decimal.Decimal
}
