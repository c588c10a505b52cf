package handlers

import (
	"time"

	"github.com/LovationAdmin/ledger-api/models"

	"github.com/shopspring/decimal"
)

// Responses carry amounts as plain JSON numbers, never as decimal strings.

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Balance   float64   `json:"balance"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID                string     `json:"id"`
	AccountID         string     `json:"account_id"`
	Type              string     `json:"type"`
	Amount            float64    `json:"amount"`
	Description       string     `json:"description"`
	Date              time.Time  `json:"date"`
	Category          string     `json:"category"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurringInterval string     `json:"recurring_interval,omitempty"`
	NextRecurringDate *time.Time `json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time `json:"last_processed,omitempty"`
	BillID            string     `json:"bill_id,omitempty"`
	CheckID           string     `json:"check_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type billResponse struct {
	ID                  string    `json:"id"`
	AccountID           string    `json:"account_id"`
	Name                string    `json:"name"`
	Category            string    `json:"category"`
	Amount              float64   `json:"amount"`
	DueDate             time.Time `json:"due_date"`
	Frequency           string    `json:"frequency,omitempty"`
	Status              string    `json:"status"`
	IsPaid              bool      `json:"is_paid"`
	Source              string    `json:"source"`
	Confidence          *float64  `json:"confidence,omitempty"`
	LinkedTransactionID string    `json:"linked_transaction_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type checkResponse struct {
	ID                  string    `json:"id"`
	Type                string    `json:"type"`
	PayeeOrPayer        string    `json:"payee_or_payer"`
	Amount              float64   `json:"amount"`
	IssueDate           time.Time `json:"issue_date"`
	DepositDate         time.Time `json:"deposit_date"`
	BankName            string    `json:"bank_name,omitempty"`
	CheckNumber         string    `json:"check_number,omitempty"`
	Status              string    `json:"status"`
	Alerted             bool      `json:"alerted"`
	LinkedTransactionID string    `json:"linked_transaction_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type riskResponse struct {
	AtRisk   []checkResponse  `json:"at_risk"`
	Resolved []checkResponse  `json:"resolved"`
	Balance  float64          `json:"balance"`
	Account  *accountResponse `json:"account"`
}

type budgetResponse struct {
	ID            string     `json:"id"`
	Amount        float64    `json:"amount"`
	TotalExpenses float64    `json:"total_expenses"`
	PercentUsed   float64    `json:"percent_used"`
	LastAlertSent *time.Time `json:"last_alert_sent,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toAccount(a *models.Account) *accountResponse {
	if a == nil {
		return nil
	}
	return &accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   toFloat(a.Balance),
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAccounts(accounts []models.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, *toAccount(&accounts[i]))
	}
	return out
}

func toTransaction(t *models.Transaction) *transactionResponse {
	if t == nil {
		return nil
	}
	return &transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            toFloat(t.Amount),
		Description:       t.Description,
		Date:              t.Date,
		Category:          t.Category,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		NextRecurringDate: t.NextRecurringDate,
		LastProcessed:     t.LastProcessed,
		BillID:            t.BillID,
		CheckID:           t.CheckID,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func toTransactions(txns []models.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, *toTransaction(&txns[i]))
	}
	return out
}

func toBill(b *models.Bill) *billResponse {
	if b == nil {
		return nil
	}
	return &billResponse{
		ID:                  b.ID,
		AccountID:           b.AccountID,
		Name:                b.Name,
		Category:            b.Category,
		Amount:              toFloat(b.Amount),
		DueDate:             b.DueDate,
		Frequency:           b.Frequency,
		Status:              string(b.Status),
		IsPaid:              b.IsPaid,
		Source:              string(b.Source),
		Confidence:          b.Confidence,
		LinkedTransactionID: b.LinkedTransactionID,
		CreatedAt:           b.CreatedAt,
	}
}

func toBills(bills []models.Bill) []billResponse {
	out := make([]billResponse, 0, len(bills))
	for i := range bills {
		out = append(out, *toBill(&bills[i]))
	}
	return out
}

func toCheck(c *models.Check) *checkResponse {
	if c == nil {
		return nil
	}
	return &checkResponse{
		ID:                  c.ID,
		Type:                string(c.Type),
		PayeeOrPayer:        c.PayeeOrPayer,
		Amount:              toFloat(c.Amount),
		IssueDate:           c.IssueDate,
		DepositDate:         c.DepositDate,
		BankName:            c.BankName,
		CheckNumber:         c.CheckNumber,
		Status:              string(c.Status),
		Alerted:             c.Alerted,
		LinkedTransactionID: c.LinkedTransactionID,
		CreatedAt:           c.CreatedAt,
	}
}

func toChecks(checks []models.Check) []checkResponse {
	out := make([]checkResponse, 0, len(checks))
	for i := range checks {
		out = append(out, *toCheck(&checks[i]))
	}
	return out
}

func toRisk(r *models.RiskReport) riskResponse {
	return riskResponse{
		AtRisk:   toChecks(r.AtRisk),
		Resolved: toChecks(r.Resolved),
		Balance:  toFloat(r.Balance),
		Account:  toAccount(r.Account),
	}
}

func toBudget(u *models.BudgetUsage) budgetResponse {
	return budgetResponse{
		ID:            u.Budget.ID,
		Amount:        toFloat(u.Budget.Amount),
		TotalExpenses: toFloat(u.TotalExpenses),
		PercentUsed:   toFloat(u.PercentUsed),
		LastAlertSent: u.Budget.LastAlertSent,
		UpdatedAt:     u.Budget.UpdatedAt,
	}
}

// eventPayload converts service event payloads into their wire shape.
func eventPayload(payload interface{}) interface{} {
	switch p := payload.(type) {
	case *models.Check:
		return toCheck(p)
	case *models.Bill:
		return toBill(p)
	case *models.RiskReport:
		return toRisk(p)
	default:
		return payload
	}
}
