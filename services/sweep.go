package services

import (
	"context"

	"github.com/LovationAdmin/ledger-api/utils"
)

// Sweeper is the periodic pass main runs on a ticker: book due recurring
// entries, then re-evaluate check risk and budget alerts for every user.
type Sweeper struct {
	ledger  *LedgerService
	checks  *CheckService
	budgets *BudgetService
}

func NewSweeper(ledger *LedgerService, checks *CheckService, budgets *BudgetService) *Sweeper {
	return &Sweeper{ledger: ledger, checks: checks, budgets: budgets}
}

// SweepStats summarizes one pass.
type SweepStats struct {
	RecurringProcessed int
	UsersEvaluated     int
	BudgetAlertsSent   int
}

// Run performs one pass. Per-user failures are logged and skipped.
func (w *Sweeper) Run(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	processed, err := w.ledger.ProcessDueRecurring(ctx)
	if err != nil {
		return stats, err
	}
	stats.RecurringProcessed = processed

	userIDs, err := w.ledger.UserIDs(ctx)
	if err != nil {
		return stats, err
	}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if _, err := w.checks.EvaluateIssuedChecksRisk(ctx, userID); err != nil {
			utils.SafeError("sweep: risk evaluation for %s failed: %v", userID, err)
		} else {
			stats.UsersEvaluated++
		}
		sent, err := w.budgets.CheckBudgetAlert(ctx, userID)
		if err != nil {
			utils.SafeError("sweep: budget alert for %s failed: %v", userID, err)
			continue
		}
		if sent {
			stats.BudgetAlertsSent++
		}
	}

	utils.SafeInfo("sweep done: %d recurring processed, %d users evaluated, %d budget alerts", stats.RecurringProcessed, stats.UsersEvaluated, stats.BudgetAlertsSent)
	return stats, nil
}
