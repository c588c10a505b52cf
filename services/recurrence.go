package services

import (
	"time"

	"github.com/LovationAdmin/ledger-api/models"
)

// NextOccurrence advances date by one recurrence interval. Month and year
// steps use calendar arithmetic with overflow normalization: Jan 31 plus one
// month lands on the day after the last day of February (2024-03-02), and
// Feb 29 plus one year lands on Mar 1 of a non-leap year.
func NextOccurrence(date time.Time, interval models.RecurringInterval) (time.Time, error) {
	switch interval {
	case models.Daily:
		return date.AddDate(0, 0, 1), nil
	case models.Weekly:
		return date.AddDate(0, 0, 7), nil
	case models.Monthly:
		return date.AddDate(0, 1, 0), nil
	case models.Yearly:
		return date.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, ErrInvalidInterval
	}
}

// IsDue reports whether a recurring entry should be processed at asOf. An
// entry that was never processed is due immediately.
func IsDue(txn *models.Transaction, asOf time.Time) bool {
	if !txn.IsRecurring || txn.RecurringInterval == "" {
		return false
	}
	if txn.LastProcessed == nil {
		return true
	}
	if txn.NextRecurringDate == nil {
		return false
	}
	return !asOf.Before(*txn.NextRecurringDate)
}
