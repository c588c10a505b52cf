package services

import (
	"context"

	"github.com/LovationAdmin/ledger-api/models"
)

// Notifier delivers user-facing alerts. Failures are reported to the caller,
// which logs them and carries on.
//
//go:generate mockgen -destination=mocks/mock_notifier.go -source=notifier.go Notifier
type Notifier interface {
	SendRiskAlert(ctx context.Context, to string, alert models.RiskAlert) error
	SendBudgetAlert(ctx context.Context, to string, alert models.BudgetAlert) error
}
