package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// budgetAlertThreshold is the share of the monthly budget, in percent, at
// which the budget alert fires.
var budgetAlertThreshold = decimal.NewFromInt(80)

type BudgetService struct {
	store    Store
	notifier Notifier

	Clock func() time.Time
}

func NewBudgetService(store Store, notifier Notifier) *BudgetService {
	return &BudgetService{store: store, notifier: notifier, Clock: time.Now}
}

// SetBudget creates or replaces the user's monthly budget.
func (s *BudgetService) SetBudget(ctx context.Context, userID string, amount decimal.Decimal) (*models.Budget, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	amount, err := validateAmount(amount)
	if err != nil {
		return nil, err
	}
	now := s.Clock()
	budget := &models.Budget{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.RunInTx(ctx, func(tx Tx) error {
		if err := ensureUser(ctx, tx, userID, now); err != nil {
			return err
		}
		return tx.UpsertBudget(ctx, budget)
	})
	if err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}
	return budget, nil
}

// GetBudget returns the budget with month-to-date expenses on the default
// account. Without a default account usage is zero.
func (s *BudgetService) GetBudget(ctx context.Context, userID string) (*models.BudgetUsage, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var usage *models.BudgetUsage
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		usage, err = s.usage(ctx, tx, userID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("budget")
	}
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// CheckBudgetAlert sends the budget alert once month-to-date expenses reach
// the threshold. It fires at most once per calendar month and reports
// whether this call sent it.
func (s *BudgetService) CheckBudgetAlert(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrUnauthorized
	}
	now := s.Clock()

	var (
		usage   *models.BudgetUsage
		user    *models.User
		claimed bool
	)
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		usage, err = s.usage(ctx, tx, userID)
		if err != nil {
			return err
		}
		budget := usage.Budget
		if usage.PercentUsed.LessThan(budgetAlertThreshold) || sameMonth(budget.LastAlertSent, now) {
			return nil
		}
		user, err = tx.GetUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		claimed, err = tx.ClaimBudgetAlert(ctx, budget.ID, budget.LastAlertSent, now)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		// no budget configured
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if s.notifier != nil && user.Email != "" {
		alert := models.BudgetAlert{
			UserName:      user.Name,
			BudgetAmount:  usage.Budget.Amount,
			TotalExpenses: usage.TotalExpenses,
			PercentUsed:   usage.PercentUsed,
		}
		if err := s.notifier.SendBudgetAlert(ctx, user.Email, alert); err != nil {
			utils.SafeError("%v", fmt.Errorf("%w: budget alert to %s: %v", ErrDependencyFailure, user.Email, err))
		}
	}
	return true, nil
}

func (s *BudgetService) usage(ctx context.Context, tx Tx, userID string) (*models.BudgetUsage, error) {
	budget, err := tx.GetBudget(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage := &models.BudgetUsage{Budget: budget, TotalExpenses: decimal.Zero, PercentUsed: decimal.Zero}

	account, err := tx.FindDefaultAccount(ctx, userID, false)
	if errors.Is(err, ErrNotFound) {
		return usage, nil
	}
	if err != nil {
		return nil, err
	}
	total, err := tx.SumExpenses(ctx, account.ID, monthStart(s.Clock()))
	if err != nil {
		return nil, err
	}
	usage.TotalExpenses = total
	if budget.Amount.IsPositive() {
		usage.PercentUsed = total.Div(budget.Amount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return usage, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func sameMonth(sent *time.Time, now time.Time) bool {
	if sent == nil {
		return false
	}
	s := sent.In(now.Location())
	return s.Year() == now.Year() && s.Month() == now.Month()
}
