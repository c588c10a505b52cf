package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	checksCategory        = "checks"
	receivedCheckCategory = "other-income"
)

// CheckService tracks issued and received checks and keeps the at-risk view
// of pending issued checks current against the default account balance.
type CheckService struct {
	store    Store
	notifier Notifier
	events   EventPublisher

	Clock func() time.Time
}

func NewCheckService(store Store, notifier Notifier, events EventPublisher) *CheckService {
	return &CheckService{
		store:    store,
		notifier: notifier,
		events:   publisherOrNoop(events),
		Clock:    time.Now,
	}
}

type CheckInput struct {
	Type         models.CheckType
	PayeeOrPayer string
	Amount       decimal.Decimal
	IssueDate    time.Time
	DepositDate  time.Time
	BankName     string
	CheckNumber  string
}

// ClearResult is the outcome of a clearing attempt. Bounced is a modeled
// outcome, not an error.
type ClearResult struct {
	Check          *models.Check       `json:"check"`
	Transaction    *models.Transaction `json:"transaction,omitempty"`
	AlreadyCleared bool                `json:"already_cleared"`
	Bounced        bool                `json:"bounced"`
}

// CheckList is what listChecks returns: the checks plus the account they
// are measured against.
type CheckList struct {
	Checks  []models.Check  `json:"checks"`
	Account *models.Account `json:"account"`
}

func (s *CheckService) CreateCheck(ctx context.Context, userID string, in CheckInput) (*models.Check, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if in.Type != models.CheckIssued && in.Type != models.CheckReceived {
		return nil, invalid("unknown check type %q", in.Type)
	}
	payee := strings.TrimSpace(in.PayeeOrPayer)
	if payee == "" {
		return nil, invalid("payee or payer is required")
	}
	amount, err := validateAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.IssueDate.IsZero() {
		return nil, invalid("issue date is required")
	}
	if in.DepositDate.IsZero() {
		in.DepositDate = in.IssueDate
	}

	now := s.Clock()
	check := &models.Check{
		ID:           uuid.New().String(),
		UserID:       userID,
		Type:         in.Type,
		PayeeOrPayer: payee,
		Amount:       amount,
		IssueDate:    in.IssueDate,
		DepositDate:  in.DepositDate,
		BankName:     strings.TrimSpace(in.BankName),
		CheckNumber:  strings.TrimSpace(in.CheckNumber),
		Status:       models.CheckPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.RunInTx(ctx, func(tx Tx) error {
		if err := ensureUser(ctx, tx, userID, now); err != nil {
			return err
		}
		return tx.InsertCheck(ctx, check)
	})
	if err != nil {
		return nil, fmt.Errorf("insert check: %w", err)
	}

	utils.LogCheckAction("check created", check.ID, userID)
	s.evaluate(ctx, userID)
	return check, nil
}

// ClearCheck settles a check against the default account. An issued check
// larger than the balance bounces instead; the alert for a bounce goes out
// at most once.
func (s *CheckService) ClearCheck(ctx context.Context, userID, checkID string) (*ClearResult, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.Clock()
	result := &ClearResult{}

	var (
		balance     decimal.Decimal
		sendBounce  bool
		bounceAlert models.RiskAlert
		email       string
	)
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		// account before check, the same order settleIfAffordable locks in
		account, err := tx.FindDefaultAccount(ctx, userID, true)
		if errors.Is(err, ErrNotFound) {
			account = nil
		} else if err != nil {
			return err
		}
		check, err := tx.GetCheck(ctx, checkID, true)
		if errors.Is(err, ErrNotFound) || (err == nil && check.UserID != userID) {
			return notFound("check")
		}
		if err != nil {
			return err
		}
		result.Check = check
		if check.Status == models.CheckCleared {
			result.AlreadyCleared = true
			return nil
		}
		if account == nil {
			return notFound("default account")
		}
		balance = account.Balance

		if check.Type == models.CheckIssued && check.Amount.GreaterThan(account.Balance) {
			check.Status = models.CheckBounced
			check.UpdatedAt = now
			result.Bounced = true
			if !check.Alerted {
				if user, err := tx.GetUser(ctx, userID); err == nil && user.Email != "" {
					sendBounce = true
					email = user.Email
					check.Alerted = true
					bounceAlert = models.RiskAlert{
						UserName:     user.Name,
						PayeeOrPayer: check.PayeeOrPayer,
						Amount:       check.Amount,
						DepositDate:  check.DepositDate,
						Balance:      account.Balance,
					}
				}
			}
			return tx.UpdateCheck(ctx, check)
		}

		entry, err := settleCheck(ctx, tx, check, account, now)
		if err != nil {
			return err
		}
		balance = account.Balance
		result.Transaction = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyCleared {
		return result, nil
	}

	if result.Bounced {
		utils.LogCheckAction("check bounced", checkID, userID)
		s.events.Publish(userID, EventCheckBounced, result.Check)
		if sendBounce && !s.deliverRiskAlert(ctx, checkID, email, bounceAlert) {
			result.Check.Alerted = false
		}
	} else {
		utils.LogCheckAction("check cleared", checkID, userID)
		s.events.Publish(userID, EventCheckCleared, result.Check)
		s.events.Publish(userID, EventBalanceUpdated, map[string]interface{}{
			"account_id": result.Transaction.AccountID,
			"balance":    balance.InexactFloat64(),
		})
	}

	s.evaluate(ctx, userID)
	return result, nil
}

// ListChecks returns the user's checks ordered by deposit date together
// with the default account, when there is one.
func (s *CheckService) ListChecks(ctx context.Context, userID string, filter CheckFilter) (*CheckList, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	list := &CheckList{}
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		checks, err := tx.ListChecks(ctx, userID, filter)
		if err != nil {
			return err
		}
		list.Checks = checks
		account, err := tx.FindDefaultAccount(ctx, userID, false)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		list.Account = account
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list.Checks, func(i, j int) bool {
		return list.Checks[i].DepositDate.Before(list.Checks[j].DepositDate)
	})
	return list, nil
}

// EvaluateIssuedChecksRisk runs one bounded pass over the user's issued
// checks:
//   - bounced checks, and pending checks whose deposit date has arrived, are
//     settled oldest issue date first while the running available balance
//     covers them; a check that does not fit is skipped, not a blocker
//   - every remaining pending check larger than the final balance is at
//     risk, and each one is alerted at most once
//
// Pending checks whose deposit date is still in the future are never
// settled here; they stay PENDING and only count toward the at-risk set.
//
// Each settlement is its own unit of work. Settling never triggers another
// evaluation.
func (s *CheckService) EvaluateIssuedChecksRisk(ctx context.Context, userID string) (*models.RiskReport, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.Clock()
	report := &models.RiskReport{AtRisk: []models.Check{}, Resolved: []models.Check{}}

	var (
		account   *models.Account
		issued    []models.Check
		user      *models.User
		candidate []models.Check
	)
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		account, err = tx.FindDefaultAccount(ctx, userID, false)
		if errors.Is(err, ErrNotFound) {
			account = nil
			return nil
		}
		if err != nil {
			return err
		}
		issued, err = tx.ListChecks(ctx, userID, CheckFilter{Type: models.CheckIssued})
		if err != nil {
			return err
		}
		user, err = tx.GetUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			user = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load risk inputs: %w", err)
	}
	if account == nil {
		return report, nil
	}

	for _, c := range issued {
		if c.Status == models.CheckBounced || (c.Status == models.CheckPending && !c.DepositDate.After(now)) {
			candidate = append(candidate, c)
		}
	}

	available := account.Balance
	settled := map[string]bool{}
	for _, c := range candidate {
		if c.Amount.GreaterThan(available) {
			continue
		}
		cleared, newBalance, err := s.settleIfAffordable(ctx, userID, c.ID, now)
		if err != nil {
			utils.SafeError("auto-settling check %s failed: %v", c.ID, err)
			continue
		}
		available = newBalance
		if cleared == nil {
			continue
		}
		settled[c.ID] = true
		report.Resolved = append(report.Resolved, *cleared)
		utils.LogCheckAction("check auto-cleared", cleared.ID, userID)
		s.events.Publish(userID, EventCheckCleared, cleared)
	}
	if len(report.Resolved) > 0 {
		s.events.Publish(userID, EventBalanceUpdated, map[string]interface{}{
			"account_id": account.ID,
			"balance":    available.InexactFloat64(),
		})
	}

	for _, c := range issued {
		if settled[c.ID] || !c.AtRisk(available) {
			continue
		}
		report.AtRisk = append(report.AtRisk, c)
	}
	account.Balance = available
	report.Account = account
	report.Balance = available

	s.alertAtRisk(ctx, user, report)
	if len(report.AtRisk) > 0 {
		s.events.Publish(userID, EventChecksAtRisk, report)
	}
	return report, nil
}

// settleIfAffordable re-reads the check and the default account under lock
// and settles the check only if it is still open and the balance covers it.
// It returns the settled check (nil when skipped) and the balance observed.
func (s *CheckService) settleIfAffordable(ctx context.Context, userID, checkID string, now time.Time) (*models.Check, decimal.Decimal, error) {
	var (
		cleared *models.Check
		balance decimal.Decimal
	)
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		account, err := tx.FindDefaultAccount(ctx, userID, true)
		if err != nil {
			return err
		}
		balance = account.Balance

		check, err := tx.GetCheck(ctx, checkID, true)
		if err != nil {
			return err
		}
		if check.UserID != userID || check.Type != models.CheckIssued || check.Status == models.CheckCleared {
			return nil
		}
		if check.Amount.GreaterThan(account.Balance) {
			return nil
		}
		if _, err := settleCheck(ctx, tx, check, account, now); err != nil {
			return err
		}
		balance = account.Balance
		cleared = check
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return cleared, balance, nil
}

// alertAtRisk claims each at-risk check's alert before sending it so a
// concurrent evaluation cannot send it twice. Without a known email nothing
// is claimed; a failed send gives the claim back so the next pass retries.
func (s *CheckService) alertAtRisk(ctx context.Context, user *models.User, report *models.RiskReport) {
	for i := range report.AtRisk {
		c := &report.AtRisk[i]
		if c.Alerted {
			continue
		}
		if user == nil || user.Email == "" {
			utils.SafeDebug("no email for user %s yet, risk alert for check %s deferred", c.UserID, c.ID)
			continue
		}
		var claimed bool
		err := s.store.RunInTx(ctx, func(tx Tx) error {
			var err error
			claimed, err = tx.ClaimCheckAlert(ctx, c.ID)
			return err
		})
		if err != nil {
			utils.SafeError("claiming alert for check %s failed: %v", c.ID, err)
			continue
		}
		if !claimed {
			c.Alerted = true
			continue
		}
		c.Alerted = s.deliverRiskAlert(ctx, c.ID, user.Email, models.RiskAlert{
			UserName:     user.Name,
			PayeeOrPayer: c.PayeeOrPayer,
			Amount:       c.Amount,
			DepositDate:  c.DepositDate,
			Balance:      report.Balance,
		})
	}
}

// deliverRiskAlert sends an alert whose flag the caller already claimed and
// releases the flag when the send fails. It reports whether the flag stays set.
func (s *CheckService) deliverRiskAlert(ctx context.Context, checkID, email string, alert models.RiskAlert) bool {
	if s.notifier == nil {
		return true
	}
	err := s.notifier.SendRiskAlert(ctx, email, alert)
	if err == nil {
		return true
	}
	utils.SafeError("%v", fmt.Errorf("%w: risk alert to %s: %v", ErrDependencyFailure, email, err))

	err = s.store.RunInTx(ctx, func(tx Tx) error {
		return tx.ReleaseCheckAlert(ctx, checkID)
	})
	if err != nil {
		utils.SafeError("releasing alert for check %s failed: %v", checkID, err)
		return true
	}
	return false
}

func (s *CheckService) evaluate(ctx context.Context, userID string) {
	runRiskEvaluation(ctx, s, userID)
}

// settleCheck posts the entry that settles check against account, marks the
// check CLEARED and ends its risk episode. account.Balance is updated.
func settleCheck(ctx context.Context, tx Tx, check *models.Check, account *models.Account, now time.Time) (*models.Transaction, error) {
	var entry *models.Transaction
	if check.Type == models.CheckIssued {
		entry = newEntry(check.UserID, account.ID, models.Expense, check.Amount, "Check issued to "+check.PayeeOrPayer, checksCategory, now, now)
	} else {
		entry = newEntry(check.UserID, account.ID, models.Income, check.Amount, "Check received from "+check.PayeeOrPayer, receivedCheckCategory, now, now)
	}
	entry.CheckID = check.ID

	balance, err := post(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	account.Balance = balance

	check.Status = models.CheckCleared
	check.Alerted = false
	check.LinkedTransactionID = entry.ID
	check.UpdatedAt = now
	if err := tx.UpdateCheck(ctx, check); err != nil {
		return nil, fmt.Errorf("update check: %w", err)
	}
	return entry, nil
}
