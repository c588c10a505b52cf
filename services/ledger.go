package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RiskEvaluator re-checks pending issued checks after a balance change.
type RiskEvaluator interface {
	EvaluateIssuedChecksRisk(ctx context.Context, userID string) (*models.RiskReport, error)
}

// LedgerService owns accounts and ledger entries. Every posting inserts the
// entry and moves the account balance inside one unit of work.
type LedgerService struct {
	store  Store
	risk   RiskEvaluator
	events EventPublisher

	// Clock is overridable in tests.
	Clock func() time.Time
}

func NewLedgerService(store Store, risk RiskEvaluator, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		risk:   risk,
		events: publisherOrNoop(events),
		Clock:  time.Now,
	}
}

// TransactionInput is what callers may set on a ledger entry.
type TransactionInput struct {
	AccountID         string
	Type              models.TransactionType
	Amount            decimal.Decimal
	Date              time.Time
	Category          string
	Description       string
	IsRecurring       bool
	RecurringInterval models.RecurringInterval
}

type AccountInput struct {
	Name           string
	Type           models.AccountType
	InitialBalance decimal.Decimal
	IsDefault      bool
}

// RecurringResult describes one attempt at processing a recurring entry.
type RecurringResult struct {
	Processed   bool                `json:"processed"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Entry       *models.Transaction `json:"entry"`
}

const openingBalanceCategory = "opening-balance"

// ---------------------------------------------------------------------------
// users

// SyncUser stores the profile the identity layer resolved for userID.
func (s *LedgerService) SyncUser(ctx context.Context, userID, email, name string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	user := &models.User{ID: userID, Email: strings.TrimSpace(email), Name: strings.TrimSpace(name)}
	now := s.Clock()
	user.CreatedAt, user.UpdatedAt = now, now

	err := s.store.RunInTx(ctx, func(tx Tx) error {
		return tx.UpsertUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("sync user: %w", err)
	}
	return user, nil
}

// UserIDs lists every known user, for background sweeps.
func (s *LedgerService) UserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.ListUserIDs(ctx)
		return err
	})
	return ids, err
}

// ---------------------------------------------------------------------------
// accounts

// CreateAccount opens an account. The first account of a user is always the
// default one; promoting a new default demotes the previous one in the same
// unit of work. A positive initial balance is booked as an opening INCOME
// entry so the balance always equals the sum of its entries.
func (s *LedgerService) CreateAccount(ctx context.Context, userID string, in AccountInput) (*models.Account, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("account name is required")
	}
	if in.Type != models.AccountCurrent && in.Type != models.AccountSavings {
		return nil, invalid("unknown account type %q", in.Type)
	}
	initial := in.InitialBalance.Round(2)
	if initial.IsNegative() {
		return nil, invalid("balance must be at least 0")
	}

	now := s.Clock()
	account := &models.Account{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Type:      in.Type,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.RunInTx(ctx, func(tx Tx) error {
		if err := ensureUser(ctx, tx, userID, now); err != nil {
			return err
		}
		existing, err := tx.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		account.IsDefault = len(existing) == 0 || in.IsDefault
		if account.IsDefault {
			if err := tx.ClearDefaultAccount(ctx, userID); err != nil {
				return err
			}
		}
		if err := tx.InsertAccount(ctx, account); err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		if initial.IsPositive() {
			opening := newEntry(userID, account.ID, models.Income, initial, "Opening balance", openingBalanceCategory, now, now)
			balance, err := post(ctx, tx, opening)
			if err != nil {
				return err
			}
			account.Balance = balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogLedgerAction("account created", account.ID, userID, account.Balance)
	return account, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var accounts []models.Account
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, userID)
		return err
	})
	return accounts, err
}

// SetDefaultAccount promotes accountID and demotes whichever account was default.
func (s *LedgerService) SetDefaultAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var account *models.Account
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		account, err = ownedAccount(ctx, tx, userID, accountID, true)
		if err != nil {
			return err
		}
		if account.IsDefault {
			return nil
		}
		if err := tx.ClearDefaultAccount(ctx, userID); err != nil {
			return err
		}
		if err := tx.MarkDefaultAccount(ctx, account.ID); err != nil {
			return err
		}
		account.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	// a different default account changes which balance checks are measured against
	s.evaluateRisk(ctx, userID)
	return account, nil
}

// ---------------------------------------------------------------------------
// transactions

// PostTransaction creates a ledger entry and applies its balance delta atomically.
func (s *LedgerService) PostTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.Clock()
	in, err := normalizeInput(in, now)
	if err != nil {
		return nil, err
	}

	entry := newEntry(userID, in.AccountID, in.Type, in.Amount, in.Description, in.Category, in.Date, now)
	if in.IsRecurring {
		next, err := NextOccurrence(in.Date, in.RecurringInterval)
		if err != nil {
			return nil, err
		}
		entry.IsRecurring = true
		entry.RecurringInterval = in.RecurringInterval
		entry.NextRecurringDate = &next
	}

	var balance decimal.Decimal
	err = s.store.RunInTx(ctx, func(tx Tx) error {
		if _, err := ownedAccount(ctx, tx, userID, in.AccountID, false); err != nil {
			return err
		}
		balance, err = post(ctx, tx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.LogLedgerAction("transaction posted", entry.AccountID, userID, entry.SignedAmount())
	s.afterBalanceChange(ctx, userID, entry.AccountID, balance)
	return entry, nil
}

// UpdateTransaction rewrites an entry and applies (new signed amount - old
// signed amount) to the account as one increment. Entries that settle a bill
// or a check are immutable here.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, in TransactionInput) (*models.Transaction, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.Clock()

	var (
		entry   *models.Transaction
		balance decimal.Decimal
		changed bool
	)
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		entry, err = tx.GetTransaction(ctx, id, true)
		if errors.Is(err, ErrNotFound) || (err == nil && entry.UserID != userID) {
			return notFound("transaction")
		}
		if err != nil {
			return err
		}
		if entry.IsSettlement() {
			return invalid("settlement entries cannot be edited")
		}
		if in.AccountID == "" {
			in.AccountID = entry.AccountID
		}
		if in.AccountID != entry.AccountID {
			return invalid("a transaction cannot be moved to another account")
		}
		if in.Date.IsZero() {
			in.Date = entry.Date
		}
		if in, err = normalizeInput(in, now); err != nil {
			return err
		}
		if _, err := ownedAccount(ctx, tx, userID, entry.AccountID, false); err != nil {
			return err
		}

		oldSigned := entry.SignedAmount()
		recurrenceChanged := in.IsRecurring != entry.IsRecurring ||
			in.RecurringInterval != entry.RecurringInterval ||
			!in.Date.Equal(entry.Date)

		entry.Type = in.Type
		entry.Amount = in.Amount
		entry.Date = in.Date
		entry.Category = in.Category
		entry.Description = in.Description
		entry.UpdatedAt = now

		if in.IsRecurring {
			if recurrenceChanged || entry.NextRecurringDate == nil {
				next, err := NextOccurrence(in.Date, in.RecurringInterval)
				if err != nil {
					return err
				}
				entry.NextRecurringDate = &next
			}
			entry.IsRecurring = true
			entry.RecurringInterval = in.RecurringInterval
		} else {
			entry.IsRecurring = false
			entry.RecurringInterval = ""
			entry.NextRecurringDate = nil
		}

		if err := tx.UpdateTransaction(ctx, entry); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		delta := entry.SignedAmount().Sub(oldSigned)
		if delta.IsZero() {
			return nil
		}
		changed = true
		balance, err = tx.AddToBalance(ctx, entry.AccountID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		utils.LogLedgerAction("transaction updated", entry.AccountID, userID, entry.SignedAmount())
		s.afterBalanceChange(ctx, userID, entry.AccountID, balance)
	}
	return entry, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var entry *models.Transaction
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		entry, err = tx.GetTransaction(ctx, id, false)
		if errors.Is(err, ErrNotFound) || (err == nil && entry.UserID != userID) {
			return notFound("transaction")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListTransactions returns an account's entries, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID, accountID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var entries []models.Transaction
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		if _, err := ownedAccount(ctx, tx, userID, accountID, false); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListTransactions(ctx, accountID)
		return err
	})
	return entries, err
}

// ---------------------------------------------------------------------------
// recurring entries

// ProcessRecurringEntry books one occurrence of a due recurring entry. The
// claim on last_processed makes concurrent triggers for the same due date
// produce a single posting; the loser gets Processed == false.
func (s *LedgerService) ProcessRecurringEntry(ctx context.Context, entryID string) (*RecurringResult, error) {
	now := s.Clock()
	result := &RecurringResult{}

	var balance decimal.Decimal
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		entry, err := tx.GetTransaction(ctx, entryID, true)
		if errors.Is(err, ErrNotFound) {
			return notFound("transaction")
		}
		if err != nil {
			return err
		}
		result.Entry = entry
		if !entry.IsRecurring {
			return invalid("transaction is not recurring")
		}
		if !IsDue(entry, now) {
			return nil
		}

		next, err := NextOccurrence(now, entry.RecurringInterval)
		if err != nil {
			return err
		}
		claimed, err := tx.ClaimRecurrence(ctx, entry.ID, entry.LastProcessed, now, next)
		if err != nil {
			return fmt.Errorf("claim recurring transaction: %w", err)
		}
		if !claimed {
			return nil
		}

		occurrence := newEntry(entry.UserID, entry.AccountID, entry.Type, entry.Amount, entry.Description, entry.Category, now, now)
		if balance, err = post(ctx, tx, occurrence); err != nil {
			return err
		}

		entry.LastProcessed = &now
		entry.NextRecurringDate = &next
		entry.UpdatedAt = now
		result.Processed = true
		result.Transaction = occurrence
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Processed {
		utils.LogLedgerAction("recurring transaction processed", result.Entry.AccountID, result.Entry.UserID, result.Transaction.SignedAmount())
		s.afterBalanceChange(ctx, result.Entry.UserID, result.Entry.AccountID, balance)
	}
	return result, nil
}

// ProcessDueRecurring processes every recurring entry due now and returns
// how many occurrences were booked. One failing entry does not stop the rest.
func (s *LedgerService) ProcessDueRecurring(ctx context.Context) (int, error) {
	var due []models.Transaction
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		due, err = tx.ListDueRecurring(ctx, s.Clock())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list due recurring transactions: %w", err)
	}

	processed := 0
	for _, entry := range due {
		res, err := s.ProcessRecurringEntry(ctx, entry.ID)
		if err != nil {
			utils.SafeError("processing recurring transaction %s failed: %v", entry.ID, err)
			continue
		}
		if res.Processed {
			processed++
		}
	}
	return processed, nil
}

// ---------------------------------------------------------------------------
// helpers

func (s *LedgerService) afterBalanceChange(ctx context.Context, userID, accountID string, balance decimal.Decimal) {
	s.events.Publish(userID, EventBalanceUpdated, map[string]interface{}{
		"account_id": accountID,
		"balance":    balance.InexactFloat64(),
	})
	s.evaluateRisk(ctx, userID)
}

func (s *LedgerService) evaluateRisk(ctx context.Context, userID string) {
	runRiskEvaluation(ctx, s.risk, userID)
}

func runRiskEvaluation(ctx context.Context, risk RiskEvaluator, userID string) {
	if risk == nil {
		return
	}
	if _, err := risk.EvaluateIssuedChecksRisk(ctx, userID); err != nil {
		utils.SafeError("risk evaluation for user %s failed: %v", userID, err)
	}
}

func normalizeInput(in TransactionInput, now time.Time) (TransactionInput, error) {
	if !in.Type.Valid() {
		return in, invalid("unknown transaction type %q", in.Type)
	}
	amount, err := validateAmount(in.Amount)
	if err != nil {
		return in, err
	}
	in.Amount = amount
	if in.AccountID == "" {
		return in, invalid("account is required")
	}
	if in.Date.IsZero() {
		in.Date = now
	}
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = SuggestCategory(in.Type, in.Description)
	}
	if in.IsRecurring {
		if _, err := NextOccurrence(in.Date, in.RecurringInterval); err != nil {
			return in, err
		}
	} else {
		in.RecurringInterval = ""
	}
	return in, nil
}

func validateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return amount, invalid("amount must be positive, got %s", amount.String())
	}
	return amount, nil
}

// ensureUser creates a bare profile for callers that never synced one, so
// their rows have an owner to reference.
func ensureUser(ctx context.Context, tx Tx, userID string, now time.Time) error {
	_, err := tx.GetUser(ctx, userID)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return tx.UpsertUser(ctx, &models.User{ID: userID, CreatedAt: now, UpdatedAt: now})
}

func ownedAccount(ctx context.Context, tx Tx, userID, accountID string, forUpdate bool) (*models.Account, error) {
	account, err := tx.GetAccount(ctx, accountID, forUpdate)
	if errors.Is(err, ErrNotFound) || (err == nil && account.UserID != userID) {
		return nil, notFound("account")
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func newEntry(userID, accountID string, typ models.TransactionType, amount decimal.Decimal, description, category string, date, now time.Time) *models.Transaction {
	return &models.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		AccountID:   accountID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		Date:        date,
		Category:    category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// post inserts entry and applies its signed amount to the account within the
// caller's unit of work, returning the new balance.
func post(ctx context.Context, tx Tx, entry *models.Transaction) (decimal.Decimal, error) {
	if err := tx.InsertTransaction(ctx, entry); err != nil {
		return decimal.Zero, fmt.Errorf("insert transaction: %w", err)
	}
	balance, err := tx.AddToBalance(ctx, entry.AccountID, entry.SignedAmount())
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	return balance, nil
}
