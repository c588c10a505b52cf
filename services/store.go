package services

import (
	"context"
	"time"

	"github.com/LovationAdmin/ledger-api/models"

	"github.com/shopspring/decimal"
)

// Store runs units of work against the persistence layer. Every write made
// through the Tx handed to fn commits together or not at all.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// CheckFilter narrows ListChecks; zero values match everything.
type CheckFilter struct {
	Type   models.CheckType
	Status models.CheckStatus
}

// Tx is the set of reads and writes available inside one unit of work.
// Getters return ErrNotFound when the row is missing. forUpdate locks the
// row until the unit of work ends.
type Tx interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	InsertAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string, forUpdate bool) (*models.Account, error)
	FindDefaultAccount(ctx context.Context, userID string, forUpdate bool) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	ClearDefaultAccount(ctx context.Context, userID string) error
	MarkDefaultAccount(ctx context.Context, accountID string) error
	// AddToBalance applies delta as a single increment and returns the new balance.
	AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)

	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, id string, forUpdate bool) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error)
	ListDueRecurring(ctx context.Context, asOf time.Time) ([]models.Transaction, error)
	// ClaimRecurrence moves last_processed from prev to processedAt only if
	// nobody else moved it first. It reports whether the claim was won.
	ClaimRecurrence(ctx context.Context, id string, prev *time.Time, processedAt, next time.Time) (bool, error)
	SumExpenses(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error)

	InsertBill(ctx context.Context, bill *models.Bill) error
	GetBill(ctx context.Context, id string, forUpdate bool) (*models.Bill, error)
	UpdateBill(ctx context.Context, bill *models.Bill) error
	ListBills(ctx context.Context, userID string) ([]models.Bill, error)

	InsertCheck(ctx context.Context, check *models.Check) error
	GetCheck(ctx context.Context, id string, forUpdate bool) (*models.Check, error)
	UpdateCheck(ctx context.Context, check *models.Check) error
	// ListChecks orders by issue date, then creation time.
	ListChecks(ctx context.Context, userID string, filter CheckFilter) ([]models.Check, error)
	// ClaimCheckAlert flips alerted from false to true and reports whether
	// this call did the flip.
	ClaimCheckAlert(ctx context.Context, id string) (bool, error)
	// ReleaseCheckAlert undoes a claim whose alert could not be delivered.
	// Cleared checks are left alone.
	ReleaseCheckAlert(ctx context.Context, id string) error

	UpsertBudget(ctx context.Context, budget *models.Budget) error
	GetBudget(ctx context.Context, userID string) (*models.Budget, error)
	ClaimBudgetAlert(ctx context.Context, id string, prev *time.Time, sentAt time.Time) (bool, error)
}
