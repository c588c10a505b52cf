package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_CreateAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.account(t, 250)
	assert.True(t, first.IsDefault)
	assertAmount(t, 250, first.Balance)
	f.assertBalanceMatchesEntries(t, first.ID)

	entries, err := f.ledger.ListTransactions(ctx, testUser, first.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.Income, entries[0].Type)
	assert.Equal(t, "Opening balance", entries[0].Description)

	second, err := f.ledger.CreateAccount(ctx, testUser, services.AccountInput{
		Name: "Savings",
		Type: models.AccountSavings,
	})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
	assert.True(t, second.Balance.IsZero())

	third, err := f.ledger.CreateAccount(ctx, testUser, services.AccountInput{
		Name:      "Joint",
		Type:      models.AccountCurrent,
		IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, third.IsDefault)

	accounts, err := f.ledger.ListAccounts(ctx, testUser)
	require.NoError(t, err)
	defaults := 0
	for _, a := range accounts {
		if a.IsDefault {
			defaults++
			assert.Equal(t, third.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	promoted, err := f.ledger.SetDefaultAccount(ctx, testUser, first.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsDefault)

	accounts, err = f.ledger.ListAccounts(ctx, testUser)
	require.NoError(t, err)
	for _, a := range accounts {
		assert.Equal(t, a.ID == first.ID, a.IsDefault, a.Name)
	}
}

func TestLedgerService_CreateAccountValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.ledger.CreateAccount(ctx, testUser, services.AccountInput{Name: " ", Type: models.AccountCurrent})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	_, err = f.ledger.CreateAccount(ctx, testUser, services.AccountInput{Name: "x", Type: "CRYPTO"})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	_, err = f.ledger.CreateAccount(ctx, testUser, services.AccountInput{Name: "x", Type: models.AccountCurrent, InitialBalance: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)

	_, err = f.ledger.CreateAccount(ctx, "", services.AccountInput{Name: "x", Type: models.AccountCurrent})
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestLedgerService_PostTransaction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 100)

	income := f.post(t, account.ID, models.Income, 40)
	assertAmount(t, 40, income.Amount)
	f.post(t, account.ID, models.Expense, 15)

	assertAmount(t, 125, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)
	assert.Equal(t, 2, f.events.count(services.EventBalanceUpdated))

	got, err := f.ledger.GetTransaction(ctx, testUser, income.ID)
	require.NoError(t, err)
	assert.Equal(t, income.ID, got.ID)

	t.Run("amount is rounded to cents", func(t *testing.T) {
		txn, err := f.ledger.PostTransaction(ctx, testUser, services.TransactionInput{
			AccountID: account.ID,
			Type:      models.Expense,
			Amount:    decimal.RequireFromString("10.005"),
		})
		require.NoError(t, err)
		assert.Equal(t, "10.01", txn.Amount.StringFixed(2))
		f.assertBalanceMatchesEntries(t, account.ID)
	})

	t.Run("empty category is suggested from description", func(t *testing.T) {
		txn, err := f.ledger.PostTransaction(ctx, testUser, services.TransactionInput{
			AccountID:   account.ID,
			Type:        models.Expense,
			Amount:      decimal.NewFromInt(12),
			Description: "Netflix subscription",
		})
		require.NoError(t, err)
		assert.Equal(t, "entertainment", txn.Category)
		assert.Equal(t, f.now, txn.Date)
	})
}

func TestLedgerService_PostTransactionErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 100)

	tests := []struct {
		name    string
		userID  string
		in      services.TransactionInput
		wantErr error
	}{
		{
			name:    "no user",
			userID:  "",
			in:      services.TransactionInput{AccountID: account.ID, Type: models.Income, Amount: decimal.NewFromInt(1)},
			wantErr: services.ErrUnauthorized,
		},
		{
			name:    "zero amount",
			userID:  testUser,
			in:      services.TransactionInput{AccountID: account.ID, Type: models.Income},
			wantErr: services.ErrInvalidArgument,
		},
		{
			name:    "negative amount",
			userID:  testUser,
			in:      services.TransactionInput{AccountID: account.ID, Type: models.Expense, Amount: decimal.NewFromInt(-3)},
			wantErr: services.ErrInvalidArgument,
		},
		{
			name:    "unknown type",
			userID:  testUser,
			in:      services.TransactionInput{AccountID: account.ID, Type: "TRANSFER", Amount: decimal.NewFromInt(1)},
			wantErr: services.ErrInvalidArgument,
		},
		{
			name:   "unknown interval",
			userID: testUser,
			in: services.TransactionInput{
				AccountID: account.ID, Type: models.Expense, Amount: decimal.NewFromInt(1),
				IsRecurring: true, RecurringInterval: "HOURLY",
			},
			wantErr: services.ErrInvalidInterval,
		},
		{
			name:    "missing account",
			userID:  testUser,
			in:      services.TransactionInput{AccountID: "nope", Type: models.Income, Amount: decimal.NewFromInt(1)},
			wantErr: services.ErrNotFound,
		},
		{
			name:    "someone else's account",
			userID:  "user-2",
			in:      services.TransactionInput{AccountID: account.ID, Type: models.Income, Amount: decimal.NewFromInt(1)},
			wantErr: services.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.PostTransaction(ctx, tt.userID, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// nothing above may have moved the balance
	assertAmount(t, 100, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)
}

func TestLedgerService_UpdateTransaction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 1000)

	txn := f.post(t, account.ID, models.Expense, 100)
	assertAmount(t, 900, f.balance(t, account.ID))

	updated, err := f.ledger.UpdateTransaction(ctx, testUser, txn.ID, services.TransactionInput{
		Type:     models.Expense,
		Amount:   decimal.NewFromInt(150),
		Category: "groceries",
	})
	require.NoError(t, err)
	assertAmount(t, 150, updated.Amount)
	assert.Equal(t, txn.Date, updated.Date)
	assertAmount(t, 850, f.balance(t, account.ID))

	// flipping the kind swings the balance by twice the amount
	_, err = f.ledger.UpdateTransaction(ctx, testUser, txn.ID, services.TransactionInput{
		Type:   models.Income,
		Amount: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assertAmount(t, 1150, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)

	t.Run("recurrence is set and cleared", func(t *testing.T) {
		withRecurrence, err := f.ledger.UpdateTransaction(ctx, testUser, txn.ID, services.TransactionInput{
			Type:              models.Income,
			Amount:            decimal.NewFromInt(150),
			IsRecurring:       true,
			RecurringInterval: models.Weekly,
		})
		require.NoError(t, err)
		require.NotNil(t, withRecurrence.NextRecurringDate)
		assert.Equal(t, txn.Date.AddDate(0, 0, 7), *withRecurrence.NextRecurringDate)

		without, err := f.ledger.UpdateTransaction(ctx, testUser, txn.ID, services.TransactionInput{
			Type:   models.Income,
			Amount: decimal.NewFromInt(150),
		})
		require.NoError(t, err)
		assert.False(t, without.IsRecurring)
		assert.Nil(t, without.NextRecurringDate)
		assertAmount(t, 1150, f.balance(t, account.ID))
	})

	t.Run("cannot move between accounts", func(t *testing.T) {
		other, err := f.ledger.CreateAccount(ctx, testUser, services.AccountInput{Name: "Other", Type: models.AccountSavings})
		require.NoError(t, err)
		_, err = f.ledger.UpdateTransaction(ctx, testUser, txn.ID, services.TransactionInput{
			AccountID: other.ID,
			Type:      models.Income,
			Amount:    decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, services.ErrInvalidArgument)
	})

	t.Run("not found for another user", func(t *testing.T) {
		_, err := f.ledger.UpdateTransaction(ctx, "user-2", txn.ID, services.TransactionInput{
			Type:   models.Income,
			Amount: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	t.Run("invalid amount leaves balance alone", func(t *testing.T) {
		_, err := f.ledger.UpdateTransaction(ctx, testUser, txn.ID, services.TransactionInput{
			Type:   models.Income,
			Amount: decimal.Zero,
		})
		assert.ErrorIs(t, err, services.ErrInvalidArgument)
		assertAmount(t, 1150, f.balance(t, account.ID))
	})
}

func TestLedgerService_SettlementEntriesAreImmutable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 500)

	bill, err := f.bills.CreateBill(ctx, testUser, services.BillInput{
		AccountID: account.ID,
		Name:      "Electricity",
		Amount:    decimal.NewFromInt(80),
		DueDate:   f.now.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	paid, err := f.bills.PayBill(ctx, testUser, bill.ID)
	require.NoError(t, err)

	_, err = f.ledger.UpdateTransaction(ctx, testUser, paid.Transaction.ID, services.TransactionInput{
		Type:   models.Expense,
		Amount: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, services.ErrInvalidArgument)
	assertAmount(t, 420, f.balance(t, account.ID))
}

func TestLedgerService_ConcurrentPostings(t *testing.T) {
	f := newFixture(t, nil)
	account := f.account(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := models.Income
			if i%2 == 1 {
				typ = models.Expense
			}
			_, err := f.ledger.PostTransaction(context.Background(), testUser, services.TransactionInput{
				AccountID: account.ID,
				Type:      typ,
				Amount:    decimal.NewFromInt(int64(10 + i)),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// incomes 10,12,...,28 and expenses 11,13,...,29
	assertAmount(t, -10, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)
}

func TestLedgerService_ProcessRecurringEntry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 1000)

	rent, err := f.ledger.PostTransaction(ctx, testUser, services.TransactionInput{
		AccountID:         account.ID,
		Type:              models.Expense,
		Amount:            decimal.NewFromInt(300),
		Date:              f.now.AddDate(0, -1, 0),
		Category:          "housing",
		Description:       "Rent",
		IsRecurring:       true,
		RecurringInterval: models.Monthly,
	})
	require.NoError(t, err)
	require.NotNil(t, rent.NextRecurringDate)
	assert.Equal(t, f.now, *rent.NextRecurringDate)
	assertAmount(t, 700, f.balance(t, account.ID))

	result, err := f.ledger.ProcessRecurringEntry(ctx, rent.ID)
	require.NoError(t, err)
	require.True(t, result.Processed)
	assert.False(t, result.Transaction.IsRecurring)
	assert.Equal(t, "housing", result.Transaction.Category)
	assert.Equal(t, f.now, result.Transaction.Date)
	assertAmount(t, 400, f.balance(t, account.ID))

	stored, err := f.ledger.GetTransaction(ctx, testUser, rent.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastProcessed)
	assert.Equal(t, f.now, *stored.LastProcessed)
	assert.Equal(t, f.now.AddDate(0, 1, 0), *stored.NextRecurringDate)

	// same due date again: nothing to do
	result, err = f.ledger.ProcessRecurringEntry(ctx, rent.ID)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assertAmount(t, 400, f.balance(t, account.ID))

	f.now = f.now.AddDate(0, 1, 0)
	result, err = f.ledger.ProcessRecurringEntry(ctx, rent.ID)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assertAmount(t, 100, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)

	t.Run("non recurring entry is rejected", func(t *testing.T) {
		_, err := f.ledger.ProcessRecurringEntry(ctx, result.Transaction.ID)
		assert.ErrorIs(t, err, services.ErrInvalidArgument)
	})

	t.Run("missing entry", func(t *testing.T) {
		_, err := f.ledger.ProcessRecurringEntry(ctx, "missing")
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestLedgerService_RecurringEntryProcessedOnceUnderContention(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 500)

	sub, err := f.ledger.PostTransaction(ctx, testUser, services.TransactionInput{
		AccountID:         account.ID,
		Type:              models.Expense,
		Amount:            decimal.NewFromInt(20),
		IsRecurring:       true,
		RecurringInterval: models.Daily,
	})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.ledger.ProcessRecurringEntry(ctx, sub.ID)
			if !assert.NoError(t, err) {
				return
			}
			if res.Processed {
				mu.Lock()
				processed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, processed)
	assertAmount(t, 460, f.balance(t, account.ID))
}

func TestLedgerService_ProcessDueRecurring(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 1000)

	for _, interval := range []models.RecurringInterval{models.Daily, models.Weekly} {
		_, err := f.ledger.PostTransaction(ctx, testUser, services.TransactionInput{
			AccountID:         account.ID,
			Type:              models.Expense,
			Amount:            decimal.NewFromInt(10),
			IsRecurring:       true,
			RecurringInterval: interval,
		})
		require.NoError(t, err)
	}

	n, err := f.ledger.ProcessDueRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.ledger.ProcessDueRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.now = f.now.Add(25 * time.Hour)
	n, err = f.ledger.ProcessDueRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assertAmount(t, 950, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)
}

func TestLedgerService_SyncUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user, err := f.ledger.SyncUser(ctx, testUser, " new@example.com ", "Ann B")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	ids, err := f.ledger.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testUser}, ids)

	_, err = f.ledger.SyncUser(ctx, "", "x@example.com", "x")
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}
