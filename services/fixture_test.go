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

const (
	testUser  = "user-1"
	testEmail = "ann@example.com"
)

// fixture wires every service over one memory store with a shared,
// adjustable clock.
type fixture struct {
	store   services.Store
	ledger  *services.LedgerService
	bills   *services.BillService
	checks  *services.CheckService
	budgets *services.BudgetService
	events  *recordingPublisher

	now time.Time
}

func newFixture(t *testing.T, notifier services.Notifier) *fixture {
	t.Helper()
	return newFixtureWithStore(t, services.NewMemoryStore(), notifier)
}

func newFixtureWithStore(t *testing.T, store services.Store, notifier services.Notifier) *fixture {
	t.Helper()

	f := &fixture{
		store:  store,
		events: &recordingPublisher{},
		now:    time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.checks = services.NewCheckService(f.store, notifier, f.events)
	f.ledger = services.NewLedgerService(f.store, f.checks, f.events)
	f.bills = services.NewBillService(f.store, f.checks, f.events)
	f.budgets = services.NewBudgetService(f.store, notifier)
	f.checks.Clock = clock
	f.ledger.Clock = clock
	f.bills.Clock = clock
	f.budgets.Clock = clock

	_, err := f.ledger.SyncUser(context.Background(), testUser, testEmail, "Ann")
	require.NoError(t, err)
	return f
}

func (f *fixture) account(t *testing.T, balance int64) *models.Account {
	t.Helper()
	account, err := f.ledger.CreateAccount(context.Background(), testUser, services.AccountInput{
		Name:           "Main",
		Type:           models.AccountCurrent,
		InitialBalance: decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) post(t *testing.T, accountID string, typ models.TransactionType, amount int64) *models.Transaction {
	t.Helper()
	txn, err := f.ledger.PostTransaction(context.Background(), testUser, services.TransactionInput{
		AccountID: accountID,
		Type:      typ,
		Amount:    decimal.NewFromInt(amount),
		Category:  "test",
	})
	require.NoError(t, err)
	return txn
}

func (f *fixture) issueCheck(t *testing.T, payee string, amount int64, issued, deposit time.Time) *models.Check {
	t.Helper()
	check, err := f.checks.CreateCheck(context.Background(), testUser, services.CheckInput{
		Type:         models.CheckIssued,
		PayeeOrPayer: payee,
		Amount:       decimal.NewFromInt(amount),
		IssueDate:    issued,
		DepositDate:  deposit,
	})
	require.NoError(t, err)
	return check
}

func (f *fixture) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	accounts, err := f.ledger.ListAccounts(context.Background(), testUser)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.ID == accountID {
			return a.Balance
		}
	}
	t.Fatalf("account %s not found", accountID)
	return decimal.Zero
}

func (f *fixture) check(t *testing.T, id string) models.Check {
	t.Helper()
	list, err := f.checks.ListChecks(context.Background(), testUser, services.CheckFilter{})
	require.NoError(t, err)
	for _, c := range list.Checks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("check %s not found", id)
	return models.Check{}
}

// assertBalanceMatchesEntries checks that the balance equals the signed sum
// of every entry posted to the account.
func (f *fixture) assertBalanceMatchesEntries(t *testing.T, accountID string) {
	t.Helper()
	entries, err := f.ledger.ListTransactions(context.Background(), testUser, accountID)
	require.NoError(t, err)

	sum := decimal.Zero
	for i := range entries {
		sum = sum.Add(entries[i].SignedAmount())
	}
	balance := f.balance(t, accountID)
	assert.True(t, sum.Equal(balance), "balance %s != sum of entries %s", balance, sum)
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

type publishedEvent struct {
	UserID  string
	Event   string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(userID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event, Payload: payload})
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event == event {
			n++
		}
	}
	return n
}
