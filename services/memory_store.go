package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LovationAdmin/ledger-api/models"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process. Units of work are serialized by
// a single mutex and applied to a copy that replaces the live state only
// when fn returns nil.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	users        map[string]models.User
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	bills        map[string]models.Bill
	checks       map[string]models.Check
	budgets      map[string]models.Budget
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		users:        map[string]models.User{},
		accounts:     map[string]models.Account{},
		transactions: map[string]models.Transaction{},
		bills:        map[string]models.Bill{},
		checks:       map[string]models.Check{},
		budgets:      map[string]models.Budget{},
	}}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memoryTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (st *memoryState) clone() *memoryState {
	return &memoryState{
		users:        cloneMap(st.users),
		accounts:     cloneMap(st.accounts),
		transactions: cloneMap(st.transactions),
		bills:        cloneMap(st.bills),
		checks:       cloneMap(st.checks),
		budgets:      cloneMap(st.budgets),
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memoryTx struct {
	st *memoryState
}

func (t *memoryTx) UpsertUser(_ context.Context, user *models.User) error {
	if existing, ok := t.st.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	t.st.users[user.ID] = *user
	return nil
}

func (t *memoryTx) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memoryTx) ListUserIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(t.st.users))
	for id := range t.st.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *memoryTx) InsertAccount(_ context.Context, account *models.Account) error {
	t.st.accounts[account.ID] = *account
	return nil
}

func (t *memoryTx) GetAccount(_ context.Context, id string, _ bool) (*models.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memoryTx) FindDefaultAccount(_ context.Context, userID string, _ bool) (*models.Account, error) {
	for _, a := range t.st.accounts {
		if a.UserID == userID && a.IsDefault {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) ListAccounts(_ context.Context, userID string) ([]models.Account, error) {
	var out []models.Account
	for _, a := range t.st.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memoryTx) ClearDefaultAccount(_ context.Context, userID string) error {
	for id, a := range t.st.accounts {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			t.st.accounts[id] = a
		}
	}
	return nil
}

func (t *memoryTx) MarkDefaultAccount(_ context.Context, accountID string) error {
	a, ok := t.st.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.IsDefault = true
	t.st.accounts[accountID] = a
	return nil
}

func (t *memoryTx) AddToBalance(_ context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	a, ok := t.st.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	t.st.accounts[accountID] = a
	return a.Balance, nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, txn *models.Transaction) error {
	t.st.transactions[txn.ID] = *txn
	return nil
}

func (t *memoryTx) GetTransaction(_ context.Context, id string, _ bool) (*models.Transaction, error) {
	txn, ok := t.st.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &txn, nil
}

func (t *memoryTx) UpdateTransaction(_ context.Context, txn *models.Transaction) error {
	if _, ok := t.st.transactions[txn.ID]; !ok {
		return ErrNotFound
	}
	t.st.transactions[txn.ID] = *txn
	return nil
}

func (t *memoryTx) ListTransactions(_ context.Context, accountID string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range t.st.transactions {
		if txn.AccountID == accountID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memoryTx) ListDueRecurring(_ context.Context, asOf time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range t.st.transactions {
		if IsDue(&txn, asOf) {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memoryTx) ClaimRecurrence(_ context.Context, id string, prev *time.Time, processedAt, next time.Time) (bool, error) {
	txn, ok := t.st.transactions[id]
	if !ok {
		return false, ErrNotFound
	}
	if !sameInstant(txn.LastProcessed, prev) {
		return false, nil
	}
	txn.LastProcessed = &processedAt
	txn.NextRecurringDate = &next
	txn.UpdatedAt = processedAt
	t.st.transactions[id] = txn
	return true, nil
}

func (t *memoryTx) SumExpenses(_ context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, txn := range t.st.transactions {
		if txn.AccountID == accountID && txn.Type == models.Expense && !txn.Date.Before(since) {
			total = total.Add(txn.Amount)
		}
	}
	return total, nil
}

func (t *memoryTx) InsertBill(_ context.Context, bill *models.Bill) error {
	t.st.bills[bill.ID] = *bill
	return nil
}

func (t *memoryTx) GetBill(_ context.Context, id string, _ bool) (*models.Bill, error) {
	b, ok := t.st.bills[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memoryTx) UpdateBill(_ context.Context, bill *models.Bill) error {
	if _, ok := t.st.bills[bill.ID]; !ok {
		return ErrNotFound
	}
	t.st.bills[bill.ID] = *bill
	return nil
}

func (t *memoryTx) ListBills(_ context.Context, userID string) ([]models.Bill, error) {
	var out []models.Bill
	for _, b := range t.st.bills {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (t *memoryTx) InsertCheck(_ context.Context, check *models.Check) error {
	t.st.checks[check.ID] = *check
	return nil
}

func (t *memoryTx) GetCheck(_ context.Context, id string, _ bool) (*models.Check, error) {
	c, ok := t.st.checks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (t *memoryTx) UpdateCheck(_ context.Context, check *models.Check) error {
	if _, ok := t.st.checks[check.ID]; !ok {
		return ErrNotFound
	}
	t.st.checks[check.ID] = *check
	return nil
}

func (t *memoryTx) ListChecks(_ context.Context, userID string, filter CheckFilter) ([]models.Check, error) {
	var out []models.Check
	for _, c := range t.st.checks {
		if c.UserID != userID {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.Before(out[j].IssueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memoryTx) ClaimCheckAlert(_ context.Context, id string) (bool, error) {
	c, ok := t.st.checks[id]
	if !ok {
		return false, ErrNotFound
	}
	if c.Alerted {
		return false, nil
	}
	c.Alerted = true
	t.st.checks[id] = c
	return true, nil
}

func (t *memoryTx) ReleaseCheckAlert(_ context.Context, id string) error {
	c, ok := t.st.checks[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != models.CheckCleared {
		c.Alerted = false
		t.st.checks[id] = c
	}
	return nil
}

func (t *memoryTx) UpsertBudget(_ context.Context, budget *models.Budget) error {
	for id, b := range t.st.budgets {
		if b.UserID == budget.UserID {
			budget.ID = id
			budget.CreatedAt = b.CreatedAt
			budget.LastAlertSent = b.LastAlertSent
		}
	}
	t.st.budgets[budget.ID] = *budget
	return nil
}

func (t *memoryTx) GetBudget(_ context.Context, userID string) (*models.Budget, error) {
	for _, b := range t.st.budgets {
		if b.UserID == userID {
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memoryTx) ClaimBudgetAlert(_ context.Context, id string, prev *time.Time, sentAt time.Time) (bool, error) {
	b, ok := t.st.budgets[id]
	if !ok {
		return false, ErrNotFound
	}
	if !sameInstant(b.LastAlertSent, prev) {
		return false, nil
	}
	b.LastAlertSent = &sentAt
	t.st.budgets[id] = b
	return true, nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
