package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/shopspring/decimal"
)

// PostgresStore runs each unit of work in one database transaction. Rows
// read with forUpdate are locked with SELECT ... FOR UPDATE so concurrent
// read-modify-write sequences on the same account serialize.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// users

func (t *pgTx) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`
	return t.tx.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.UpdatedAt).Scan(&user.CreatedAt)
}

func (t *pgTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	return &u, nil
}

func (t *pgTx) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------------------------------------------------------------------------
// accounts

const accountColumns = `id, user_id, name, type, balance, is_default, created_at, updated_at`

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, noRows(err)
	}
	return &a, nil
}

func (t *pgTx) InsertAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.tx.ExecContext(ctx, query, a.ID, a.UserID, a.Name, a.Type, a.Balance, a.IsDefault, a.CreatedAt, a.UpdatedAt)
	return err
}

func (t *pgTx) GetAccount(ctx context.Context, id string, forUpdate bool) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`+lockClause(forUpdate), id)
	return scanAccount(row)
}

func (t *pgTx) FindDefaultAccount(ctx context.Context, userID string, forUpdate bool) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND is_default = TRUE LIMIT 1`+lockClause(forUpdate), userID)
	return scanAccount(row)
}

func (t *pgTx) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (t *pgTx) ClearDefaultAccount(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default = TRUE`, userID)
	return err
}

func (t *pgTx) MarkDefaultAccount(ctx context.Context, accountID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET is_default = TRUE, updated_at = NOW() WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) AddToBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.tx.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`,
		delta, accountID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, noRows(err)
	}
	return balance, nil
}

// ---------------------------------------------------------------------------
// transactions

const transactionColumns = `id, user_id, account_id, type, amount, description, date, category,
	is_recurring, recurring_interval, next_recurring_date, last_processed, bill_id, check_id, created_at, updated_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn             models.Transaction
		interval        sql.NullString
		next, last      sql.NullTime
		billID, checkID sql.NullString
	)
	err := row.Scan(&txn.ID, &txn.UserID, &txn.AccountID, &txn.Type, &txn.Amount, &txn.Description, &txn.Date, &txn.Category,
		&txn.IsRecurring, &interval, &next, &last, &billID, &checkID, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	txn.RecurringInterval = models.RecurringInterval(interval.String)
	txn.NextRecurringDate = timePtr(next)
	txn.LastProcessed = timePtr(last)
	txn.BillID = billID.String
	txn.CheckID = checkID.String
	return &txn, nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := t.tx.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.AccountID, txn.Type, txn.Amount, txn.Description, txn.Date, txn.Category,
		txn.IsRecurring, nullString(string(txn.RecurringInterval)), nullTime(txn.NextRecurringDate), nullTime(txn.LastProcessed),
		nullString(txn.BillID), nullString(txn.CheckID), txn.CreatedAt, txn.UpdatedAt,
	)
	return err
}

func (t *pgTx) GetTransaction(ctx context.Context, id string, forUpdate bool) (*models.Transaction, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`+lockClause(forUpdate), id)
	return scanTransaction(row)
}

func (t *pgTx) UpdateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		UPDATE transactions
		SET type = $1, amount = $2, description = $3, date = $4, category = $5,
		    is_recurring = $6, recurring_interval = $7, next_recurring_date = $8, updated_at = $9
		WHERE id = $10
	`
	res, err := t.tx.ExecContext(ctx, query,
		txn.Type, txn.Amount, txn.Description, txn.Date, txn.Category,
		txn.IsRecurring, nullString(string(txn.RecurringInterval)), nullTime(txn.NextRecurringDate), txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *txn)
	}
	return out, rows.Err()
}

func (t *pgTx) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return t.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY date DESC, created_at DESC`, accountID)
}

func (t *pgTx) ListDueRecurring(ctx context.Context, asOf time.Time) ([]models.Transaction, error) {
	return t.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE is_recurring = TRUE AND recurring_interval IS NOT NULL
		  AND (last_processed IS NULL OR next_recurring_date <= $1)
		ORDER BY created_at`, asOf)
}

func (t *pgTx) ClaimRecurrence(ctx context.Context, id string, prev *time.Time, processedAt, next time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE transactions
		SET last_processed = $1, next_recurring_date = $2, updated_at = $1
		WHERE id = $3 AND last_processed IS NOT DISTINCT FROM $4::timestamptz`,
		processedAt, next, id, nullTime(prev))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *pgTx) SumExpenses(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := t.tx.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM transactions WHERE account_id = $1 AND type = 'EXPENSE' AND date >= $2`,
		accountID, since,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// ---------------------------------------------------------------------------
// bills

const billColumns = `id, user_id, account_id, name, category, amount, due_date, frequency, status, is_paid,
	source, confidence, linked_transaction_id, created_at, updated_at`

func scanBill(row rowScanner) (*models.Bill, error) {
	var (
		b          models.Bill
		confidence sql.NullFloat64
		linked     sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.AccountID, &b.Name, &b.Category, &b.Amount, &b.DueDate, &b.Frequency, &b.Status, &b.IsPaid,
		&b.Source, &confidence, &linked, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	if confidence.Valid {
		c := confidence.Float64
		b.Confidence = &c
	}
	b.LinkedTransactionID = linked.String
	return &b, nil
}

func (t *pgTx) InsertBill(ctx context.Context, b *models.Bill) error {
	var confidence sql.NullFloat64
	if b.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *b.Confidence, Valid: true}
	}
	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := t.tx.ExecContext(ctx, query,
		b.ID, b.UserID, b.AccountID, b.Name, b.Category, b.Amount, b.DueDate, b.Frequency, b.Status, b.IsPaid,
		b.Source, confidence, nullString(b.LinkedTransactionID), b.CreatedAt, b.UpdatedAt)
	return err
}

func (t *pgTx) GetBill(ctx context.Context, id string, forUpdate bool) (*models.Bill, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`+lockClause(forUpdate), id)
	return scanBill(row)
}

func (t *pgTx) UpdateBill(ctx context.Context, b *models.Bill) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bills SET status = $1, is_paid = $2, linked_transaction_id = $3, updated_at = $4
		WHERE id = $5`,
		b.Status, b.IsPaid, nullString(b.LinkedTransactionID), b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) ListBills(ctx context.Context, userID string) ([]models.Bill, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+billColumns+` FROM bills WHERE user_id = $1 ORDER BY due_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// ---------------------------------------------------------------------------
// checks

const checkColumns = `id, user_id, type, payee_or_payer, amount, issue_date, deposit_date, bank_name, check_number,
	status, alerted, linked_transaction_id, created_at, updated_at`

func scanCheck(row rowScanner) (*models.Check, error) {
	var (
		c                        models.Check
		bankName, number, linked sql.NullString
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Type, &c.PayeeOrPayer, &c.Amount, &c.IssueDate, &c.DepositDate, &bankName, &number,
		&c.Status, &c.Alerted, &linked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	c.BankName = bankName.String
	c.CheckNumber = number.String
	c.LinkedTransactionID = linked.String
	return &c, nil
}

func (t *pgTx) InsertCheck(ctx context.Context, c *models.Check) error {
	query := `
		INSERT INTO checks (` + checkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := t.tx.ExecContext(ctx, query,
		c.ID, c.UserID, c.Type, c.PayeeOrPayer, c.Amount, c.IssueDate, c.DepositDate, nullString(c.BankName), nullString(c.CheckNumber),
		c.Status, c.Alerted, nullString(c.LinkedTransactionID), c.CreatedAt, c.UpdatedAt)
	return err
}

func (t *pgTx) GetCheck(ctx context.Context, id string, forUpdate bool) (*models.Check, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1`+lockClause(forUpdate), id)
	return scanCheck(row)
}

func (t *pgTx) UpdateCheck(ctx context.Context, c *models.Check) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE checks SET status = $1, alerted = $2, linked_transaction_id = $3, updated_at = $4
		WHERE id = $5`,
		c.Status, c.Alerted, nullString(c.LinkedTransactionID), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) ListChecks(ctx context.Context, userID string, filter CheckFilter) ([]models.Check, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+checkColumns+` FROM checks
		WHERE user_id = $1 AND ($2::text = '' OR type = $2) AND ($3::text = '' OR status = $3)
		ORDER BY issue_date ASC, created_at ASC`,
		userID, string(filter.Type), string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []models.Check
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, *c)
	}
	return checks, rows.Err()
}

func (t *pgTx) ClaimCheckAlert(ctx context.Context, id string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE checks SET alerted = TRUE, updated_at = NOW() WHERE id = $1 AND alerted = FALSE`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *pgTx) ReleaseCheckAlert(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE checks SET alerted = FALSE, updated_at = NOW() WHERE id = $1 AND status <> 'CLEARED'`, id)
	return err
}

// ---------------------------------------------------------------------------
// budgets

func (t *pgTx) UpsertBudget(ctx context.Context, b *models.Budget) error {
	var last sql.NullTime
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO budgets (id, user_id, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, last_alert_sent`,
		b.ID, b.UserID, b.Amount, b.UpdatedAt,
	).Scan(&b.ID, &b.CreatedAt, &last)
	if err != nil {
		return err
	}
	b.LastAlertSent = timePtr(last)
	return nil
}

func (t *pgTx) GetBudget(ctx context.Context, userID string) (*models.Budget, error) {
	var (
		b    models.Budget
		last sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, user_id, amount, last_alert_sent, created_at, updated_at FROM budgets WHERE user_id = $1`, userID,
	).Scan(&b.ID, &b.UserID, &b.Amount, &last, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	b.LastAlertSent = timePtr(last)
	return &b, nil
}

func (t *pgTx) ClaimBudgetAlert(ctx context.Context, id string, prev *time.Time, sentAt time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE budgets SET last_alert_sent = $1, updated_at = $1
		WHERE id = $2 AND last_alert_sent IS NOT DISTINCT FROM $3::timestamptz`,
		sentAt, id, nullTime(prev))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
