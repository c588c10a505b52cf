package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

func InitDB() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return OpenDB(dbURL)
}

// OpenDB opens and pings a Postgres connection pool.
func OpenDB(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrations is the ordered, idempotent schema. User ids come from the
// identity provider and are stored as text.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email VARCHAR(255) NOT NULL DEFAULT '',
		name VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(20) NOT NULL CHECK (type IN ('CURRENT', 'SAVINGS')),
		balance NUMERIC(14,2) NOT NULL DEFAULT 0,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bills (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		due_date TIMESTAMPTZ NOT NULL,
		frequency VARCHAR(50) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		source VARCHAR(20) NOT NULL DEFAULT 'MANUAL',
		confidence DOUBLE PRECISION,
		linked_transaction_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS checks (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(20) NOT NULL CHECK (type IN ('ISSUED', 'RECEIVED')),
		payee_or_payer VARCHAR(255) NOT NULL,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		issue_date TIMESTAMPTZ NOT NULL,
		deposit_date TIMESTAMPTZ NOT NULL,
		bank_name VARCHAR(255),
		check_number VARCHAR(100),
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		alerted BOOLEAN NOT NULL DEFAULT FALSE,
		linked_transaction_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		type VARCHAR(10) NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		description TEXT NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL,
		category VARCHAR(100) NOT NULL,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		recurring_interval VARCHAR(10),
		next_recurring_date TIMESTAMPTZ,
		last_processed TIMESTAMPTZ,
		bill_id UUID REFERENCES bills(id) ON DELETE SET NULL,
		check_id UUID REFERENCES checks(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS budgets (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		last_alert_sent TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// at most one default account per user
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_one_default ON accounts(user_id) WHERE is_default`,
	// a bill or a check is settled by at most one entry
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_bill_id ON transactions(bill_id) WHERE bill_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_check_id ON transactions(check_id) WHERE check_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_recurring ON transactions(next_recurring_date) WHERE is_recurring`,
	`CREATE INDEX IF NOT EXISTS idx_bills_user_due ON bills(user_id, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_checks_user_status ON checks(user_id, type, status)`,
}

func RunMigrations(db *sql.DB) error {
	for _, migration := range Migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
