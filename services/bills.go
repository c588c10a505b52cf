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

// BillService tracks payable obligations. Paying a bill posts exactly one
// EXPENSE entry, in the same unit of work that marks it PAID.
type BillService struct {
	store  Store
	risk   RiskEvaluator
	events EventPublisher

	Clock func() time.Time
}

func NewBillService(store Store, risk RiskEvaluator, events EventPublisher) *BillService {
	return &BillService{
		store:  store,
		risk:   risk,
		events: publisherOrNoop(events),
		Clock:  time.Now,
	}
}

type BillInput struct {
	AccountID  string
	Name       string
	Category   string
	Amount     decimal.Decimal
	DueDate    time.Time
	Frequency  string
	Source     models.BillSource
	Confidence *float64
}

type PayResult struct {
	Bill        *models.Bill        `json:"bill"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	AlreadyPaid bool                `json:"already_paid"`
}

func (s *BillService) CreateBill(ctx context.Context, userID string, in BillInput) (*models.Bill, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("bill name is required")
	}
	amount, err := validateAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.DueDate.IsZero() {
		return nil, invalid("due date is required")
	}
	switch in.Source {
	case "":
		in.Source = models.BillSourceManual
	case models.BillSourceManual, models.BillSourceAIScan:
	default:
		return nil, invalid("unknown bill source %q", in.Source)
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 1) {
		return nil, invalid("confidence must be between 0 and 1")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "bills"
	}

	now := s.Clock()
	bill := &models.Bill{
		ID:         uuid.New().String(),
		UserID:     userID,
		AccountID:  in.AccountID,
		Name:       name,
		Category:   category,
		Amount:     amount,
		DueDate:    in.DueDate,
		Frequency:  strings.TrimSpace(in.Frequency),
		Source:     in.Source,
		Confidence: in.Confidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	bill.Status = bill.DeriveStatus(now)

	err = s.store.RunInTx(ctx, func(tx Tx) error {
		if _, err := ownedAccount(ctx, tx, userID, in.AccountID, false); err != nil {
			return err
		}
		return tx.InsertBill(ctx, bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// PayBill settles a bill. Paying an already paid bill is a successful no-op
// reported through AlreadyPaid; the row lock on the bill makes concurrent
// payments of the same bill post a single entry.
func (s *BillService) PayBill(ctx context.Context, userID, billID string) (*PayResult, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	now := s.Clock()
	result := &PayResult{}

	var balance decimal.Decimal
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		bill, err := tx.GetBill(ctx, billID, true)
		if errors.Is(err, ErrNotFound) || (err == nil && bill.UserID != userID) {
			return notFound("bill")
		}
		if err != nil {
			return err
		}
		result.Bill = bill
		if bill.IsPaid {
			result.AlreadyPaid = true
			return nil
		}
		if _, err := ownedAccount(ctx, tx, userID, bill.AccountID, true); err != nil {
			return err
		}

		entry := newEntry(userID, bill.AccountID, models.Expense, bill.Amount, "Bill payment: "+bill.Name, bill.Category, now, now)
		entry.BillID = bill.ID
		if balance, err = post(ctx, tx, entry); err != nil {
			return err
		}

		bill.IsPaid = true
		bill.Status = models.BillPaid
		bill.LinkedTransactionID = entry.ID
		bill.UpdatedAt = now
		if err := tx.UpdateBill(ctx, bill); err != nil {
			return fmt.Errorf("update bill: %w", err)
		}
		result.Transaction = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyPaid {
		return result, nil
	}

	utils.LogLedgerAction("bill paid", result.Bill.AccountID, userID, result.Transaction.SignedAmount())
	s.events.Publish(userID, EventBillPaid, result.Bill)
	s.events.Publish(userID, EventBalanceUpdated, map[string]interface{}{
		"account_id": result.Bill.AccountID,
		"balance":    balance.InexactFloat64(),
	})
	runRiskEvaluation(ctx, s.risk, userID)
	return result, nil
}

// ListBills returns the user's bills by due date with status derived for today.
func (s *BillService) ListBills(ctx context.Context, userID string) ([]models.Bill, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var bills []models.Bill
	err := s.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		bills, err = tx.ListBills(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	now := s.Clock()
	for i := range bills {
		bills[i].Status = bills[i].DeriveStatus(now)
	}
	return bills, nil
}
