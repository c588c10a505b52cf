package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"
	mock_services "github.com/LovationAdmin/ledger-api/services/mocks"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckService_PendingCheckSettlesOnceFundsArrive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	f := newFixture(t, notifier)
	ctx := context.Background()
	account := f.account(t, 500)

	var sent models.RiskAlert
	notifier.EXPECT().
		SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, alert models.RiskAlert) error {
			sent = alert
			return nil
		}).
		Times(1)

	check := f.issueCheck(t, "Landlord", 700, f.now.AddDate(0, 0, -2), f.now.AddDate(0, 0, -1))

	stored := f.check(t, check.ID)
	assert.Equal(t, models.CheckPending, stored.Status)
	assert.True(t, stored.Alerted)
	assert.Equal(t, "Landlord", sent.PayeeOrPayer)
	assert.Equal(t, "Ann", sent.UserName)
	assertAmount(t, 700, sent.Amount)
	assertAmount(t, 500, sent.Balance)

	// still at risk, no second alert
	report, err := f.checks.EvaluateIssuedChecksRisk(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, check.ID, report.AtRisk[0].ID)

	f.post(t, account.ID, models.Income, 300)

	stored = f.check(t, check.ID)
	assert.Equal(t, models.CheckCleared, stored.Status)
	assert.False(t, stored.Alerted)
	assert.NotEmpty(t, stored.LinkedTransactionID)
	assertAmount(t, 100, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)

	settlement, err := f.ledger.GetTransaction(ctx, testUser, stored.LinkedTransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.Expense, settlement.Type)
	assert.Equal(t, check.ID, settlement.CheckID)
	assert.Equal(t, "checks", settlement.Category)
	assertAmount(t, 700, settlement.Amount)
}

func TestCheckService_BouncedCheckRecovers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	notifier.EXPECT().SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).Return(nil).Times(1)

	f := newFixture(t, notifier)
	ctx := context.Background()
	account := f.account(t, 500)
	check := f.issueCheck(t, "Garage", 700, f.now.AddDate(0, 0, -2), f.now.AddDate(0, 0, 10))

	result, err := f.checks.ClearCheck(ctx, testUser, check.ID)
	require.NoError(t, err)
	assert.True(t, result.Bounced)
	assert.Nil(t, result.Transaction)
	assert.Equal(t, models.CheckBounced, result.Check.Status)
	assert.True(t, result.Check.Alerted)
	assertAmount(t, 500, f.balance(t, account.ID))

	// clearing a bounced check again must not alert again
	result, err = f.checks.ClearCheck(ctx, testUser, check.ID)
	require.NoError(t, err)
	assert.True(t, result.Bounced)

	f.post(t, account.ID, models.Income, 300)

	stored := f.check(t, check.ID)
	assert.Equal(t, models.CheckCleared, stored.Status)
	assert.False(t, stored.Alerted)
	assertAmount(t, 100, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)
	assert.GreaterOrEqual(t, f.events.count(services.EventCheckCleared), 1)
}

func TestCheckService_BounceAlertsWhenNotYetAlerted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	f := newFixture(t, nil)
	f.account(t, 100)
	check := f.issueCheck(t, "Shop", 300, f.now, f.now.AddDate(0, 1, 0))

	// the at-risk alert was claimed without a notifier; clear the flag so the
	// bounce is the first alert for this check
	checks := services.NewCheckService(f.store, notifier, nil)
	checks.Clock = func() time.Time { return f.now }
	err := f.store.RunInTx(context.Background(), func(tx services.Tx) error {
		c, err := tx.GetCheck(context.Background(), check.ID, true)
		if err != nil {
			return err
		}
		c.Alerted = false
		return tx.UpdateCheck(context.Background(), c)
	})
	require.NoError(t, err)

	notifier.EXPECT().SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).Return(nil).Times(1)

	result, err := checks.ClearCheck(context.Background(), testUser, check.ID)
	require.NoError(t, err)
	assert.True(t, result.Bounced)
	assert.True(t, f.check(t, check.ID).Alerted)
}

func TestCheckService_OldestBouncedCheckFirstWithSkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	notifier.EXPECT().SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).Return(nil).Times(2)

	f := newFixture(t, notifier)
	ctx := context.Background()
	account := f.account(t, 50)

	deposit := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	first := f.issueCheck(t, "Contractor", 400, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), deposit)
	second := f.issueCheck(t, "Plumber", 100, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), deposit)

	for _, id := range []string{first.ID, second.ID} {
		result, err := f.checks.ClearCheck(ctx, testUser, id)
		require.NoError(t, err)
		require.True(t, result.Bounced)
	}

	// 50 + 200 = 250 available: 400 does not fit, 100 does
	f.post(t, account.ID, models.Income, 200)

	assert.Equal(t, models.CheckBounced, f.check(t, first.ID).Status)
	assert.Equal(t, models.CheckCleared, f.check(t, second.ID).Status)
	assertAmount(t, 150, f.balance(t, account.ID))
	f.assertBalanceMatchesEntries(t, account.ID)
}

func TestCheckService_AtRiskFollowsBalance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.account(t, 1000)
	check := f.issueCheck(t, "School", 600, f.now, f.now.AddDate(0, 0, 7))

	report, err := f.checks.EvaluateIssuedChecksRisk(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, report.AtRisk)
	assertAmount(t, 1000, report.Balance)

	f.post(t, account.ID, models.Expense, 500)

	report, err = f.checks.EvaluateIssuedChecksRisk(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, check.ID, report.AtRisk[0].ID)
	assertAmount(t, 500, report.Balance)

	f.post(t, account.ID, models.Income, 100)

	report, err = f.checks.EvaluateIssuedChecksRisk(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, report.AtRisk)
	// deposit date not reached, so the check stays pending
	assert.Equal(t, models.CheckPending, f.check(t, check.ID).Status)
}

func TestCheckService_AlertFailureIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	gomock.InOrder(
		notifier.EXPECT().
			SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).
			Return(errors.New("smtp down")),
		notifier.EXPECT().
			SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).
			Return(nil),
	)

	f := newFixture(t, notifier)
	f.account(t, 10)
	check := f.issueCheck(t, "Dentist", 90, f.now, f.now.AddDate(0, 0, 3))

	// the failed send leaves the check unalerted
	assert.False(t, f.check(t, check.ID).Alerted)

	report, err := f.checks.EvaluateIssuedChecksRisk(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, report.AtRisk, 1)
	assert.True(t, report.AtRisk[0].Alerted)
	assert.True(t, f.check(t, check.ID).Alerted)

	// delivered once, nothing more to send
	_, err = f.checks.EvaluateIssuedChecksRisk(context.Background(), testUser)
	require.NoError(t, err)
}

func TestCheckService_AlertWaitsForEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	f := newFixture(t, notifier)
	ctx := context.Background()
	const lateUser = "user-2"

	_, err := f.ledger.CreateAccount(ctx, lateUser, services.AccountInput{
		Name:           "Main",
		Type:           models.AccountCurrent,
		InitialBalance: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	check, err := f.checks.CreateCheck(ctx, lateUser, services.CheckInput{
		Type:         models.CheckIssued,
		PayeeOrPayer: "Mechanic",
		Amount:       decimal.NewFromInt(200),
		IssueDate:    f.now,
		DepositDate:  f.now.AddDate(0, 0, 4),
	})
	require.NoError(t, err)

	report, err := f.checks.EvaluateIssuedChecksRisk(ctx, lateUser)
	require.NoError(t, err)
	require.Len(t, report.AtRisk, 1)
	assert.False(t, report.AtRisk[0].Alerted, "no email known yet")

	_, err = f.ledger.SyncUser(ctx, lateUser, "late@example.com", "Lee")
	require.NoError(t, err)

	var sent models.RiskAlert
	notifier.EXPECT().
		SendRiskAlert(gomock.Any(), "late@example.com", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, alert models.RiskAlert) error {
			sent = alert
			return nil
		}).
		Times(1)

	report, err = f.checks.EvaluateIssuedChecksRisk(ctx, lateUser)
	require.NoError(t, err)
	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, check.ID, report.AtRisk[0].ID)
	assert.True(t, report.AtRisk[0].Alerted)
	assert.Equal(t, "Lee", sent.UserName)
	assert.Equal(t, "Mechanic", sent.PayeeOrPayer)
}

func TestCheckService_BounceAlertFailureLeavesCheckUnalerted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	notifier := mock_services.NewMockNotifier(ctrl)
	f := newFixture(t, nil)
	f.account(t, 100)
	check := f.issueCheck(t, "Shop", 300, f.now, f.now.AddDate(0, 1, 0))

	checks := services.NewCheckService(f.store, notifier, nil)
	checks.Clock = func() time.Time { return f.now }
	err := f.store.RunInTx(context.Background(), func(tx services.Tx) error {
		return tx.ReleaseCheckAlert(context.Background(), check.ID)
	})
	require.NoError(t, err)

	notifier.EXPECT().
		SendRiskAlert(gomock.Any(), testEmail, gomock.Any()).
		Return(errors.New("smtp down")).
		Times(1)

	result, err := checks.ClearCheck(context.Background(), testUser, check.ID)
	require.NoError(t, err)
	assert.True(t, result.Bounced)
	assert.False(t, result.Check.Alerted)

	stored := f.check(t, check.ID)
	assert.Equal(t, models.CheckBounced, stored.Status)
	assert.False(t, stored.Alerted)
}

func TestCheckService_EvaluateWithoutDefaultAccount(t *testing.T) {
	f := newFixture(t, nil)
	f.issueCheck(t, "Nobody", 10, f.now, f.now)

	report, err := f.checks.EvaluateIssuedChecksRisk(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, report.AtRisk)
	assert.Nil(t, report.Account)
}

func TestCheckService_ClearCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("received check posts income", func(t *testing.T) {
		f := newFixture(t, nil)
		account := f.account(t, 100)
		check, err := f.checks.CreateCheck(ctx, testUser, services.CheckInput{
			Type:         models.CheckReceived,
			PayeeOrPayer: "Employer",
			Amount:       decimal.NewFromInt(250),
			IssueDate:    f.now,
			BankName:     "First Bank",
			CheckNumber:  "0042",
		})
		require.NoError(t, err)
		assert.Equal(t, check.IssueDate, check.DepositDate)

		result, err := f.checks.ClearCheck(ctx, testUser, check.ID)
		require.NoError(t, err)
		require.NotNil(t, result.Transaction)
		assert.Equal(t, models.Income, result.Transaction.Type)
		assert.Equal(t, "other-income", result.Transaction.Category)
		assert.Equal(t, models.CheckCleared, result.Check.Status)
		assertAmount(t, 350, f.balance(t, account.ID))
		f.assertBalanceMatchesEntries(t, account.ID)
	})

	t.Run("already cleared is idempotent", func(t *testing.T) {
		f := newFixture(t, nil)
		account := f.account(t, 500)
		check := f.issueCheck(t, "Gym", 50, f.now, f.now.AddDate(0, 0, 5))

		first, err := f.checks.ClearCheck(ctx, testUser, check.ID)
		require.NoError(t, err)
		assert.False(t, first.AlreadyCleared)

		second, err := f.checks.ClearCheck(ctx, testUser, check.ID)
		require.NoError(t, err)
		assert.True(t, second.AlreadyCleared)
		assert.Nil(t, second.Transaction)
		assertAmount(t, 450, f.balance(t, account.ID))
	})

	t.Run("other user's check is not found", func(t *testing.T) {
		f := newFixture(t, nil)
		f.account(t, 500)
		check := f.issueCheck(t, "Gym", 50, f.now, f.now.AddDate(0, 0, 5))

		_, err := f.checks.ClearCheck(ctx, "someone-else", check.ID)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	t.Run("no default account", func(t *testing.T) {
		f := newFixture(t, nil)
		check := f.issueCheck(t, "Gym", 50, f.now, f.now.AddDate(0, 0, 5))

		_, err := f.checks.ClearCheck(ctx, testUser, check.ID)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	t.Run("unauthorized", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.checks.ClearCheck(ctx, "", "whatever")
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})
}

func TestCheckService_CreateCheckValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   services.CheckInput
	}{
		{"unknown type", services.CheckInput{Type: "POSTDATED", PayeeOrPayer: "x", Amount: decimal.NewFromInt(1), IssueDate: f.now}},
		{"missing payee", services.CheckInput{Type: models.CheckIssued, Amount: decimal.NewFromInt(1), IssueDate: f.now}},
		{"zero amount", services.CheckInput{Type: models.CheckIssued, PayeeOrPayer: "x", IssueDate: f.now}},
		{"negative amount", services.CheckInput{Type: models.CheckIssued, PayeeOrPayer: "x", Amount: decimal.NewFromInt(-5), IssueDate: f.now}},
		{"missing issue date", services.CheckInput{Type: models.CheckIssued, PayeeOrPayer: "x", Amount: decimal.NewFromInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.checks.CreateCheck(ctx, testUser, tt.in)
			assert.ErrorIs(t, err, services.ErrInvalidArgument)
		})
	}
}

func TestCheckService_ListChecksByDepositDate(t *testing.T) {
	f := newFixture(t, nil)
	account := f.account(t, 5000)

	late := f.issueCheck(t, "Late", 10, f.now.AddDate(0, 0, -10), f.now.AddDate(0, 0, 20))
	early := f.issueCheck(t, "Early", 10, f.now.AddDate(0, 0, -5), f.now.AddDate(0, 0, 2))

	list, err := f.checks.ListChecks(context.Background(), testUser, services.CheckFilter{Status: models.CheckPending})
	require.NoError(t, err)
	require.Len(t, list.Checks, 2)
	assert.Equal(t, early.ID, list.Checks[0].ID)
	assert.Equal(t, late.ID, list.Checks[1].ID)
	require.NotNil(t, list.Account)
	assert.Equal(t, account.ID, list.Account.ID)
}
