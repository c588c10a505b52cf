package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func TestEmailService_SendRiskAlert(t *testing.T) {
	var got resendPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := services.NewEmailService("re_test", "alerts@example.com", "https://app.example.com")
	svc.Endpoint = server.URL

	err := svc.SendRiskAlert(context.Background(), testEmail, models.RiskAlert{
		UserName:     "Ann <script>",
		PayeeOrPayer: "Landlord",
		Amount:       decimal.RequireFromString("1200.5"),
		DepositDate:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Balance:      decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ledger <alerts@example.com>", got.From)
	assert.Equal(t, []string{testEmail}, got.To)
	assert.Contains(t, got.Subject, "Landlord")
	assert.Contains(t, got.HTML, "$1200.50")
	assert.Contains(t, got.HTML, "July 1, 2024")
	assert.Contains(t, got.HTML, "Ann &lt;script&gt;")
	assert.Contains(t, got.HTML, "https://app.example.com/checks")
}

func TestEmailService_SendBudgetAlert(t *testing.T) {
	var got resendPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	svc := services.NewEmailService("re_test", "alerts@example.com", "https://app.example.com")
	svc.Endpoint = server.URL

	err := svc.SendBudgetAlert(context.Background(), testEmail, models.BudgetAlert{
		UserName:      "Ann",
		BudgetAmount:  decimal.NewFromInt(1000),
		TotalExpenses: decimal.NewFromInt(850),
		PercentUsed:   decimal.NewFromInt(85),
	})
	require.NoError(t, err)
	assert.Contains(t, got.HTML, "85.0%")
	assert.Contains(t, got.HTML, "$850.00")
	assert.Contains(t, got.HTML, "https://app.example.com/budget")
}

func TestEmailService_Failures(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		svc := services.NewEmailService("", "alerts@example.com", "")
		err := svc.SendBudgetAlert(context.Background(), testEmail, models.BudgetAlert{})
		assert.EqualError(t, err, "RESEND_API_KEY not configured")
	})

	t.Run("provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		svc := services.NewEmailService("re_test", "alerts@example.com", "")
		svc.Endpoint = server.URL
		err := svc.SendRiskAlert(context.Background(), testEmail, models.RiskAlert{})
		assert.EqualError(t, err, "failed to send email: status 422")
	})
}
