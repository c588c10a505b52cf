package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/LovationAdmin/ledger-api/models"
)

const resendEndpoint = "https://api.resend.com/emails"

// EmailService delivers alerts through the Resend HTTP API.
type EmailService struct {
	apiKey      string
	fromEmail   string
	frontendURL string

	Endpoint string
	Client   *http.Client
}

func NewEmailService(apiKey, fromEmail, frontendURL string) *EmailService {
	return &EmailService{
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		frontendURL: frontendURL,
		Endpoint:    resendEndpoint,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

const emailLayout = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: sans-serif; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: %s; color: white; padding: 30px; border-radius: 10px 10px 0 0; }
        .content { background: #f8f9fa; padding: 30px; }
        .button { display: inline-block; background: #667eea; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>%s</h1>
        </div>
        <div class="content">
            %s
            <a href="%s" class="button">Open dashboard</a>
        </div>
    </div>
</body>
</html>
`

func (s *EmailService) SendRiskAlert(ctx context.Context, to string, alert models.RiskAlert) error {
	body := fmt.Sprintf(`<p>Hello %s,</p>
            <p>Your check to <strong>%s</strong> for <strong>$%s</strong> is expected to be deposited on %s.</p>
            <p style="color: #e74c3c;">Your current balance is $%s, which is not enough to cover it.</p>`,
		html.EscapeString(alert.UserName),
		html.EscapeString(alert.PayeeOrPayer),
		alert.Amount.StringFixed(2),
		alert.DepositDate.Format("January 2, 2006"),
		alert.Balance.StringFixed(2),
	)
	htmlBody := fmt.Sprintf(emailLayout, "#e74c3c", "Check at risk", body, s.frontendURL+"/checks")
	subject := fmt.Sprintf("Insufficient funds for your check to %s", alert.PayeeOrPayer)
	return s.send(ctx, to, subject, htmlBody)
}

func (s *EmailService) SendBudgetAlert(ctx context.Context, to string, alert models.BudgetAlert) error {
	body := fmt.Sprintf(`<p>Hello %s,</p>
            <p>You have used <strong>%s%%</strong> of your monthly budget.</p>
            <p>Budget: $%s. Spent this month: $%s.</p>`,
		html.EscapeString(alert.UserName),
		alert.PercentUsed.StringFixed(1),
		alert.BudgetAmount.StringFixed(2),
		alert.TotalExpenses.StringFixed(2),
	)
	htmlBody := fmt.Sprintf(emailLayout, "linear-gradient(135deg, #667eea 0%, #764ba2 100%)", "Budget alert", body, s.frontendURL+"/budget")
	return s.send(ctx, to, "You are close to your monthly budget", htmlBody)
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	if s.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	payload := map[string]interface{}{
		"from":    fmt.Sprintf("Ledger <%s>", s.fromEmail),
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send email: status %d", resp.StatusCode)
	}

	return nil
}
