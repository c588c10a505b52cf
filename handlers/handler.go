package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LovationAdmin/ledger-api/services"
	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	ledger  *services.LedgerService
	bills   *services.BillService
	checks  *services.CheckService
	budgets *services.BudgetService
}

func NewHandler(ledger *services.LedgerService, bills *services.BillService, checks *services.CheckService, budgets *services.BudgetService) *Handler {
	return &Handler{
		ledger:  ledger,
		bills:   bills,
		checks:  checks,
		budgets: budgets,
	}
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDependencyFailure):
		utils.SafeError("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fallback})
	default:
		utils.SafeError("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain calendar dates. An empty
// string yields the zero time.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &badRequest{field + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp"}
}

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func (e *badRequest) Unwrap() error { return services.ErrInvalidArgument }

func amountFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}
