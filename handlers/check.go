package handlers

import (
	"net/http"
	"strings"

	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateCheck(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	issueDate, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		respondError(c, err, "Invalid check")
		return
	}
	depositDate, err := parseDate("deposit_date", req.DepositDate)
	if err != nil {
		respondError(c, err, "Invalid check")
		return
	}

	in := services.CheckInput{
		Type:         req.Type,
		PayeeOrPayer: req.PayeeOrPayer,
		Amount:       amountFromFloat(req.Amount),
		IssueDate:    issueDate,
		DepositDate:  depositDate,
	}
	if req.BankName != nil {
		in.BankName = *req.BankName
	}
	if req.CheckNumber != nil {
		in.CheckNumber = *req.CheckNumber
	}

	check, err := h.checks.CreateCheck(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err, "Failed to create check")
		return
	}

	c.JSON(http.StatusCreated, toCheck(check))
}

// GetChecks lists checks by deposit date, optionally filtered by ?type= and ?status=
func (h *Handler) GetChecks(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	filter := services.CheckFilter{
		Type:   models.CheckType(strings.ToUpper(c.Query("type"))),
		Status: models.CheckStatus(strings.ToUpper(c.Query("status"))),
	}
	list, err := h.checks.ListChecks(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err, "Failed to fetch checks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checks":  toChecks(list.Checks),
		"account": toAccount(list.Account),
	})
}

// ClearCheck attempts to clear a check. A bounce is a 200 with bounced set.
func (h *Handler) ClearCheck(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.checks.ClearCheck(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to clear check")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"check":           toCheck(result.Check),
		"transaction":     toTransaction(result.Transaction),
		"already_cleared": result.AlreadyCleared,
		"bounced":         result.Bounced,
	})
}

// GetCheckRisk runs a risk evaluation and returns the at-risk checks
func (h *Handler) GetCheckRisk(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	report, err := h.checks.EvaluateIssuedChecksRisk(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to evaluate check risk")
		return
	}

	c.JSON(http.StatusOK, toRisk(report))
}
