package handlers

import (
	"net/http"

	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"

	"github.com/gin-gonic/gin"
)

func transactionInput(req models.TransactionRequest) (services.TransactionInput, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		AccountID:         req.AccountID,
		Type:              req.Type,
		Amount:            amountFromFloat(req.Amount),
		Date:              date,
		Category:          req.Category,
		Description:       req.Description,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: req.RecurringInterval,
	}, nil
}

// CreateTransaction posts a ledger entry and moves the account balance
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := transactionInput(req)
	if err != nil {
		respondError(c, err, "Invalid transaction")
		return
	}

	txn, err := h.ledger.PostTransaction(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err, "Failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, toTransaction(txn))
}

func (h *Handler) GetTransaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txn, err := h.ledger.GetTransaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch transaction")
		return
	}

	c.JSON(http.StatusOK, toTransaction(txn))
}

// UpdateTransaction rewrites an entry; only the balance difference is applied
func (h *Handler) UpdateTransaction(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := transactionInput(req)
	if err != nil {
		respondError(c, err, "Invalid transaction")
		return
	}

	txn, err := h.ledger.UpdateTransaction(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		respondError(c, err, "Failed to update transaction")
		return
	}

	c.JSON(http.StatusOK, toTransaction(txn))
}

// ProcessRecurring books the next occurrence of a recurring entry if it is due
func (h *Handler) ProcessRecurring(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.ledger.GetTransaction(ctx, userID, id); err != nil {
		respondError(c, err, "Failed to process transaction")
		return
	}

	result, err := h.ledger.ProcessRecurringEntry(ctx, id)
	if err != nil {
		respondError(c, err, "Failed to process transaction")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed":   result.Processed,
		"transaction": toTransaction(result.Transaction),
		"recurring":   toTransaction(result.Entry),
	})
}
