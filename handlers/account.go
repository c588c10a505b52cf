package handlers

import (
	"net/http"

	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"

	"github.com/gin-gonic/gin"
)

// CreateAccount opens an account for the caller
func (h *Handler) CreateAccount(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.ledger.CreateAccount(c.Request.Context(), userID, services.AccountInput{
		Name:           req.Name,
		Type:           req.Type,
		InitialBalance: amountFromFloat(req.Balance),
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		respondError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, toAccount(account))
}

// GetAccounts lists the caller's accounts
func (h *Handler) GetAccounts(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	accounts, err := h.ledger.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch accounts")
		return
	}

	c.JSON(http.StatusOK, toAccounts(accounts))
}

func (h *Handler) SetDefaultAccount(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	account, err := h.ledger.SetDefaultAccount(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to update default account")
		return
	}

	c.JSON(http.StatusOK, toAccount(account))
}

// GetAccountTransactions lists an account's entries, newest first
func (h *Handler) GetAccountTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txns, err := h.ledger.ListTransactions(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch transactions")
		return
	}

	c.JSON(http.StatusOK, toTransactions(txns))
}
