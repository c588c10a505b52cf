package handlers

import (
	"net/http"

	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/models"

	"github.com/gin-gonic/gin"
)

// SetBudget creates or replaces the caller's monthly budget
func (h *Handler) SetBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.budgets.SetBudget(ctx, userID, amountFromFloat(req.Amount)); err != nil {
		respondError(c, err, "Failed to save budget")
		return
	}
	usage, err := h.budgets.GetBudget(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to fetch budget")
		return
	}

	c.JSON(http.StatusOK, toBudget(usage))
}

// GetBudget returns the budget with this month's expenses on the default account
func (h *Handler) GetBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	usage, err := h.budgets.GetBudget(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch budget")
		return
	}

	c.JSON(http.StatusOK, toBudget(usage))
}
