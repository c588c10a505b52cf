package handlers

import (
	"net/http"

	"github.com/LovationAdmin/ledger-api/middleware"
	"github.com/LovationAdmin/ledger-api/models"
	"github.com/LovationAdmin/ledger-api/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateBill(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		respondError(c, err, "Invalid bill")
		return
	}

	bill, err := h.bills.CreateBill(c.Request.Context(), userID, services.BillInput{
		AccountID:  req.AccountID,
		Name:       req.Name,
		Category:   req.Category,
		Amount:     amountFromFloat(req.Amount),
		DueDate:    dueDate,
		Frequency:  req.Frequency,
		Source:     req.Source,
		Confidence: req.Confidence,
	})
	if err != nil {
		respondError(c, err, "Failed to create bill")
		return
	}

	c.JSON(http.StatusCreated, toBill(bill))
}

func (h *Handler) GetBills(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bills, err := h.bills.ListBills(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch bills")
		return
	}

	c.JSON(http.StatusOK, toBills(bills))
}

// PayBill settles a bill. Paying twice answers 200 with already_paid set.
func (h *Handler) PayBill(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.bills.PayBill(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to pay bill")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bill":         toBill(result.Bill),
		"transaction":  toTransaction(result.Transaction),
		"already_paid": result.AlreadyPaid,
	})
}
