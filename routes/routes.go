package routes

import (
	"github.com/LovationAdmin/ledger-api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupUserRoutes sets up identity sync.
func SetupUserRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.POST("/me/sync", h.SyncUser)
}

// SetupLedgerRoutes sets up accounts and ledger entries.
func SetupLedgerRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.POST("/accounts", h.CreateAccount)
	rg.GET("/accounts", h.GetAccounts)
	rg.PUT("/accounts/:id/default", h.SetDefaultAccount)
	rg.GET("/accounts/:id/transactions", h.GetAccountTransactions)

	rg.POST("/transactions", h.CreateTransaction)
	rg.GET("/transactions/:id", h.GetTransaction)
	rg.PUT("/transactions/:id", h.UpdateTransaction)
	rg.POST("/transactions/:id/process", h.ProcessRecurring)
}

// SetupBillRoutes sets up the bill lifecycle.
func SetupBillRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.POST("/bills", h.CreateBill)
	rg.GET("/bills", h.GetBills)
	rg.POST("/bills/:id/pay", h.PayBill)
}

// SetupCheckRoutes sets up the check lifecycle and risk view.
func SetupCheckRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.POST("/checks", h.CreateCheck)
	rg.GET("/checks", h.GetChecks)
	rg.GET("/checks/risk", h.GetCheckRisk)
	rg.POST("/checks/:id/clear", h.ClearCheck)
}

// SetupBudgetRoutes sets up the monthly budget.
func SetupBudgetRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.PUT("/budget", h.SetBudget)
	rg.GET("/budget", h.GetBudget)
}

// Setup registers every protected route on rg.
func Setup(rg *gin.RouterGroup, h *handlers.Handler, ws *handlers.WSHandler) {
	SetupUserRoutes(rg, h)
	SetupLedgerRoutes(rg, h)
	SetupBillRoutes(rg, h)
	SetupCheckRoutes(rg, h)
	SetupBudgetRoutes(rg, h)
	rg.GET("/ws", ws.HandleWS)
}
