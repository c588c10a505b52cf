package handlers

import (
	"net/http"

	"github.com/LovationAdmin/ledger-api/middleware"

	"github.com/gin-gonic/gin"
)

type syncUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SyncUser stores the caller's profile. Body fields override the token claims.
func (h *Handler) SyncUser(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req syncUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Email == "" {
		req.Email = c.GetString(middleware.ContextUserEmail)
	}
	if req.Name == "" {
		req.Name = c.GetString(middleware.ContextUserName)
	}

	user, err := h.ledger.SyncUser(c.Request.Context(), userID, req.Email, req.Name)
	if err != nil {
		respondError(c, err, "Failed to sync user")
		return
	}

	c.JSON(http.StatusOK, user)
}
