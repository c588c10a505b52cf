package middleware

import (
	"time"

	"github.com/LovationAdmin/ledger-api/utils"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request once it has been served.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.LogAPIRequest(c.Request.Method, c.FullPath(), GetUserID(c), c.Writer.Status(), time.Since(start).String())
	}
}
