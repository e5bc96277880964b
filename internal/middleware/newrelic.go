package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// RiderAttributeMiddleware tags the New Relic transaction started by
// nrgin.Middleware with the rider id. It is a no-op without a transaction.
func RiderAttributeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if riderID := RiderID(c); riderID != "" {
			txn.AddAttribute("riderId", riderID)
		}
		c.Next()

		// Record handler errors if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
