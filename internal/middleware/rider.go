package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// RiderIDHeader carries the rider's id on every API request.
	RiderIDHeader = "X-Rider-ID"

	// riderIDQuery is accepted where clients cannot set headers (browser websockets).
	riderIDQuery = "rider_id"

	riderIDKey = "riderID"
)

// RiderMiddleware requires a rider id and stores it on the context.
// Authentication is handled upstream; the id is trusted as given.
func RiderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		riderID := strings.TrimSpace(c.GetHeader(RiderIDHeader))
		if riderID == "" {
			riderID = strings.TrimSpace(c.Query(riderIDQuery))
		}
		if riderID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + RiderIDHeader + " header"})
			return
		}

		c.Set(riderIDKey, riderID)
		c.Next()
	}
}

// RiderID returns the rider id set by RiderMiddleware, or "".
func RiderID(c *gin.Context) string {
	return c.GetString(riderIDKey)
}
