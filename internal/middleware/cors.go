package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var corsAllowedHeaders = []string{
	"Content-Type",
	"Authorization",
	RiderIDHeader,
	idempotencyHeader,
}

// CORSMiddleware allows the mobile and web clients to call the API from any origin.
func CORSMiddleware() gin.HandlerFunc {
	allowHeaders := strings.Join(corsAllowedHeaders, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
