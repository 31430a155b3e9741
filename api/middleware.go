package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Caller identity is established by the upstream auth layer and forwarded in
// headers; this service only reads it.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"

	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
)

func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxUserID, c.GetHeader(headerUserID))
		c.Set(ctxIsAdmin, c.GetHeader(headerUserRole) == "admin")
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}
