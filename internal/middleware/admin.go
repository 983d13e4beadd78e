package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
)

// AdminKeyHeader carries the admin setup key.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey gates admin endpoints on the configured setup key. An
// unset key is a configuration error, not an open door.
func RequireAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			logrus.Error("ADMIN_SETUP_KEY is not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
			return
		}
		got := c.GetHeader(AdminKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			logrus.WithField("path", c.FullPath()).Warn("Rejected admin request with bad key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
