package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"prayer-notification-server/config"
)

// TriggerAuthMiddleware guards the dispatch trigger endpoint with the shared
// scheduler secret. The caller is a cron service, not a user, so this is a
// static bearer comparison rather than a session check.
func TriggerAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.AppConfig.Scheduler.TriggerSecret
		if secret == "" {
			log.Printf("⚠️ SCHEDULER_TRIGGER_SECRET not set, trigger endpoint is unprotected")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		expected := "Bearer " + secret
		if subtle.ConstantTimeCompare([]byte(authHeader), []byte(expected)) != 1 {
			log.Printf("🚫 Trigger rejected: invalid scheduler credentials from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid scheduler credentials"})
			c.Abort()
			return
		}

		c.Next()
	}
}
