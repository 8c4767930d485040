package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"prayer-notification-server/config"
)

func triggerRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	config.Load()
	config.AppConfig.Scheduler.TriggerSecret = secret

	router := gin.New()
	router.GET("/trigger", TriggerAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestTriggerAuthAcceptsValidBearer(t *testing.T) {
	router := triggerRouter("cron-secret")

	req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestTriggerAuthRejectsMissingOrWrongSecret(t *testing.T) {
	router := triggerRouter("cron-secret")

	for _, header := range []string{"", "Bearer wrong", "cron-secret"} {
		req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code, "header=%q", header)
	}
}

func TestTriggerAuthOpenWhenSecretUnset(t *testing.T) {
	router := triggerRouter("")

	req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}
