package routes

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"prayer-notification-server/database"
	"prayer-notification-server/middleware"
	"prayer-notification-server/models"
	"prayer-notification-server/services"
)

// RegisterPushRoutes wires the push subscription endpoints and the dispatch
// trigger under the given group.
func RegisterPushRoutes(rg *gin.RouterGroup, dispatch *services.DispatchService) {
	rg.POST("/subscribe", Subscribe)
	rg.POST("/unsubscribe", Unsubscribe)

	trigger := rg.Group("/trigger")
	trigger.Use(middleware.TriggerAuthMiddleware())
	trigger.GET("", TriggerDispatch(dispatch))
	trigger.POST("", TriggerDispatch(dispatch))
}

type locationPayload struct {
	Type    string   `json:"type"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	City    string   `json:"city"`
	Country string   `json:"country"`
}

type subscribeRequest struct {
	// Web-push identity, as produced by PushManager.subscribe on the client
	Subscription *struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`

	// Mobile-push identity
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`

	Location             locationPayload `json:"location"`
	NotificationsEnabled *bool           `json:"notificationsEnabled"`
	AdhanAudioEnabled    bool            `json:"adhanAudioEnabled"`
}

// Subscribe upserts a subscription keyed by its device identity.
// Re-subscribing from the same device updates keys, location, and
// preferences in place rather than stacking records; duplicates that slip
// through anyway (e.g. token rotation) are collapsed by the dispatch engine.
func Subscribe(c *gin.Context) {
	var request subscribeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isFCM := request.TokenType == models.TokenTypeFCM && request.Token != ""
	if !isFCM && (request.Subscription == nil || request.Subscription.Endpoint == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
		return
	}

	enabled := true
	if request.NotificationsEnabled != nil {
		enabled = *request.NotificationsEnabled
	}

	var existing models.PushSubscription
	var err error
	if isFCM {
		err = database.DB.Where("token = ?", request.Token).First(&existing).Error
	} else {
		err = database.DB.Where("endpoint = ?", request.Subscription.Endpoint).First(&existing).Error
	}

	if err == gorm.ErrRecordNotFound {
		sub := models.PushSubscription{
			NotificationsEnabled: enabled,
			AdhanAudioEnabled:    request.AdhanAudioEnabled,
		}
		applySubscribeRequest(&sub, &request, isFCM)

		if err := database.DB.Create(&sub).Error; err != nil {
			log.Printf("❌ Error creating subscription: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
			return
		}

		log.Printf("✅ Subscription %d created", sub.ID)
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Subscription created",
			"subscription": sub,
		})
		return
	} else if err != nil {
		log.Printf("❌ Error checking existing subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	existing.NotificationsEnabled = enabled
	existing.AdhanAudioEnabled = request.AdhanAudioEnabled
	applySubscribeRequest(&existing, &request, isFCM)
	existing.UpdatedAt = time.Now()

	if err := database.DB.Save(&existing).Error; err != nil {
		log.Printf("❌ Error updating subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
		return
	}

	log.Printf("✅ Subscription %d updated", existing.ID)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Subscription updated",
		"subscription": existing,
	})
}

func applySubscribeRequest(sub *models.PushSubscription, request *subscribeRequest, isFCM bool) {
	if isFCM {
		sub.Token = request.Token
		sub.TokenType = models.TokenTypeFCM
	} else {
		sub.Endpoint = request.Subscription.Endpoint
		sub.P256dh = request.Subscription.Keys.P256dh
		sub.Auth = request.Subscription.Keys.Auth
	}
	sub.LocationType = request.Location.Type
	sub.Latitude = request.Location.Lat
	sub.Longitude = request.Location.Lng
	sub.City = request.Location.City
	sub.Country = request.Location.Country
}

// Unsubscribe deletes a subscription by its device identity.
func Unsubscribe(c *gin.Context) {
	var request struct {
		Endpoint string `json:"endpoint"`
		Token    string `json:"token"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.Endpoint == "" && request.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Endpoint or token required"})
		return
	}

	query := database.DB
	if request.Token != "" {
		query = query.Where("token = ?", request.Token)
	} else {
		query = query.Where("endpoint = ?", request.Endpoint)
	}

	if err := query.Delete(&models.PushSubscription{}).Error; err != nil {
		log.Printf("❌ Error removing subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription removed",
	})
}

// TriggerDispatch runs one dispatch invocation and reports its counters.
// The external scheduler polls this endpoint roughly once per minute; the
// engine is idempotent under overlapping or duplicate triggers.
func TriggerDispatch(dispatch *services.DispatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := dispatch.Run(c.Request.Context())
		if err != nil {
			log.Printf("❌ Dispatch invocation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"summary": summary,
		})
	}
}
