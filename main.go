package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"prayer-notification-server/config"
	"prayer-notification-server/database"
	"prayer-notification-server/jobs"
	"prayer-notification-server/middleware"
	"prayer-notification-server/routes"
	"prayer-notification-server/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Set Gin mode
	if config.AppConfig.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build the dispatch engine and its collaborators
	store := database.NewSubscriptionStore(database.DB)
	prayerTimes := services.NewPrayerTimeService(config.AppConfig.PrayerAPI)
	webPush := services.NewVAPIDTransport(config.AppConfig.VAPID)

	var mobilePush services.MobilePushTransport
	if config.AppConfig.FCM.Enabled {
		fcm, err := services.NewFCMTransport(context.Background(), config.AppConfig.FCM)
		if err != nil {
			log.Fatal("Failed to initialize FCM transport:", err)
		}
		mobilePush = fcm
	} else {
		log.Println("⚠️ FCM transport disabled, mobile-push sends will be skipped")
		mobilePush = services.DisabledMobileTransport{}
	}

	dispatch := services.NewDispatchService(
		store,
		prayerTimes,
		mobilePush,
		webPush,
		services.RecencyPolicy,
		config.AppConfig.Scheduler.Workers,
	)

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.RedirectTrailingSlash = false

	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Prayer Notification Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		pushRoutes := api.Group("/push")
		routes.RegisterPushRoutes(pushRoutes, dispatch)
	}

	// Optional in-process scheduler for deployments without an external cron
	if config.AppConfig.Scheduler.Internal {
		interval := time.Duration(config.AppConfig.Scheduler.IntervalSeconds) * time.Second
		dispatchJob := jobs.NewDispatchJob(dispatch, interval)
		dispatchJob.Start()
		defer dispatchJob.Stop()
	}

	port := config.AppConfig.Server.Port
	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
