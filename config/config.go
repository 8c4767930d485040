package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	FCM       FCMConfig
	VAPID     VAPIDConfig
	PrayerAPI PrayerAPIConfig
	Scheduler SchedulerConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	URL string
}

// FCMConfig holds Firebase Cloud Messaging credentials. When Enabled is
// false the mobile-push transport is stubbed out and sends to FCM records
// are reported as transient failures rather than deletions.
type FCMConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsPath string
	CredentialsJSON string
}

// VAPIDConfig holds the key pair and contact address for the Web Push
// protocol transport.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
}

type PrayerAPIConfig struct {
	BaseURL        string
	Method         int
	TimeoutSeconds int
}

// SchedulerConfig controls how dispatch invocations are triggered.
// TriggerSecret guards the HTTP trigger endpoint; Internal additionally runs
// an in-process minute ticker for deployments without an external cron.
type SchedulerConfig struct {
	TriggerSecret   string
	Internal        bool
	IntervalSeconds int
	Workers         int
}

type CORSConfig struct {
	AllowedOrigins []string
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DB_URL", ""),
		},
		FCM: FCMConfig{
			Enabled:         getEnvAsBool("FCM_ENABLED", false),
			ProjectID:       getEnv("FCM_PROJECT_ID", ""),
			CredentialsPath: getEnv("FCM_CREDENTIALS_PATH", ""),
			CredentialsJSON: getEnv("FCM_CREDENTIALS_JSON", ""),
		},
		VAPID: VAPIDConfig{
			PublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			PrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subscriber: getEnv("VAPID_EMAIL", "admin@deenly.app"),
		},
		PrayerAPI: PrayerAPIConfig{
			BaseURL:        getEnv("PRAYER_API_BASE_URL", "https://api.aladhan.com"),
			Method:         getEnvAsInt("PRAYER_API_METHOD", 2),
			TimeoutSeconds: getEnvAsInt("PRAYER_API_TIMEOUT_SECONDS", 10),
		},
		Scheduler: SchedulerConfig{
			TriggerSecret:   getEnv("SCHEDULER_TRIGGER_SECRET", ""),
			Internal:        getEnvAsBool("SCHEDULER_INTERNAL", false),
			IntervalSeconds: getEnvAsInt("SCHEDULER_INTERVAL_SECONDS", 60),
			Workers:         getEnvAsInt("DISPATCH_WORKERS", 8),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
