package models

import (
	"time"
)

// Token type values for PushSubscription.TokenType.
const (
	TokenTypeFCM = "fcm"
)

// Location type values for PushSubscription.LocationType.
const (
	LocationTypeCoords = "coords"
	LocationTypeCity   = "city"
)

// PushSubscription is one installed client instance that wants prayer
// notifications. Exactly one device identity is active per record: either a
// web-push endpoint with its key pair (legacy records, TokenType empty), or
// an FCM registration token (TokenType "fcm"). Duplicates for the same
// physical device can appear through re-subscription or token rotation; they
// are collapsed by the dispatch engine, not prevented at insert time.
type PushSubscription struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Web-push identity
	Endpoint string `json:"endpoint" gorm:"index"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`

	// Mobile-push identity
	Token     string `json:"token" gorm:"index"`
	TokenType string `json:"token_type"`

	// Location used to resolve prayer times
	LocationType string   `json:"location_type"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	City         string   `json:"city"`
	Country      string   `json:"country"`

	NotificationsEnabled bool `json:"notifications_enabled" gorm:"default:true;index"`
	AdhanAudioEnabled    bool `json:"adhan_audio_enabled" gorm:"default:false"`

	// LastNotificationSent is the cooldown marker. Set only after a
	// confirmed successful send.
	LastNotificationSent *time.Time `json:"last_notification_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFCM reports whether the record dispatches over the mobile-push transport.
func (s *PushSubscription) IsFCM() bool {
	return s.TokenType == TokenTypeFCM && s.Token != ""
}

// DeviceKey returns the identity used for deduplication: the mobile-push
// token if present, else the web-push endpoint. ok is false when the record
// has neither and cannot be dispatched to at all.
func (s *PushSubscription) DeviceKey() (key string, ok bool) {
	if s.Token != "" {
		return s.Token, true
	}
	if s.Endpoint != "" {
		return s.Endpoint, true
	}
	return "", false
}

// Location is the query shape handed to the prayer times provider: either
// coordinates or a city/country pair, tagged by Type.
type Location struct {
	Type      string
	Latitude  *float64
	Longitude *float64
	City      string
	Country   string
}

// Location returns the subscription's stored location in provider query form.
func (s *PushSubscription) Location() Location {
	return Location{
		Type:      s.LocationType,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		City:      s.City,
		Country:   s.Country,
	}
}
