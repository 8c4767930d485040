package services

import (
	"encoding/json"
	"fmt"
	"strconv"

	"prayer-notification-server/models"
)

const (
	notificationTitle = "Prayer Time"
	notificationIcon  = "/icon.png"
	notificationBadge = "/icon.png"
	prayerPagePath    = "/prayer"
)

// PushNotification is the visible title/body block shared by both
// transports.
type PushNotification struct {
	Title string
	Body  string
}

// WebPushPayload is the flat shape the legacy service worker expects. The
// worker reads top-level fields directly, so this must not be reshaped into
// the nested data block used on the FCM path.
type WebPushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Icon      string `json:"icon"`
	Badge     string `json:"badge"`
	PlayAudio bool   `json:"playAudio"`
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
}

// BuildWebPushPayload serializes the legacy web-push payload for one
// subscription and matched prayer.
func BuildWebPushPayload(sub *models.PushSubscription, prayer, prayerTime string) ([]byte, error) {
	return json.Marshal(WebPushPayload{
		Title:     notificationTitle,
		Body:      prayerBody(prayer),
		Icon:      notificationIcon,
		Badge:     notificationBadge,
		PlayAudio: sub.AdhanAudioEnabled,
		Prayer:    prayer,
		Time:      prayerTime,
	})
}

// BuildFCMPayload returns the visible notification and the data block the
// mobile client handles on tap: navigation target, audio-playback flag, and
// the matched prayer with its time.
func BuildFCMPayload(sub *models.PushSubscription, prayer, prayerTime string) (PushNotification, map[string]string) {
	notification := PushNotification{
		Title: notificationTitle,
		Body:  prayerBody(prayer),
	}
	data := map[string]string{
		"url":       prayerPagePath,
		"playAudio": strconv.FormatBool(sub.AdhanAudioEnabled),
		"prayer":    prayer,
		"time":      prayerTime,
	}
	return notification, data
}

func prayerBody(prayer string) string {
	return fmt.Sprintf("It's time for %s prayer", prayer)
}
