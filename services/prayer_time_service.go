package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prayer-notification-server/config"
	"prayer-notification-server/models"
)

// PrayerTimeService resolves a day's prayer timings and the location's IANA
// timezone from the Aladhan timings API. Calls are per-subscription and not
// batched; each failure is isolated to its subscription.
type PrayerTimeService struct {
	baseURL string
	method  int
	client  *http.Client
}

func NewPrayerTimeService(cfg config.PrayerAPIConfig) *PrayerTimeService {
	return &PrayerTimeService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		method:  cfg.Method,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// aladhanResponse mirrors the fields consumed from the timings API.
type aladhanResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings models.PrayerTimings `json:"timings"`
		Meta    struct {
			Timezone string `json:"timezone"`
		} `json:"meta"`
	} `json:"data"`
}

// GetTimings fetches prayer times for a location on the given date.
// Coordinate locations query by latitude/longitude, city locations by
// city+country; a location with neither usable shape is an error.
func (s *PrayerTimeService) GetTimings(ctx context.Context, location models.Location, date time.Time) (*models.PrayerTimings, error) {
	dateStr := fmt.Sprintf("%d-%d-%d", date.Day(), int(date.Month()), date.Year())

	var apiURL string
	switch {
	case location.Type == models.LocationTypeCoords && location.Latitude != nil && location.Longitude != nil:
		apiURL = fmt.Sprintf("%s/v1/timings/%s?latitude=%f&longitude=%f&method=%d",
			s.baseURL, dateStr, *location.Latitude, *location.Longitude, s.method)
	case location.City != "" && location.Country != "":
		apiURL = fmt.Sprintf("%s/v1/timingsByCity/%s?city=%s&country=%s&method=%d",
			s.baseURL, dateStr, url.QueryEscape(location.City), url.QueryEscape(location.Country), s.method)
	default:
		return nil, fmt.Errorf("subscription has no usable location")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create prayer times request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prayer times: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prayer times service returned status: %d", resp.StatusCode)
	}

	var payload aladhanResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode prayer times response: %w", err)
	}
	if payload.Code != http.StatusOK {
		return nil, fmt.Errorf("prayer times service returned code %d", payload.Code)
	}

	timings := payload.Data.Timings
	timings.Timezone = payload.Data.Meta.Timezone
	return &timings, nil
}
