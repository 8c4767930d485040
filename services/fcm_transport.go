package services

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"prayer-notification-server/config"
)

// FCMTransport delivers notifications to mobile-push subscriptions through
// Firebase Cloud Messaging.
type FCMTransport struct {
	client *messaging.Client
}

// NewFCMTransport initializes the Firebase app and messaging client from
// config.
func NewFCMTransport(ctx context.Context, cfg config.FCMConfig) (*FCMTransport, error) {
	opts, err := firebaseOptions(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM messaging client: %w", err)
	}

	log.Printf("✅ FCM transport initialized (project: %s)", cfg.ProjectID)
	return &FCMTransport{client: client}, nil
}

func firebaseOptions(cfg config.FCMConfig) ([]option.ClientOption, error) {
	switch {
	case cfg.CredentialsPath != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsPath)}, nil
	case cfg.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}, nil
	case os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "":
		return nil, nil // use application default credentials
	default:
		return nil, fmt.Errorf("firebase credentials not provided")
	}
}

// Send delivers one prayer notification to an FCM registration token. The
// webpush block asks the receiving handler for a persistent, interactive
// notification with a short vibration; the data block rides along for
// client-side handling.
//
// An unregistered or malformed token is reported as Expired so the caller
// can queue the record for deletion. Everything else is a transient failure.
func (t *FCMTransport) Send(ctx context.Context, token string, notification PushNotification, data map[string]string) SendResult {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Icon:               notificationIcon,
				Badge:              notificationBadge,
				Tag:                "prayer-" + data["prayer"],
				RequireInteraction: true,
				Vibrate:            []int{200, 100, 200},
			},
		},
	}

	_, err := t.client.Send(ctx, message)
	if err == nil {
		return SendResult{Success: true}
	}
	if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err) {
		return SendResult{Expired: true, Err: err}
	}
	return SendResult{Err: err}
}

// DisabledMobileTransport reports every send as a transient failure. It
// stands in for FCM when credentials are not configured so legacy web-push
// records still dispatch and no FCM record is ever deleted by mistake.
type DisabledMobileTransport struct{}

func (DisabledMobileTransport) Send(ctx context.Context, token string, notification PushNotification, data map[string]string) SendResult {
	return SendResult{Err: fmt.Errorf("FCM transport is disabled")}
}
