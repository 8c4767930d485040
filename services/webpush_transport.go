package services

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"prayer-notification-server/config"
)

// WebPushKeys is the asymmetric key pair stored with a web-push endpoint.
type WebPushKeys struct {
	P256dh string
	Auth   string
}

// VAPIDTransport delivers notifications to legacy web-push subscriptions
// over the standards-based Web Push protocol with VAPID authentication.
type VAPIDTransport struct {
	publicKey  string
	privateKey string
	subscriber string
}

func NewVAPIDTransport(cfg config.VAPIDConfig) *VAPIDTransport {
	return &VAPIDTransport{
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		subscriber: cfg.Subscriber,
	}
}

// Send pushes a JSON payload to an endpoint. A 404 or 410 response means the
// push service no longer knows the endpoint; that classification stays here
// so callers only ever see Expired, never protocol status codes.
func (t *VAPIDTransport) Send(ctx context.Context, endpoint string, keys WebPushKeys, payload []byte) SendResult {
	if t.publicKey == "" || t.privateKey == "" {
		return SendResult{Err: fmt.Errorf("VAPID keys not configured")}
	}

	sub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: keys.P256dh,
			Auth:   keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
		TTL:             60,
	})
	if err != nil {
		return SendResult{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return SendResult{Expired: true, Err: fmt.Errorf("push service returned %s", resp.Status)}
	case resp.StatusCode >= 400:
		return SendResult{Err: fmt.Errorf("push service returned %s", resp.Status)}
	}
	return SendResult{Success: true}
}
