// Package push delivers Web Push messages to browser subscriptions.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sender delivers one message to one subscription. It returns
// apperrors.ErrSubscriptionInvalid when the push service reports the
// subscription gone.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, msg models.PushMessage) error
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             int
}

// WebPushSender signs requests with the VAPID key pair.
type WebPushSender struct {
	Config     Config
	HTTPClient webpush.HTTPClient
}

func NewWebPushSender(cfg Config) *WebPushSender {
	return &WebPushSender{Config: cfg, HTTPClient: http.DefaultClient}
}

func (s *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, msg models.PushMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.KeyP256dh,
			Auth:   sub.KeyAuth,
		},
	}, &webpush.Options{
		HTTPClient:      s.HTTPClient,
		Subscriber:      s.Config.Subscriber,
		VAPIDPublicKey:  s.Config.VAPIDPublicKey,
		VAPIDPrivateKey: s.Config.VAPIDPrivateKey,
		TTL:             s.Config.TTL,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("push to %s failed: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("push service answered %d: %w", resp.StatusCode, apperrors.ErrSubscriptionInvalid)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("push service answered %d for %s", resp.StatusCode, sub.Endpoint)
	}
	return nil
}
