package senders

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gojalifs/saving-challenge/lib/models"
)

// ErrEndpointGone signals that the push service rejected the endpoint as
// permanently invalid (expired or unsubscribed). Callers should drop the
// subscription.
var ErrEndpointGone = errors.New("push endpoint is gone")

const pushTTL = 30 // seconds the push service may queue an undelivered message

type webpushSender struct {
	base
}

func (s *webpushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      &http.Client{Transport: s.transport},
		Subscriber:      s.cfg.VAPID.Subject,
		VAPIDPublicKey:  s.cfg.VAPID.PublicKey,
		VAPIDPrivateKey: s.cfg.VAPID.PrivateKey,
		TTL:             pushTTL,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrEndpointGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}
