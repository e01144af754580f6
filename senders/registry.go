package senders

import (
	"context"
	"net/http"

	"github.com/gojalifs/saving-challenge/config"
	"github.com/gojalifs/saving-challenge/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PushSender delivers an encrypted payload to one browser push endpoint.
// ErrEndpointGone marks endpoints that will never accept delivery again.
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error
}

// EmailSender delivers transactional mail and returns the provider message id.
type EmailSender interface {
	Send(ctx context.Context, subject, body, recipient string) (string, error)
}

type Registry struct {
	Push  PushSender
	Email EmailSender
}

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	return Registry{
		Push:  &webpushSender{base},
		Email: &mailgunSender{base},
	}
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
