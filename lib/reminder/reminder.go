// Package reminder implements the daily reminder pass: on reminder days it
// pushes a nudge to every subscriber who has not saved for the current week,
// at most once per subscription per calendar day, and prunes push endpoints
// the push service reports as gone.
package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gojalifs/saving-challenge/config"
	"github.com/gojalifs/saving-challenge/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrSecretNotConfigured means REMINDER_SECRET is unset server-side.
	ErrSecretNotConfigured = errors.New("reminder secret is not configured")
	// ErrSecretMismatch means the caller supplied the wrong trigger secret.
	ErrSecretMismatch = errors.New("reminder secret mismatch")
	// ErrPushKeysNotConfigured means the VAPID key pair is unset server-side.
	ErrPushKeysNotConfigured = errors.New("web push VAPID keys are not configured")
)

func NewDispatcher(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, senders senders.Registry) *Dispatcher {
	wakeupInterval := 24 * time.Hour // self-trigger cadence; dedup makes extra passes harmless
	sendTimeout := 10 * time.Second  // bound per push delivery, timeout counts as transient

	var mu sync.Mutex
	dispatcher := Dispatcher{
		cfg, log, db, senders,
		&mu, time.Now, sendTimeout, NewAlarmClock(wakeupInterval),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go dispatcher.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop reminder dispatcher")
			dispatcher.Stop()
			return nil
		},
	})

	return &dispatcher
}

type Dispatcher struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry

	mu          *sync.Mutex
	nowFn       func() time.Time
	sendTimeout time.Duration
	alarmClock  *alarmClock
}

// Start runs the daily self-trigger. The external trigger route remains the
// primary cadence; this only covers deployments without a cron.
func (d *Dispatcher) Start(ctx context.Context) {
	c := d.alarmClock.Start(ctx)

	for evt := range c {
		d.handleWakeup(evt)
	}
}

func (d *Dispatcher) Stop() {
	d.alarmClock.Stop()
	d.log.Sugar().Info("Reminder dispatcher stopped")
}

func (d *Dispatcher) handleWakeup(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := d.RunPass(ctx, d.cfg.ReminderSecret, d.nowFn())
	if err != nil {
		d.log.Sugar().Warnw("Scheduled reminder pass did not run", "err", err)
		return
	}
	d.log.Sugar().Infow("Scheduled reminder pass completed",
		"sent", report.Sent, "pruned", report.Pruned, "total", report.Total,
		"skipped", report.Skipped, "reason", report.Reason,
	)
}
