package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gojalifs/saving-challenge/lib/challenge"
	"github.com/gojalifs/saving-challenge/lib/models"
	"github.com/gojalifs/saving-challenge/senders"
)

const (
	notificationTitle = "Saving Challenge"
	notificationBody  = "Belum cek tantangan minggu ini? Saatnya setor tabunganmu!"
)

type notificationPayload struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Data  notificationData `json:"data"`
}

type notificationData struct {
	URL     string `json:"url"`
	DateKey string `json:"dateKey"`
}

// RunPass executes one reminder pass at the given time. Configuration and
// authorization failures abort before any storage access; per-subscriber
// delivery failures never abort the pass, they are counted and isolated.
// Partial completion across subscribers is accepted: there is no rollback,
// only the at-most-once-per-day guarantee per subscription.
func (d *Dispatcher) RunPass(ctx context.Context, secret string, now time.Time) (*Report, error) {
	if d.cfg.ReminderSecret == "" {
		return nil, ErrSecretNotConfigured
	}
	if secret != d.cfg.ReminderSecret {
		return nil, ErrSecretMismatch
	}
	if !d.cfg.HasVAPIDKeys() {
		return nil, ErrPushKeysNotConfigured
	}

	if !challenge.IsReminderDay(now) {
		return &Report{Skipped: "today is not a reminder day"}, nil
	}

	// One pass at a time; racing triggers on the same day are already
	// defused by the per-day dedup check, this just keeps the logs sane.
	d.mu.Lock()
	defer d.mu.Unlock()

	week := challenge.CurrentWeekNumber(now)

	var subs models.PushSubscriptions
	if err := d.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return &Report{Reason: "no subscriptions"}, nil
	}

	savedSet, err := d.savedUsers(ctx, week)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(notificationPayload{
		Title: notificationTitle,
		Body:  notificationBody,
		Data: notificationData{
			URL:     d.cfg.BaseURL,
			DateKey: challenge.DateKey(now),
		},
	})
	if err != nil {
		return nil, err
	}

	m := &passMetrics{total: len(subs)}
	for i := range subs {
		d.remindSubscriber(ctx, &subs[i], savedSet, now, payload, m)
	}

	args := []any{"week", week, "total", m.total, "sent", m.sent}
	if m.pruned != 0 {
		args = append(args, "pruned", m.pruned)
	}
	if m.failed != 0 {
		args = append(args, "failed", m.failed)
	}
	d.log.Sugar().Infow("Reminder pass completed", args...)

	return m.Report(), nil
}

// savedUsers returns the ids of users who already saved for the given week.
// The join against subscriptions happens in memory; volumes are tiny.
func (d *Dispatcher) savedUsers(ctx context.Context, week int) (map[uint]bool, error) {
	var userIDs []uint
	tx := d.db.WithContext(ctx).
		Model(&models.SavingsEntry{}).
		Where("week_number = ?", week).
		Where("saved = ?", true).
		Pluck("user_id", &userIDs)
	if err := tx.Error; err != nil {
		return nil, err
	}

	set := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	return set, nil
}

func (d *Dispatcher) remindSubscriber(ctx context.Context, sub *models.PushSubscription, savedSet map[uint]bool, now time.Time, payload []byte, m *passMetrics) {
	if savedSet[sub.UserID] {
		return
	}
	if sub.LastReminderAt.Valid && challenge.IsSameDay(sub.LastReminderAt.Time, now) {
		// Already reminded today; repeated triggers stay idempotent.
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err := d.senders.Push.Send(sendCtx, sub, payload)
	if err == nil {
		m.sent++
		// Mark only after the transport confirmed acceptance. A failed send
		// must never flag the subscription as reminded.
		tx := d.db.WithContext(ctx).Model(sub).Update("last_reminder_at", now)
		if tx.Error != nil {
			d.log.Sugar().Errorw("Failed to record reminder timestamp",
				"subscription_id", sub.ID, "err", tx.Error)
		}
		return
	}

	m.failed++
	if errors.Is(err, senders.ErrEndpointGone) {
		// Unscoped: a soft-deleted row would still occupy the endpoint's
		// unique index slot and block the browser from re-subscribing.
		if tx := d.db.WithContext(ctx).Unscoped().Delete(sub); tx.Error != nil {
			d.log.Sugar().Errorw("Failed to prune dead subscription",
				"subscription_id", sub.ID, "err", tx.Error)
			return
		}
		m.pruned++
		d.log.Sugar().Infow("Pruned dead push subscription",
			"subscription_id", sub.ID, "user_id", sub.UserID)
		return
	}

	// Transient failure: leave the subscription intact and let the next
	// reminder day retry naturally.
	d.log.Sugar().Warnw("Failed to send reminder",
		"subscription_id", sub.ID, "user_id", sub.UserID, "err", err)
}
