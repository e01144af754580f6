package reminder

import (
	"context"
	"time"
)

type Event interface {
	Timestamp() time.Time
}

type event struct{ timestamp time.Time }

func (e event) Timestamp() time.Time { return e.timestamp }

type passWakeupEvent struct {
	event
}

type alarmClock struct {
	cancel      func()
	wakeupTimer *time.Ticker
	C           chan Event
}

func NewAlarmClock(wakeupInterval time.Duration) *alarmClock {
	return &alarmClock{
		wakeupTimer: time.NewTicker(wakeupInterval),
		C:           make(chan Event),
	}
}

func (a *alarmClock) Start(ctx context.Context) <-chan Event {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.C)

		immediateWakeupEvent := passWakeupEvent{event{time.Now()}}
		select {
		case a.C <- immediateWakeupEvent:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case t := <-a.wakeupTimer.C:
				a.C <- passWakeupEvent{event{t}}

			case <-ctx.Done():
				return
			}
		}
	}()

	return a.C
}

func (a *alarmClock) Stop() {
	a.cancel()
	a.wakeupTimer.Stop()
}
