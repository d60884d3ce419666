package app

import (
	"context"
	"time"
)

// TickSource starts a stream of ticks. The returned stop function releases it.
type TickSource func() (ticks <-chan time.Time, stop func())

// IntervalTicks is a TickSource backed by a time.Ticker.
func IntervalTicks(interval time.Duration) TickSource {
	return func() (<-chan time.Time, func()) {
		t := time.NewTicker(interval)
		return t.C, t.Stop
	}
}

// RunCountdown feeds ticks into session until it leaves the active phase or
// ctx is cancelled. onExpire runs when a tick exhausts the budget. The tick
// source is stopped exactly once before RunCountdown returns.
func RunCountdown(ctx context.Context, session *Session, source TickSource, onExpire func()) {
	ticks, stop := source()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Done():
			return
		case <-ticks:
			expired, err := session.Tick()
			if err != nil {
				return
			}
			if expired {
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}
