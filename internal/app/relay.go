package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"multibot/internal/relay"
)

const relayPoll = time.Second

// WatchRelay dispatches every query submitted to the relay at RELAY_URL until
// ctx is done.
func (a *App) WatchRelay(ctx context.Context) error {
	c := relay.NewClient(a.cfg.RelayURL)
	slog.Info("watching relay", "url", a.cfg.RelayURL)
	err := c.Watch(ctx, relayPoll, func(q relay.Query) {
		slog.Info("relay query", "len", len(q.Query), "at", q.Timestamp)
		a.Transcript.Set(q.Query)
		if _, err := a.Deliver(ctx, q.Query); err != nil {
			slog.Debug("deliver failed", "err", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
