// Package notify drains the notification outbox. Emails are enqueued
// inside the transaction that triggered them and delivered here in the
// background, so a slow or failing mail server can never stall or fail
// the request that queued the message.
package notify

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/tharanis13/campus-lost-found/internal/model"
	"github.com/tharanis13/campus-lost-found/internal/store"
)

// Sender delivers a rendered template to a recipient, reporting success.
type Sender interface {
	Send(to, template string, args []string) bool
}

// DefaultInterval is the outbox poll period.
const DefaultInterval = 2 * time.Second

// batchSize caps how many notifications a single drain pass handles.
const batchSize = 10

// Worker polls the outbox and hands pending notifications to a Sender.
type Worker struct {
	DB       *sql.DB
	Sender   Sender
	Interval time.Duration
}

// Run drains the outbox on a ticker until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain processes one batch of pending notifications. Failed sends stay
// pending for the next pass until the attempt cap, then go to failed.
func (w *Worker) Drain(ctx context.Context) {
	pending, err := store.PendingNotifications(ctx, w.DB, batchSize)
	if err != nil {
		slog.Error("reading notification outbox", "error", err)
		return
	}

	for _, n := range pending {
		if w.Sender.Send(n.Recipient, n.Template, n.Args) {
			if err := store.MarkNotificationSent(ctx, w.DB, n.ID); err != nil {
				slog.Error("marking notification sent", "id", n.ID, "error", err)
			}
			continue
		}

		if n.Attempts >= model.MaxNotificationAttempts {
			slog.Warn("giving up on notification", "id", n.ID, "recipient", n.Recipient, "attempts", n.Attempts)
			if err := store.MarkNotificationFailed(ctx, w.DB, n.ID); err != nil {
				slog.Error("marking notification failed", "id", n.ID, "error", err)
			}
		}
	}
}
