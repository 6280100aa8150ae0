package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tharanis13/campus-lost-found/internal/model"
)

// execer lets outbox writes run inside a caller's transaction, so a
// notification is enqueued atomically with the write that triggered it.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EnqueueNotification inserts a pending outbox row. Template arguments
// are stored as a JSON array.
func EnqueueNotification(ctx context.Context, e execer, recipient, template string, args []string) error {
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding notification args: %w", err)
	}

	if _, err := e.ExecContext(ctx,
		`INSERT INTO notifications (recipient, template, args) VALUES (?, ?, ?)`,
		recipient, template, string(encoded),
	); err != nil {
		return fmt.Errorf("enqueueing notification: %w", err)
	}
	return nil
}

// PendingNotifications returns up to limit pending outbox rows, oldest
// first, incrementing their attempt counters so a crashed worker cannot
// retry a poisonous row forever.
func PendingNotifications(ctx context.Context, db *sql.DB, limit int) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, recipient, template, args, status, attempts, created_at, sent_at
		 FROM notifications WHERE status = ? ORDER BY id LIMIT ?`,
		model.NotificationPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending notifications: %w", err)
	}
	defer rows.Close()

	var pending []model.Notification
	for rows.Next() {
		var n model.Notification
		var encoded string
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Template, &encoded, &n.Status,
			&n.Attempts, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &n.Args); err != nil {
			return nil, fmt.Errorf("decoding notification args: %w", err)
		}
		pending = append(pending, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range pending {
		if _, err := db.ExecContext(ctx,
			`UPDATE notifications SET attempts = attempts + 1 WHERE id = ?`, pending[i].ID,
		); err != nil {
			return nil, fmt.Errorf("counting notification attempt: %w", err)
		}
		pending[i].Attempts++
	}
	return pending, nil
}

// MarkNotificationSent finalizes a delivered notification.
func MarkNotificationSent(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, sent_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.NotificationSent, id,
	); err != nil {
		return fmt.Errorf("marking notification sent: %w", err)
	}
	return nil
}

// MarkNotificationFailed gives up on a notification after the attempt
// cap. Rows under the cap stay pending and are retried on the next poll.
func MarkNotificationFailed(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE notifications SET status = ? WHERE id = ?`,
		model.NotificationFailed, id,
	); err != nil {
		return fmt.Errorf("marking notification failed: %w", err)
	}
	return nil
}
