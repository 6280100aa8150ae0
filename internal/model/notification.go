package model

import "time"

// Notification is a queued email waiting for the outbox worker.
type Notification struct {
	ID        int64      `json:"id"`
	Recipient string     `json:"recipient"`
	Template  string     `json:"template"`
	Args      []string   `json:"args"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Notification statuses.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// MaxNotificationAttempts is the delivery attempt cap before a
// notification is marked failed.
const MaxNotificationAttempts = 3
