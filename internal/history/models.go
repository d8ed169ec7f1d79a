// Package history provides the durable notification history log: one record
// per logical notification delivered to a user, with read state.
package history

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Notification is one history record. Immutable after creation except for
// IsRead. The record ID is echoed into outgoing push payloads as
// notification_id so client taps can deep-link back to it.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Data      map[string]string
	IsRead    bool
	CreatedAt time.Time
}

// ListOptions contains options for listing notifications.
type ListOptions struct {
	Limit int
}
