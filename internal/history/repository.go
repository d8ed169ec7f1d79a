package history

import "context"

// Repository defines the interface for notification history persistence.
type Repository interface {
	// Create appends a new history record.
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a notification by user ID and notification ID.
	Get(ctx context.Context, userID, id string) (*Notification, error)

	// ListByUser retrieves notifications for a user, newest first.
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// CountUnread returns the number of unread notifications for a user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead flips is_read on one record.
	MarkRead(ctx context.Context, userID, id string) error
}
