package models

// NotificationRecord is the API projection of a stored notification.
type NotificationRecord struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	IsRead    bool              `json:"is_read"`
	CreatedAt Timestamp         `json:"created_at"`
}

// ListNotificationsResponse is the body of GET /notifications.
type ListNotificationsResponse struct {
	Items       []NotificationRecord `json:"items"`
	UnreadCount int                  `json:"unread_count"`
}

// MarkReadResponse is the body of POST /notifications/{notificationId}/read.
type MarkReadResponse struct {
	Success bool `json:"success"`
}
