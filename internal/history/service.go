package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service provides notification history operations.
type Service struct {
	repo Repository
}

// NewService creates a new history service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create appends a new history record and returns it with a generated ID.
func (s *Service) Create(ctx context.Context, userID, title, body string, data map[string]string) (*Notification, error) {
	n := &Notification{
		ID:        "ntf_" + uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// List retrieves notifications for a user, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID, ListOptions{Limit: limit})
}

// CountUnread returns the number of unread notifications for a user.
func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead flips is_read on one record.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}
