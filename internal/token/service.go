package token

import (
	"context"
	"time"

	"github.com/pushrelay/pushrelay/internal/api/models"
)

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Service provides device token registry operations.
type Service struct {
	repo Repository
}

// NewService creates a new token service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register upserts a token keyed on the token string. A token already known
// to the registry is revived and reassigned to the calling user, whoever
// owned it before.
func (s *Service) Register(ctx context.Context, userID, tok string, platform Platform) (*DeviceToken, error) {
	var fieldErrors []models.FieldError
	if userID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "user_id", Message: "is required"})
	}
	if tok == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "token", Message: "is required"})
	}
	switch {
	case platform == "":
		fieldErrors = append(fieldErrors, models.FieldError{Field: "platform", Message: "is required"})
	case !platform.Known():
		fieldErrors = append(fieldErrors, models.FieldError{Field: "platform", Message: "must be one of ios, android, web"})
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now()
	record := &DeviceToken{
		Token:     tok,
		UserID:    userID,
		Platform:  platform,
		IsValid:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListValid returns all live tokens owned by a user.
func (s *Service) ListValid(ctx context.Context, userID string) ([]DeviceToken, error) {
	return s.repo.ListValidByUser(ctx, userID)
}

// Invalidate marks the given tokens dead. Idempotent: already-invalid and
// unknown tokens are skipped, an empty set is a no-op.
func (s *Service) Invalidate(ctx context.Context, tokens []string) (int64, error) {
	return s.repo.Invalidate(ctx, tokens)
}

// InvalidateByPlatform sweeps every token of one platform, regardless of
// owner. Administrative operation for app-identity migrations.
func (s *Service) InvalidateByPlatform(ctx context.Context, platform Platform) (int64, error) {
	if !platform.Known() {
		return 0, &ValidationError{Errors: []models.FieldError{
			{Field: "platform", Message: "must be one of ios, android, web"},
		}}
	}
	return s.repo.InvalidateByPlatform(ctx, platform)
}
