package token

import "context"

// Repository defines the interface for device token persistence.
type Repository interface {
	// Upsert creates or overwrites a token row keyed on the token string,
	// reviving validity and refreshing updated_at.
	Upsert(ctx context.Context, t *DeviceToken) error

	// GetByToken retrieves a token row.
	GetByToken(ctx context.Context, tok string) (*DeviceToken, error)

	// ListValidByUser retrieves all valid tokens owned by a user.
	// An empty result is not an error.
	ListValidByUser(ctx context.Context, userID string) ([]DeviceToken, error)

	// Invalidate marks the given tokens invalid and returns the number of
	// rows touched. An empty set must be a no-op returning 0.
	Invalidate(ctx context.Context, tokens []string) (int64, error)

	// InvalidateByPlatform marks every token of a platform invalid,
	// regardless of owner. Used for one-time migrations.
	InvalidateByPlatform(ctx context.Context, platform Platform) (int64, error)
}
