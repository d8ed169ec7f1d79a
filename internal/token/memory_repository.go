package token

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]*DeviceToken
}

// NewInMemoryRepository creates a new in-memory token repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tokens: make(map[string]*DeviceToken),
	}
}

// Upsert creates or overwrites a token row keyed on the token string.
func (r *InMemoryRepository) Upsert(_ context.Context, t *DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *t
	cpy.IsValid = true
	if existing, ok := r.tokens[t.Token]; ok {
		cpy.CreatedAt = existing.CreatedAt
	}
	r.tokens[t.Token] = &cpy
	return nil
}

// GetByToken retrieves a token row.
func (r *InMemoryRepository) GetByToken(_ context.Context, tok string) (*DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[tok]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cpy := *t
	return &cpy, nil
}

// ListValidByUser retrieves all valid tokens owned by a user.
func (r *InMemoryRepository) ListValidByUser(_ context.Context, userID string) ([]DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tokens []DeviceToken
	for _, t := range r.tokens {
		if t.UserID == userID && t.IsValid {
			tokens = append(tokens, *t)
		}
	}
	return tokens, nil
}

// Invalidate marks the given tokens invalid.
func (r *InMemoryRepository) Invalidate(_ context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, tok := range tokens {
		if t, ok := r.tokens[tok]; ok && t.IsValid {
			t.IsValid = false
			t.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

// InvalidateByPlatform marks every token of a platform invalid.
func (r *InMemoryRepository) InvalidateByPlatform(_ context.Context, platform Platform) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, t := range r.tokens {
		if t.Platform == platform && t.IsValid {
			t.IsValid = false
			t.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
