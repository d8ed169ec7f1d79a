package token

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL token repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert creates or overwrites a token row keyed on the token string.
func (r *PostgresRepository) Upsert(ctx context.Context, t *DeviceToken) error {
	query := `
		INSERT INTO device_tokens (token, user_id, platform, is_valid, created_at, updated_at)
		VALUES ($1, $2, $3, true, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			is_valid = true,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		t.Token,
		t.UserID,
		t.Platform,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

// GetByToken retrieves a token row.
func (r *PostgresRepository) GetByToken(ctx context.Context, tok string) (*DeviceToken, error) {
	query := `
		SELECT token, user_id, platform, is_valid, created_at, updated_at
		FROM device_tokens
		WHERE token = $1
	`

	var t DeviceToken
	err := r.pool.QueryRow(ctx, query, tok).Scan(
		&t.Token,
		&t.UserID,
		&t.Platform,
		&t.IsValid,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &t, nil
}

// ListValidByUser retrieves all valid tokens owned by a user.
func (r *PostgresRepository) ListValidByUser(ctx context.Context, userID string) ([]DeviceToken, error) {
	query := `
		SELECT token, user_id, platform, is_valid, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1 AND is_valid = true
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []DeviceToken
	for rows.Next() {
		var t DeviceToken
		err := rows.Scan(
			&t.Token,
			&t.UserID,
			&t.Platform,
			&t.IsValid,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}

// Invalidate marks the given tokens invalid. The empty-set short circuit
// matters: a vacuous `WHERE token = ANY('{}')` is safe, but skipping the
// round trip keeps the hot path free of pointless writes.
func (r *PostgresRepository) Invalidate(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	query := `
		UPDATE device_tokens
		SET is_valid = false, updated_at = now()
		WHERE token = ANY($1) AND is_valid = true
	`

	result, err := r.pool.Exec(ctx, query, tokens)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// InvalidateByPlatform marks every token of a platform invalid.
func (r *PostgresRepository) InvalidateByPlatform(ctx context.Context, platform Platform) (int64, error) {
	query := `
		UPDATE device_tokens
		SET is_valid = false, updated_at = now()
		WHERE platform = $1 AND is_valid = true
	`

	result, err := r.pool.Exec(ctx, query, platform)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
