package history

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL history repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create appends a new history record.
func (r *PostgresRepository) Create(ctx context.Context, n *Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, title, body, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Body,
		data,
		n.IsRead,
		n.CreatedAt,
	)
	return err
}

// Get retrieves a notification by user ID and notification ID.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*Notification, error) {
	query := `
		SELECT id, user_id, title, body, data, is_read, created_at
		FROM notifications
		WHERE id = $1 AND user_id = $2
	`

	return r.scanNotification(r.pool.QueryRow(ctx, query, id, userID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanNotification scans a single notification row.
func (r *PostgresRepository) scanNotification(row rowScanner) (*Notification, error) {
	var n Notification
	var data []byte

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Body,
		&data,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

// ListByUser retrieves notifications for a user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, title, body, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *PostgresRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips is_read on one record.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, id string) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
