package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type SessionRepository interface {
	Create(ctx context.Context, token string, userID int64, createdAt time.Time) error
	GetUserID(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

type sessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{DB: db}
}

func (r *sessionRepository) Create(ctx context.Context, token string, userID int64, createdAt time.Time) error {
	const q = `INSERT INTO sessions (token, user_id, created_at) VALUES ($1, $2, $3)`
	if _, err := r.DB.ExecContext(ctx, q, token, userID, createdAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert session: %w", ErrConflict)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetUserID(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := r.DB.QueryRowContext(ctx, `SELECT user_id FROM sessions WHERE token = $1`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}
	return userID, nil
}

// Delete is idempotent.
func (r *sessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
