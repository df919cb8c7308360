package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobsphere/internal/models"
)

type PasswordResetRepository interface {
	// Upsert replaces any pending code for the email.
	Upsert(ctx context.Context, reset *models.PasswordReset) error
	GetByEmail(ctx context.Context, email string) (*models.PasswordReset, error)
	Delete(ctx context.Context, email string) error
}

type passwordResetRepository struct {
	DB *sql.DB
}

func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{DB: db}
}

func (r *passwordResetRepository) Upsert(ctx context.Context, reset *models.PasswordReset) error {
	const q = `
		INSERT INTO password_resets (email, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET code = excluded.code, expires_at = excluded.expires_at, created_at = excluded.created_at
	`
	createdAt := reset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := r.DB.ExecContext(ctx, q, reset.Email, reset.Code, reset.ExpiresAt.UTC(), createdAt.UTC()); err != nil {
		return fmt.Errorf("upsert reset code: %w", err)
	}
	return nil
}

func (r *passwordResetRepository) GetByEmail(ctx context.Context, email string) (*models.PasswordReset, error) {
	const q = `
		SELECT email, code, expires_at, created_at
		FROM password_resets
		WHERE email = $1
	`
	pr := &models.PasswordReset{}
	err := r.DB.QueryRowContext(ctx, q, email).Scan(&pr.Email, &pr.Code, &pr.ExpiresAt, &pr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reset code: %w", err)
	}
	return pr, nil
}

func (r *passwordResetRepository) Delete(ctx context.Context, email string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1`, email); err != nil {
		return fmt.Errorf("delete reset code: %w", err)
	}
	return nil
}
