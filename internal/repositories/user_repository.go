package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"jobsphere/internal/models"
)

type UserRepository interface {
	// Create stores user. A zero ID is replaced by the next free id.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Count(ctx context.Context) (int, error)
}

type userRepository struct {
	DB *sql.DB
	// serializes id allocation
	mu sync.Mutex
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, username, email, password_hash, created_at,
	preferred_job_titles, preferred_locations, preferred_job_types,
	dark_mode, notifications_enabled`

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := user.ID
	if id == 0 {
		if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM users`).Scan(&id); err != nil {
			return fmt.Errorf("next user id: %w", err)
		}
	}

	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, q,
		id,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UTC(),
		user.PreferredJobTitles,
		user.PreferredLocations,
		user.PreferredJobTypes,
		user.DarkMode,
		user.NotificationsEnabled,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", user.Username, ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	user.ID = id
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT`+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) getOne(ctx context.Context, q string, arg any) (*models.User, error) {
	u := &models.User{}
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt,
		&u.PreferredJobTitles, &u.PreferredLocations, &u.PreferredJobTypes,
		&u.DarkMode, &u.NotificationsEnabled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	const q = `
		UPDATE users
		SET
			username=$1,
			email=$2,
			password_hash=$3,
			preferred_job_titles=$4,
			preferred_locations=$5,
			preferred_job_types=$6,
			dark_mode=$7,
			notifications_enabled=$8
		WHERE id=$9
	`
	res, err := r.DB.ExecContext(ctx, q,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.PreferredJobTitles,
		user.PreferredLocations,
		user.PreferredJobTypes,
		user.DarkMode,
		user.NotificationsEnabled,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %d: %w", user.ID, ErrConflict)
		}
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return expectOneRow(res)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password for user %d: %w", id, err)
	}
	return expectOneRow(res)
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
