package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobsphere/internal/models"
)

type ApiCounterRepository interface {
	// Get returns the counter, creating it at zero when missing.
	Get(ctx context.Context, name string) (*models.ApiCounter, error)
	// Reserve adds one call to the counter unless it already holds limit
	// calls. It reports whether a slot was taken.
	Reserve(ctx context.Context, name string, limit int) (bool, error)
	// Release gives back a reserved call. The count never drops below zero.
	Release(ctx context.Context, name string) error
	// ResetBefore zeroes the counter if it was last reset before windowStart.
	// It reports whether this call performed the reset.
	ResetBefore(ctx context.Context, name string, now, windowStart time.Time) (bool, error)
	Set(ctx context.Context, counter *models.ApiCounter) error
}

type apiCounterRepository struct {
	DB *sql.DB
}

func NewApiCounterRepository(db *sql.DB) ApiCounterRepository {
	return &apiCounterRepository{DB: db}
}

// neverReset marks a counter that has not been through a window reset yet.
var neverReset = time.Unix(0, 0).UTC()

func (r *apiCounterRepository) ensure(ctx context.Context, name string) error {
	const q = `
		INSERT INTO api_counters (name, count, last_reset)
		VALUES ($1, 0, $2)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.DB.ExecContext(ctx, q, name, neverReset); err != nil {
		return fmt.Errorf("ensure counter %s: %w", name, err)
	}
	return nil
}

func (r *apiCounterRepository) Get(ctx context.Context, name string) (*models.ApiCounter, error) {
	if err := r.ensure(ctx, name); err != nil {
		return nil, err
	}
	c := &models.ApiCounter{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT name, count, last_reset FROM api_counters WHERE name = $1`, name,
	).Scan(&c.Name, &c.Count, &c.LastReset)
	if err != nil {
		return nil, fmt.Errorf("get counter %s: %w", name, err)
	}
	return c, nil
}

func (r *apiCounterRepository) Reserve(ctx context.Context, name string, limit int) (bool, error) {
	if err := r.ensure(ctx, name); err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE api_counters SET count = count + 1 WHERE name = $1 AND count < $2`, name, limit,
	)
	if err != nil {
		return false, fmt.Errorf("reserve counter %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *apiCounterRepository) Release(ctx context.Context, name string) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE api_counters SET count = count - 1 WHERE name = $1 AND count > 0`, name,
	); err != nil {
		return fmt.Errorf("release counter %s: %w", name, err)
	}
	return nil
}

func (r *apiCounterRepository) ResetBefore(ctx context.Context, name string, now, windowStart time.Time) (bool, error) {
	const q = `
		UPDATE api_counters
		SET count = 0, last_reset = $1
		WHERE name = $2 AND last_reset < $3
	`
	res, err := r.DB.ExecContext(ctx, q, now.UTC(), name, windowStart.UTC())
	if err != nil {
		return false, fmt.Errorf("reset counter %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *apiCounterRepository) Set(ctx context.Context, counter *models.ApiCounter) error {
	const q = `
		INSERT INTO api_counters (name, count, last_reset)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET count = excluded.count, last_reset = excluded.last_reset
	`
	if _, err := r.DB.ExecContext(ctx, q, counter.Name, counter.Count, counter.LastReset.UTC()); err != nil {
		return fmt.Errorf("set counter %s: %w", counter.Name, err)
	}
	return nil
}
