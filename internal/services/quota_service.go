package services

import (
	"context"
	"log/slog"
	"time"

	"jobsphere/internal/models"
	"jobsphere/internal/repositories"
)

const (
	QuotaWindowMonthly = "monthly"
	QuotaWindowDaily   = "daily"
)

// QuotaService guards a rate-limited provider with a windowed call counter.
type QuotaService interface {
	// Reserve takes one call from the current window. Store failures deny
	// the call.
	Reserve(ctx context.Context) bool
	// Release refunds a reserved call that never reached the provider.
	Release(ctx context.Context)
	Stats(ctx context.Context) (models.QuotaStats, error)
}

type quotaService struct {
	repo   repositories.ApiCounterRepository
	name   string
	limit  int
	window string
	log    *slog.Logger
	now    func() time.Time
}

func NewQuotaService(repo repositories.ApiCounterRepository, name string, limit int, window string, logger *slog.Logger) QuotaService {
	if window != QuotaWindowDaily {
		window = QuotaWindowMonthly
	}
	return &quotaService{
		repo:   repo,
		name:   name,
		limit:  limit,
		window: window,
		log:    logger.With("component", "quota", "counter", name),
		now:    time.Now,
	}
}

// windowStart is the UTC instant the current window began.
func windowStart(now time.Time, window string) time.Time {
	now = now.UTC()
	if window == QuotaWindowDaily {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// rollover zeroes the counter when its last reset predates the present
// window.
func (s *quotaService) rollover(ctx context.Context) error {
	if _, err := s.repo.Get(ctx, s.name); err != nil {
		return err
	}
	now := s.now()
	reset, err := s.repo.ResetBefore(ctx, s.name, now, windowStart(now, s.window))
	if err != nil {
		return err
	}
	if reset {
		s.log.InfoContext(ctx, "quota window rolled over")
	}
	return nil
}

func (s *quotaService) current(ctx context.Context) (*models.ApiCounter, error) {
	if err := s.rollover(ctx); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, s.name)
}

func (s *quotaService) Reserve(ctx context.Context) bool {
	if err := s.rollover(ctx); err != nil {
		s.log.ErrorContext(ctx, "quota check failed", "error", err)
		return false
	}
	ok, err := s.repo.Reserve(ctx, s.name, s.limit)
	if err != nil {
		s.log.ErrorContext(ctx, "quota check failed", "error", err)
		return false
	}
	return ok
}

func (s *quotaService) Release(ctx context.Context) {
	if err := s.repo.Release(ctx, s.name); err != nil {
		s.log.WarnContext(ctx, "quota refund failed", "error", err)
	}
}

func (s *quotaService) Stats(ctx context.Context) (models.QuotaStats, error) {
	c, err := s.current(ctx)
	if err != nil {
		return models.QuotaStats{}, internalError("could not load usage", err)
	}
	remaining := s.limit - c.Count
	if remaining < 0 {
		remaining = 0
	}
	return models.QuotaStats{Used: c.Count, Remaining: remaining, Total: s.limit}, nil
}
