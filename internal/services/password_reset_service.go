package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"jobsphere/internal/models"
	"jobsphere/internal/repositories"
	"jobsphere/internal/utils"
)

const (
	resetCodeLength     = 6
	DefaultResetCodeTTL = 15 * time.Minute
)

type PasswordResetService interface {
	// RequestReset issues a fresh code for email, replacing any pending one,
	// and returns it.
	RequestReset(ctx context.Context, email string) (string, error)
	CompleteReset(ctx context.Context, email, code, newPassword string) error
}

type passwordResetService struct {
	userRepo repositories.UserRepository
	repo     repositories.PasswordResetRepository
	emails   EmailService
	auth     AuthService
	ttl      time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewPasswordResetService builds the reset flow. emails may be nil.
func NewPasswordResetService(
	userRepo repositories.UserRepository,
	repo repositories.PasswordResetRepository,
	emails EmailService,
	auth AuthService,
	ttl time.Duration,
	logger *slog.Logger,
) PasswordResetService {
	if ttl <= 0 {
		ttl = DefaultResetCodeTTL
	}
	return &passwordResetService{
		userRepo: userRepo,
		repo:     repo,
		emails:   emails,
		auth:     auth,
		ttl:      ttl,
		log:      logger.With("component", "password-reset"),
		now:      time.Now,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) || email == "" {
		return "", newError(KindNotFound, "Email not found")
	}
	if err != nil {
		return "", internalError("could not load user", err)
	}

	code, err := utils.NewNumericCode(resetCodeLength)
	if err != nil {
		return "", internalError("could not generate code", err)
	}
	now := s.now()
	reset := &models.PasswordReset{
		Email:     user.Email,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Upsert(ctx, reset); err != nil {
		return "", internalError("could not store reset code", err)
	}
	s.log.InfoContext(ctx, "reset code issued", "user_id", user.ID, "expires_at", reset.ExpiresAt)

	if s.emails != nil {
		if err := s.emails.SendResetCodeEmail(user.Email, code, s.ttl); err != nil {
			s.log.WarnContext(ctx, "reset email failed", "user_id", user.ID, "error", err)
		}
	}
	return code, nil
}

func (s *passwordResetService) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	if err := s.auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	email = strings.TrimSpace(email)

	pending, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(KindInvalidCode, "Invalid code")
	}
	if err != nil {
		return internalError("could not load reset code", err)
	}
	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(strings.TrimSpace(code))) != 1 {
		return newError(KindInvalidCode, "Invalid code")
	}
	if pending.Expired(s.now()) {
		if err := s.repo.Delete(ctx, email); err != nil {
			s.log.WarnContext(ctx, "could not drop expired reset code", "error", err)
		}
		return newError(KindExpired, "Code expired")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		// the account changed its email after the code was issued
		_ = s.repo.Delete(ctx, email)
		return newError(KindNotFound, "Email not found")
	}
	if err != nil {
		return internalError("could not load user", err)
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return internalError("could not update password", err)
	}
	if err := s.repo.Delete(ctx, email); err != nil {
		return internalError("could not consume reset code", err)
	}
	s.log.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return nil
}
