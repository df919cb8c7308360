package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jobsphere/internal/models"
	"jobsphere/internal/repositories"
	"jobsphere/internal/utils"
)

const sessionTokenBytes = 32

// SessionService maps opaque bearer tokens to users. Tokens do not expire
// server-side; they live until DestroySession.
type SessionService interface {
	CreateSession(ctx context.Context, userID int64) (string, error)
	// ResolveSession returns nil, nil for unknown tokens and for tokens
	// whose user no longer exists.
	ResolveSession(ctx context.Context, token string) (*models.User, error)
	DestroySession(ctx context.Context, token string) error
}

type sessionService struct {
	sessions repositories.SessionRepository
	users    repositories.UserRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewSessionService(sessions repositories.SessionRepository, users repositories.UserRepository, logger *slog.Logger) SessionService {
	return &sessionService{
		sessions: sessions,
		users:    users,
		log:      logger.With("component", "sessions"),
		now:      time.Now,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, userID int64) (string, error) {
	token, err := utils.NewSessionToken(sessionTokenBytes)
	if err != nil {
		return "", internalError("could not create session", err)
	}
	if err := s.sessions.Create(ctx, token, userID, s.now()); err != nil {
		return "", internalError("could not create session", err)
	}
	s.log.DebugContext(ctx, "session created", "user_id", userID)
	return token, nil
}

func (s *sessionService) ResolveSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	userID, err := s.sessions.GetUserID(ctx, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError("could not resolve session", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.log.WarnContext(ctx, "session points at missing user", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		return nil, internalError("could not resolve session", err)
	}
	return user, nil
}

func (s *sessionService) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return internalError("could not end session", err)
	}
	return nil
}
