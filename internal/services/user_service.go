package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"jobsphere/internal/models"
	"jobsphere/internal/repositories"
)

type UserService interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) error
	UpdateSettings(ctx context.Context, id int64, upd models.SettingsUpdate) error
}

type userService struct {
	repo         repositories.UserRepository
	emailService EmailService
	authService  AuthService
	log          *slog.Logger
	now          func() time.Time
}

// NewUserService wires the credential store. emailService may be nil when
// SMTP is not configured.
func NewUserService(repo repositories.UserRepository, emailService EmailService, authService AuthService, logger *slog.Logger) UserService {
	return &userService{
		repo:         repo,
		emailService: emailService,
		authService:  authService,
		log:          logger.With("component", "users"),
		now:          time.Now,
	}
}

func (s *userService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, newError(KindValidation, "All fields required")
	}
	if err := s.authService.ValidatePassword(password); err != nil {
		return nil, err
	}

	if taken, err := s.usernameTaken(ctx, username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, newError(KindValidation, "Username already exists")
	}
	if taken, err := s.emailTaken(ctx, email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, newError(KindValidation, "Email already registered")
	}

	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:             username,
		Email:                email,
		PasswordHash:         hash,
		CreatedAt:            s.now().UTC(),
		NotificationsEnabled: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// lost a race with a concurrent signup
			return nil, newError(KindValidation, "Username or email already exists")
		}
		return nil, internalError("could not create user", err)
	}
	s.log.InfoContext(ctx, "user created", "user_id", user.ID, "username", user.Username)

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email, user.Username); err != nil {
			// warn but do not fail creation
			s.log.WarnContext(ctx, "welcome email failed", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		s.log.InfoContext(ctx, "login failed", "username", username, "reason", "unknown user")
		return nil, newError(KindAuth, "Invalid credentials")
	}
	if err != nil {
		return nil, internalError("could not load user", err)
	}

	ok, needsRehash := s.authService.CheckPassword(user.PasswordHash, password)
	if !ok {
		s.log.InfoContext(ctx, "login failed", "user_id", user.ID, "reason", "password mismatch")
		return nil, newError(KindAuth, "Invalid credentials")
	}

	if needsRehash {
		s.upgradeHash(ctx, user, password)
	}
	return user, nil
}

// upgradeHash replaces a legacy or bcrypt hash with argon2id after a
// successful login. Failures keep the old hash, which still verifies.
func (s *userService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		s.log.WarnContext(ctx, "legacy hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.log.WarnContext(ctx, "legacy hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.log.InfoContext(ctx, "legacy password hash upgraded", "user_id", user.ID)
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, newError(KindNotFound, "User not found")
	}
	if err != nil {
		return nil, internalError("could not load user", err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return newError(KindValidation, "Username cannot be empty")
		}
		if username != user.Username {
			taken, err := s.usernameTaken(ctx, username, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return newError(KindValidation, "Username already exists")
			}
		}
		user.Username = username
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" {
			return newError(KindValidation, "Email cannot be empty")
		}
		if email != user.Email {
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return newError(KindValidation, "Email already registered")
			}
		}
		user.Email = email
	}
	if upd.Password != nil && *upd.Password != "" {
		if err := s.authService.ValidatePassword(*upd.Password); err != nil {
			return err
		}
		hash, err := s.authService.HashPassword(*upd.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if upd.PreferredJobTitles != nil {
		user.PreferredJobTitles = models.JoinList(*upd.PreferredJobTitles)
	}
	if upd.PreferredLocations != nil {
		user.PreferredLocations = models.JoinList(*upd.PreferredLocations)
	}
	if upd.PreferredJobTypes != nil {
		user.PreferredJobTypes = models.JoinList(*upd.PreferredJobTypes)
	}

	return s.save(ctx, user)
}

func (s *userService) UpdateSettings(ctx context.Context, id int64, upd models.SettingsUpdate) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if upd.DarkMode != nil {
		user.DarkMode = *upd.DarkMode
	}
	if upd.NotificationsEnabled != nil {
		user.NotificationsEnabled = *upd.NotificationsEnabled
	}
	return s.save(ctx, user)
}

func (s *userService) save(ctx context.Context, user *models.User) error {
	err := s.repo.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrConflict):
		return newError(KindValidation, "Username or email already exists")
	case errors.Is(err, repositories.ErrNotFound):
		return newError(KindNotFound, "User not found")
	}
	return internalError("could not update user", err)
}

func (s *userService) usernameTaken(ctx context.Context, username string, selfID int64) (bool, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	return taken(u, err, selfID)
}

func (s *userService) emailTaken(ctx context.Context, email string, selfID int64) (bool, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	return taken(u, err, selfID)
}

func taken(u *models.User, err error, selfID int64) (bool, error) {
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, internalError("could not check existing users", err)
	}
	return u.ID != selfID, nil
}
