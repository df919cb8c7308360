// Package legacy imports the JSON data files written by the flat-file
// version of Job Sphere: users.json, sessions.json, reset_codes.json and
// api_counter.json. Password hashes are copied as-is and upgraded to
// argon2id on the next login.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jobsphere/internal/models"
	"jobsphere/internal/repositories"
)

const (
	usersFile      = "users.json"
	sessionsFile   = "sessions.json"
	resetCodesFile = "reset_codes.json"
	counterFile    = "api_counter.json"
)

type legacyUser struct {
	ID                   int64  `json:"id"`
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	CreatedAt            string `json:"created_at"`
	PreferredJobTitles   string `json:"preferred_job_titles"`
	PreferredLocations   string `json:"preferred_locations"`
	PreferredJobTypes    string `json:"preferred_job_types"`
	DarkMode             *bool  `json:"dark_mode"`
	NotificationsEnabled *bool  `json:"notifications_enabled"`
}

type legacyResetCode struct {
	Code    string `json:"code"`
	Expires string `json:"expires"`
}

type legacyCounter struct {
	Count     int    `json:"count"`
	LastReset string `json:"last_reset"`
}

// Report counts what an import wrote and what it skipped.
type Report struct {
	Users, UsersSkipped       int
	Sessions, SessionsSkipped int
	ResetCodes                int
	Counter                   bool
}

type Importer struct {
	Users      repositories.UserRepository
	Sessions   repositories.SessionRepository
	Resets     repositories.PasswordResetRepository
	Counters   repositories.ApiCounterRepository
	CounterKey string
	// Location interprets the naive timestamps in the files.
	Location *time.Location
	Log      *slog.Logger
}

// Import loads every data file present in dir. Missing files are skipped;
// records that clash with existing ones are counted and left alone.
func (im *Importer) Import(ctx context.Context, dir string) (Report, error) {
	var rep Report
	if im.Location == nil {
		im.Location = time.Local
	}

	var users []legacyUser
	if ok, err := readJSON(filepath.Join(dir, usersFile), &users); err != nil {
		return rep, err
	} else if ok {
		if err := im.importUsers(ctx, users, &rep); err != nil {
			return rep, err
		}
	}

	var sessions map[string]int64
	if ok, err := readJSON(filepath.Join(dir, sessionsFile), &sessions); err != nil {
		return rep, err
	} else if ok {
		if err := im.importSessions(ctx, sessions, &rep); err != nil {
			return rep, err
		}
	}

	var codes map[string]legacyResetCode
	if ok, err := readJSON(filepath.Join(dir, resetCodesFile), &codes); err != nil {
		return rep, err
	} else if ok {
		if err := im.importResetCodes(ctx, codes, &rep); err != nil {
			return rep, err
		}
	}

	var counter legacyCounter
	if ok, err := readJSON(filepath.Join(dir, counterFile), &counter); err != nil {
		return rep, err
	} else if ok {
		if err := im.importCounter(ctx, counter, &rep); err != nil {
			return rep, err
		}
	}

	im.Log.InfoContext(ctx, "legacy import finished",
		"users", rep.Users, "users_skipped", rep.UsersSkipped,
		"sessions", rep.Sessions, "sessions_skipped", rep.SessionsSkipped,
		"reset_codes", rep.ResetCodes, "counter", rep.Counter,
	)
	return rep, nil
}

func (im *Importer) importUsers(ctx context.Context, users []legacyUser, rep *Report) error {
	for _, lu := range users {
		u := &models.User{
			ID:                   lu.ID,
			Username:             lu.Username,
			Email:                lu.Email,
			PasswordHash:         lu.Password,
			CreatedAt:            im.parseTime(lu.CreatedAt, time.Now()),
			PreferredJobTitles:   lu.PreferredJobTitles,
			PreferredLocations:   lu.PreferredLocations,
			PreferredJobTypes:    lu.PreferredJobTypes,
			NotificationsEnabled: true,
		}
		if lu.DarkMode != nil {
			u.DarkMode = *lu.DarkMode
		}
		if lu.NotificationsEnabled != nil {
			u.NotificationsEnabled = *lu.NotificationsEnabled
		}
		if u.ID <= 0 || u.Username == "" || u.Email == "" {
			im.Log.WarnContext(ctx, "skipping malformed user", "id", lu.ID, "username", lu.Username)
			rep.UsersSkipped++
			continue
		}

		err := im.Users.Create(ctx, u)
		if errors.Is(err, repositories.ErrConflict) {
			im.Log.WarnContext(ctx, "skipping existing user", "id", u.ID, "username", u.Username)
			rep.UsersSkipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("import user %d: %w", u.ID, err)
		}
		rep.Users++
	}
	return nil
}

func (im *Importer) importSessions(ctx context.Context, sessions map[string]int64, rep *Report) error {
	now := time.Now()
	for token, userID := range sessions {
		err := im.Sessions.Create(ctx, token, userID, now)
		if errors.Is(err, repositories.ErrConflict) {
			rep.SessionsSkipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("import session: %w", err)
		}
		rep.Sessions++
	}
	return nil
}

func (im *Importer) importResetCodes(ctx context.Context, codes map[string]legacyResetCode, rep *Report) error {
	now := time.Now()
	for email, rc := range codes {
		expires := im.parseTime(rc.Expires, time.Time{})
		if expires.IsZero() || !now.Before(expires) {
			// expired codes could never be redeemed
			continue
		}
		err := im.Resets.Upsert(ctx, &models.PasswordReset{
			Email:     email,
			Code:      rc.Code,
			ExpiresAt: expires,
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("import reset code: %w", err)
		}
		rep.ResetCodes++
	}
	return nil
}

func (im *Importer) importCounter(ctx context.Context, c legacyCounter, rep *Report) error {
	err := im.Counters.Set(ctx, &models.ApiCounter{
		Name:      im.CounterKey,
		Count:     c.Count,
		LastReset: im.parseTime(c.LastReset, time.Now()),
	})
	if err != nil {
		return fmt.Errorf("import api counter: %w", err)
	}
	rep.Counter = true
	return nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// parseTime accepts RFC 3339 and the zone-less ISO timestamps the old
// server wrote, falling back to def.
func (im *Importer) parseTime(s string, def time.Time) time.Time {
	if s == "" {
		return def
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, im.Location); err == nil {
			return t
		}
	}
	return def
}

// readJSON decodes path into v. It reports false when the file is absent.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
