package models

import (
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never sent to clients
	CreatedAt    time.Time `json:"created_at"`

	// comma-joined lists, see SplitList / JoinList
	PreferredJobTitles string `json:"-"`
	PreferredLocations string `json:"-"`
	PreferredJobTypes  string `json:"-"`

	DarkMode             bool `json:"dark_mode"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// UserView is the shape returned by /api/check-session.
type UserView struct {
	ID                   int64    `json:"id"`
	Username             string   `json:"username"`
	Email                string   `json:"email"`
	DarkMode             bool     `json:"dark_mode"`
	NotificationsEnabled bool     `json:"notifications_enabled"`
	PreferredJobTitles   []string `json:"preferred_job_titles"`
	PreferredLocations   []string `json:"preferred_locations"`
	PreferredJobTypes    []string `json:"preferred_job_types"`
}

func (u *User) View() UserView {
	return UserView{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		DarkMode:             u.DarkMode,
		NotificationsEnabled: u.NotificationsEnabled,
		PreferredJobTitles:   SplitList(u.PreferredJobTitles),
		PreferredLocations:   SplitList(u.PreferredLocations),
		PreferredJobTypes:    SplitList(u.PreferredJobTypes),
	}
}

// SplitList splits a stored comma-joined list, trimming entries and
// dropping empty ones. The result is never nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if p := strings.TrimSpace(item); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}
