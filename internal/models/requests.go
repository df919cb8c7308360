package models

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type SearchRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
	Source   string `json:"source"`
}

// ProfileUpdate carries only the fields the client sent; nil means untouched.
type ProfileUpdate struct {
	Username           *string   `json:"username"`
	Email              *string   `json:"email"`
	Password           *string   `json:"password"`
	PreferredJobTitles *[]string `json:"preferred_job_titles"`
	PreferredLocations *[]string `json:"preferred_locations"`
	PreferredJobTypes  *[]string `json:"preferred_job_types"`
}

type SettingsUpdate struct {
	DarkMode             *bool `json:"dark_mode"`
	NotificationsEnabled *bool `json:"notifications_enabled"`
}
