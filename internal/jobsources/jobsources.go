// Package jobsources holds the job board adapters. Adapters never return
// errors: a failed fetch is logged and yields no postings.
package jobsources

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultTimeout = 10 * time.Second

	descriptionLimit = 300
	notAvailable     = "N/A"
	noDescription    = "No description"
	noSalary         = "Not specified"
	noLink           = "#"
	remote           = "Remote"

	jsearchSource   = "JSearch"
	arbeitnowSource = "Arbeitnow"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// truncate keeps the first descriptionLimit characters and always marks
// the cut with an ellipsis.
func truncate(s string) string {
	if utf8.RuneCountInString(s) > descriptionLimit {
		s = string([]rune(s)[:descriptionLimit])
	}
	return s + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
