package models

import "time"

// ApiCounter tracks calls made to a quota-limited provider inside the
// current counting window.
type ApiCounter struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	LastReset time.Time `json:"last_reset"`
}

type QuotaStats struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}
