package model

import "time"

// RateLimitEntry is one live fixed window for a client identifier. At most
// one entry exists per identifier; a new window replaces the old entry
// instead of mutating its counters back down.
type RateLimitEntry struct {
	Identifier  string    `json:"identifier"`
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
	ResetTime   time.Time `json:"reset_time"`
}

// Expired reports whether the window has passed at the given instant.
func (e *RateLimitEntry) Expired(now time.Time) bool {
	return now.After(e.ResetTime)
}

type RateLimitPolicy struct {
	Name        string        `json:"name"`
	MaxRequests int           `json:"max_requests"`
	WindowSize  time.Duration `json:"window_size"`
	Description string        `json:"description"`
}
